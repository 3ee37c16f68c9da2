// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bej provides a minimal reference implementation of
// rde.BejDecoder. Full BEJ decoding (the DMTF Redfish Binary Encoded
// JSON tag/value tree walk) is treated as a black box by this agent; this
// package exists so the rest of the pipeline has a concrete decoder to
// run against, not as a compliant BEJ implementation. Deployments that
// need full schema fidelity should supply their own rde.BejDecoder.
package bej

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/rde"
)

// Dictionary maps a tag byte to the property name it stands for. A real
// BEJ dictionary is a far richer schema table (types, nesting,
// enumerations); this package only needs name resolution to produce a
// flat JSON object.
type Dictionary map[byte]string

// ParseDictionary reads a dictionary from the simple line-oriented format
// this package's tests and the dictionary manager's StartEntry/AddData
// byte buffers exchange: one "tag:name" pair per line, tag given as a
// decimal or 0x-prefixed hex byte.
func ParseDictionary(data []byte) (Dictionary, error) {
	dict := make(Dictionary)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("bej: malformed dictionary line %q", line)
		}
		tag, err := strconv.ParseUint(parts[0], 0, 8)
		if err != nil {
			return nil, fmt.Errorf("bej: malformed dictionary tag %q: %w", parts[0], err)
		}
		dict[byte(tag)] = parts[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("bej: scan dictionary: %w", err)
	}
	return dict, nil
}

// Decoder is the reference rde.BejDecoder implementation. It decodes a
// payload of repeated (tag byte, u16 little-endian length, value bytes)
// records into a flat JSON object, resolving each tag against the
// schema dictionary and falling back to the annotation dictionary.
type Decoder struct{}

// New constructs a Decoder.
func New() *Decoder {
	return &Decoder{}
}

// Decode implements rde.BejDecoder.
func (d *Decoder) Decode(dict rde.Dictionaries, payload []byte) (string, error) {
	schema, err := ParseDictionary(dict.Schema)
	if err != nil {
		return "", err
	}
	annotation, err := ParseDictionary(dict.Annotation)
	if err != nil {
		return "", err
	}

	var fields []string
	i := 0
	for i < len(payload) {
		if i+3 > len(payload) {
			return "", fmt.Errorf("bej: truncated record at offset %d", i)
		}
		tag := payload[i]
		length := int(binary.LittleEndian.Uint16(payload[i+1 : i+3]))
		valueStart := i + 3
		valueEnd := valueStart + length
		if valueEnd > len(payload) {
			return "", fmt.Errorf("bej: record value overruns payload at offset %d", i)
		}
		value := payload[valueStart:valueEnd]

		name, ok := schema[tag]
		if !ok {
			name, ok = annotation[tag]
		}
		if !ok {
			return "", fmt.Errorf("bej: unknown tag %#x", tag)
		}
		fields = append(fields, fmt.Sprintf("%q:%q", name, value))
		i = valueEnd
	}

	return "{" + strings.Join(fields, ",") + "}", nil
}
