// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rde

// Dictionaries bundles the three dictionary buffers a BEJ decode pass
// needs. Error is carried for parity with the dictionary set
// BIOS can in principle supply, but this agent never populates one: BIOS
// does not send an error dictionary in practice, matching the teacher's
// own "we do not use the error dictionary" note.
type Dictionaries struct {
	Schema     []byte
	Annotation []byte
	Error      []byte
}

// BejDecoder turns a BEJ-encoded payload into a JSON document, using the
// supplied dictionaries to resolve property names and enumerations. A
// production implementation walks the BEJ tree per the DMTF Redfish BEJ
// specification; this package only depends on the interface so the wire
// protocol and dictionary lifecycle stay testable without a full decoder.
type BejDecoder interface {
	Decode(dict Dictionaries, payload []byte) (json string, err error)
}

// Sink is the narrow publishing surface RdeCommandHandler needs. It is
// declared here (rather than imported from pkg/sink) so this package has
// no dependency on the sink's storage details, only on the ability to
// hand off a finished JSON document.
type Sink interface {
	PublishJSON(json string) (bool, error)
}
