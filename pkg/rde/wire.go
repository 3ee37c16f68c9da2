// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rde

import "encoding/binary"

// operationInitHeaderSize is the size of the fixed portion of
// RdeOperationInitReqHeader, before the variable-length bejLocator and
// payload that follow it.
const operationInitHeaderSize = 17

// rdeOpInitOperationUpdate is the only operationType this agent supports;
// BIOS never sends any other value in practice.
const rdeOpInitOperationUpdate = 1

const (
	flagBitLocatorValid                 = 1 << 0
	flagBitContainsRequestPayload       = 1 << 1
	flagBitContainsCustomRequestParams  = 1 << 2
)

// operationInitHeader is RDEOperationInitReqHeader unmarshaled from its
// packed, little-endian, bitfield-bearing wire form:
//
//	resourceID             u32
//	operationID             u16
//	operationType            u8
//	flags (bitfield)         u8
//	sendDataTransferHandle  u32
//	operationLocatorLength   u8
//	requestPayloadLength    u32
type operationInitHeader struct {
	resourceID              uint32
	operationID             uint16
	operationType           uint8
	containsRequestPayload  bool
	sendDataTransferHandle  uint32
	operationLocatorLength  uint8
	requestPayloadLength    uint32
}

func unmarshalOperationInitHeader(b []byte) operationInitHeader {
	flags := b[7]
	return operationInitHeader{
		resourceID:             binary.LittleEndian.Uint32(b[0:4]),
		operationID:            binary.LittleEndian.Uint16(b[4:6]),
		operationType:          b[6],
		containsRequestPayload: flags&flagBitContainsRequestPayload != 0,
		sendDataTransferHandle: binary.LittleEndian.Uint32(b[8:12]),
		operationLocatorLength: b[12],
		requestPayloadLength:   binary.LittleEndian.Uint32(b[13:17]),
	}
}

// multipartHeaderSize is the size of MultipartReceiveResHeader: 1-byte
// completion code, 1-byte transfer flag, and two u32 fields. BIOS overloads
// nextDataTransferHandle to carry the dictionary's resource ID rather than
// an actual PLDM transfer handle.
const multipartHeaderSize = 10

type multipartHeader struct {
	completionCode  uint8
	transferFlag    transferFlag
	resourceID      uint32
	dataLengthBytes uint32
}

func unmarshalMultipartHeader(b []byte) multipartHeader {
	return multipartHeader{
		completionCode:  b[0],
		transferFlag:    transferFlag(b[1]),
		resourceID:      binary.LittleEndian.Uint32(b[2:6]),
		dataLengthBytes: binary.LittleEndian.Uint32(b[6:10]),
	}
}
