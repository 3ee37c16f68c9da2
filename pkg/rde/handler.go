// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rde decodes the two RDE command shapes BIOS sends through the
// circular buffer: BEJ dictionary chunks (MultiPartReceiveResponse) and
// BEJ-encoded error records (OperationInitRequest). It reassembles
// multi-part dictionary transfers, validates their CRC-32 trailer, and
// hands decoded records to a Sink.
package rde

import (
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/dictionary"
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/log"
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/telemetry"
)

// Handler decodes RDE commands, reassembling BEJ dictionaries and
// decoding BEJ records against them. It is not safe for concurrent use;
// the poll loop that owns a Handler drives it from a single goroutine.
type Handler struct {
	flagState          transferFlagState
	prevDictResourceID uint32

	crc      uint32
	crcTable [256]uint32

	dm        *dictionary.Manager
	decoder   BejDecoder
	sink      Sink
	telemetry *telemetry.Telemetry
}

// New constructs a Handler. dm, decoder and sink must be non-nil; tel may
// be nil in tests that don't care about metrics.
func New(dm *dictionary.Manager, decoder BejDecoder, sink Sink, tel *telemetry.Telemetry) *Handler {
	return &Handler{
		dm:        dm,
		decoder:   decoder,
		sink:      sink,
		telemetry: tel,
		crcTable:  buildCRCTable(),
	}
}

// DictionaryCount returns the number of currently complete dictionaries.
func (h *Handler) DictionaryCount() uint32 {
	return h.dm.Count()
}

// Decode dispatches cmd to the handler matching cmdType, and records the
// terminal status in the decode_status_total counter.
func (h *Handler) Decode(cmd []byte, cmdType CommandType) DecodeStatus {
	switch cmdType {
	case MultiPartReceiveResponse:
		return h.multiPartReceive(cmd)
	case OperationInitRequest:
		return h.operationInit(cmd)
	default:
		log.Warnf("rde: invalid command type %d", cmdType)
		return h.recordStatus(StatusInvalidCommand)
	}
}

func (h *Handler) recordStatus(status DecodeStatus) DecodeStatus {
	if h.telemetry != nil {
		h.telemetry.DecodeStatusTotal.WithLabelValues(status.String()).Inc()
	}
	return status
}

func (h *Handler) operationInit(cmd []byte) DecodeStatus {
	if len(cmd) < operationInitHeaderSize {
		log.Warnf("rde: operation init command shorter than header: %d bytes", len(cmd))
		return h.recordStatus(StatusInvalidCommand)
	}
	hdr := unmarshalOperationInitHeader(cmd)

	if !hdr.containsRequestPayload {
		return h.recordStatus(StatusOk)
	}

	if hdr.operationType != rdeOpInitOperationUpdate {
		log.Warnf("rde: unsupported operation type %d", hdr.operationType)
		return h.recordStatus(StatusUnsupportedOperation)
	}

	// Payload overflow (continuation across a second OperationInit
	// request) is not supported: BIOS is expected to always fit the
	// encoded record in a single request.
	if hdr.sendDataTransferHandle != 0 {
		log.Warnf("rde: operation init payload does not fit in one request")
		return h.recordStatus(StatusPayloadOverflow)
	}

	payloadStart := operationInitHeaderSize + int(hdr.operationLocatorLength)
	payloadEnd := payloadStart + int(hdr.requestPayloadLength)
	if len(cmd) < payloadEnd {
		log.Warnf("rde: operation init command shorter than declared payload")
		return h.recordStatus(StatusInvalidCommand)
	}

	schemaDict, ok := h.dm.Get(hdr.resourceID)
	if !ok {
		log.Warnf("rde: no schema dictionary for resource id %d", hdr.resourceID)
		return h.recordStatus(StatusNoDictionary)
	}
	annotationDict, ok := h.dm.GetAnnotation()
	if !ok {
		log.Warnf("rde: no annotation dictionary")
		return h.recordStatus(StatusNoDictionary)
	}

	payload := cmd[payloadStart:payloadEnd]
	jsonStr, err := h.decoder.Decode(Dictionaries{Schema: schemaDict, Annotation: annotationDict}, payload)
	if err != nil {
		log.Warnf("rde: bej decode failed: %v", err)
		return h.recordStatus(StatusBejDecodingError)
	}

	ok, err = h.sink.PublishJSON(jsonStr)
	if err != nil || !ok {
		log.Warnf("rde: failed to publish decoded record: %v", err)
		return h.recordStatus(StatusExternalStorerError)
	}
	return h.recordStatus(StatusOk)
}

func (h *Handler) multiPartReceive(cmd []byte) DecodeStatus {
	if len(cmd) < multipartHeaderSize {
		log.Warnf("rde: multipart command shorter than header: %d bytes", len(cmd))
		return h.recordStatus(StatusInvalidCommand)
	}
	hdr := unmarshalMultipartHeader(cmd)
	dataLen := int(hdr.dataLengthBytes)

	var status DecodeStatus
	switch hdr.transferFlag {
	case flagStart:
		if len(cmd) < multipartHeaderSize+dataLen {
			return h.recordStatus(StatusInvalidCommand)
		}
		data := cmd[multipartHeaderSize : multipartHeaderSize+dataLen]
		h.crc = crcInit
		h.dm.StartEntry(hdr.resourceID, data)
		h.crc = updateCRC(&h.crcTable, h.crc, data)
		h.flagState = stateStartReceived
		status = StatusOk

	case flagMiddle:
		if len(cmd) < multipartHeaderSize+dataLen {
			return h.recordStatus(StatusInvalidCommand)
		}
		data := cmd[multipartHeaderSize : multipartHeaderSize+dataLen]
		if h.flagState != stateStartReceived {
			log.Warnf("rde: middle frame without start, resource id %d", hdr.resourceID)
			status = StatusInvalidPktOrder
		} else {
			status = h.applyFrame(hdr.resourceID, data)
			h.crc = updateCRC(&h.crcTable, h.crc, data)
		}

	case flagEnd:
		if len(cmd) < multipartHeaderSize+dataLen+4 {
			return h.recordStatus(StatusInvalidCommand)
		}
		data := cmd[multipartHeaderSize : multipartHeaderSize+dataLen]
		if h.flagState != stateStartReceived {
			log.Warnf("rde: end frame without start, resource id %d", hdr.resourceID)
			status = StatusInvalidPktOrder
		} else {
			h.flagState = stateIdle
			status = h.applyFrame(hdr.resourceID, data)
			if status == StatusDictionaryError {
				break
			}
			h.dm.MarkComplete(hdr.resourceID)
			h.crc = updateCRC(&h.crcTable, h.crc, data)
			trailer := cmd[multipartHeaderSize+dataLen : multipartHeaderSize+dataLen+4]
			status = h.verifyChecksum(trailer)
		}

	case flagStartAndEnd:
		if len(cmd) < multipartHeaderSize+dataLen+4 {
			return h.recordStatus(StatusInvalidCommand)
		}
		data := cmd[multipartHeaderSize : multipartHeaderSize+dataLen]
		h.crc = crcInit
		h.dm.StartEntry(hdr.resourceID, data)
		h.dm.MarkComplete(hdr.resourceID)
		h.crc = updateCRC(&h.crcTable, h.crc, data)
		h.flagState = stateIdle
		trailer := cmd[multipartHeaderSize+dataLen : multipartHeaderSize+dataLen+4]
		status = h.verifyChecksum(trailer)

	default:
		log.Warnf("rde: invalid transfer flag %d", hdr.transferFlag)
		status = StatusInvalidCommand
	}

	// A failure here doesn't make this assignment any less correct: CRC
	// and dictionary state have already been advanced for resourceID.
	h.prevDictResourceID = hdr.resourceID
	return h.recordStatus(status)
}

// applyFrame implements the new-resource-vs-same-resource branch shared
// by Middle and End frames.
func (h *Handler) applyFrame(resourceID uint32, data []byte) DecodeStatus {
	if resourceID != h.prevDictResourceID {
		h.dm.MarkComplete(h.prevDictResourceID)
		if h.telemetry != nil {
			h.telemetry.DictionaryInterleave.Inc()
		}
		h.dm.StartEntry(resourceID, data)
		return StatusOk
	}
	if !h.dm.AddData(resourceID, data) {
		log.Warnf("rde: add dictionary data failed for resource id %d", resourceID)
		return StatusDictionaryError
	}
	return StatusOk
}

func (h *Handler) verifyChecksum(trailer []byte) DecodeStatus {
	want := uint32(trailer[0]) | uint32(trailer[1])<<8 | uint32(trailer[2])<<16 | uint32(trailer[3])<<24
	got := finalChecksum(h.crc)
	if got != want {
		log.Warnf("rde: checksum mismatch, want %#x got %#x", want, got)
		h.dm.InvalidateAll()
		return StatusInvalidChecksum
	}
	return StatusStopFlagReceived
}
