// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rde

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/dictionary"
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/telemetry"
)

var errDecode = errors.New("bej: decode failed")

type fakeSink struct {
	published []string
	fail      bool
}

func (f *fakeSink) PublishJSON(json string) (bool, error) {
	if f.fail {
		return false, nil
	}
	f.published = append(f.published, json)
	return true, nil
}

type fakeDecoder struct {
	output string
	err    error
}

func (f *fakeDecoder) Decode(Dictionaries, []byte) (string, error) {
	return f.output, f.err
}

func newTestHandler(t *testing.T, decoder BejDecoder, sink Sink) (*Handler, *dictionary.Manager) {
	t.Helper()
	tel := telemetry.New(prometheus.NewRegistry())
	dm := dictionary.New(tel)
	return New(dm, decoder, sink, tel), dm
}

func crcTrailer(data []byte) []byte {
	table := buildCRCTable()
	crc := updateCRC(&table, crcInit, data)
	trailer := make([]byte, 4)
	binary.LittleEndian.PutUint32(trailer, finalChecksum(crc))
	return trailer
}

func multipartFrame(flag transferFlag, resourceID uint32, data []byte, withTrailer bool) []byte {
	b := make([]byte, multipartHeaderSize)
	b[0] = 0 // completionCode
	b[1] = byte(flag)
	binary.LittleEndian.PutUint32(b[2:6], resourceID)
	binary.LittleEndian.PutUint32(b[6:10], uint32(len(data)))
	b = append(b, data...)
	if withTrailer {
		b = append(b, crcTrailer(data)...)
	}
	return b
}

func TestMultipartStartAndEnd(t *testing.T) {
	// Scenario 4.
	h, dm := newTestHandler(t, &fakeDecoder{}, &fakeSink{})
	data := []byte("complete")
	frame := multipartFrame(flagStartAndEnd, 5, data, true)

	status := h.Decode(frame, MultiPartReceiveResponse)
	require.Equal(t, StatusStopFlagReceived, status)
	require.EqualValues(t, 1, dm.Count())
}

func TestMultipartStartMiddleEnd(t *testing.T) {
	// Scenario 5.
	h, dm := newTestHandler(t, &fakeDecoder{}, &fakeSink{})

	status := h.Decode(multipartFrame(flagStart, 9, []byte("part1"), false), MultiPartReceiveResponse)
	require.Equal(t, StatusOk, status)

	status = h.Decode(multipartFrame(flagMiddle, 9, []byte("part2"), false), MultiPartReceiveResponse)
	require.Equal(t, StatusOk, status)

	full := []byte("part1part2part3")
	endData := []byte("part3")
	trailer := crcTrailer(full)
	end := make([]byte, multipartHeaderSize)
	end[1] = byte(flagEnd)
	binary.LittleEndian.PutUint32(end[2:6], 9)
	binary.LittleEndian.PutUint32(end[6:10], uint32(len(endData)))
	end = append(end, endData...)
	end = append(end, trailer...)

	status = h.Decode(end, MultiPartReceiveResponse)
	require.Equal(t, StatusStopFlagReceived, status)
	require.EqualValues(t, 1, dm.Count())

	data, ok := dm.Get(9)
	require.True(t, ok)
	require.Equal(t, full, data)
}

func TestMultipartInvalidPktOrder(t *testing.T) {
	h, _ := newTestHandler(t, &fakeDecoder{}, &fakeSink{})
	status := h.Decode(multipartFrame(flagMiddle, 1, []byte("x"), false), MultiPartReceiveResponse)
	require.Equal(t, StatusInvalidPktOrder, status)
}

func TestMultipartChecksumMismatchInvalidatesDictionaries(t *testing.T) {
	h, dm := newTestHandler(t, &fakeDecoder{}, &fakeSink{})
	dm.StartEntry(1, []byte("other"))
	dm.MarkComplete(1)
	require.EqualValues(t, 1, dm.Count())

	data := []byte("complete")
	frame := multipartFrame(flagStartAndEnd, 5, data, true)
	frame[len(frame)-1] ^= 0xff // corrupt the trailer

	status := h.Decode(frame, MultiPartReceiveResponse)
	require.Equal(t, StatusInvalidChecksum, status)
	require.EqualValues(t, 0, dm.Count())
}

func TestMultipartUnknownFlag(t *testing.T) {
	h, _ := newTestHandler(t, &fakeDecoder{}, &fakeSink{})
	frame := multipartFrame(transferFlag(0xff), 1, []byte("x"), false)
	status := h.Decode(frame, MultiPartReceiveResponse)
	require.Equal(t, StatusInvalidCommand, status)
}

func TestMultipartShortCommandIsInvalid(t *testing.T) {
	h, _ := newTestHandler(t, &fakeDecoder{}, &fakeSink{})
	status := h.Decode(make([]byte, 3), MultiPartReceiveResponse)
	require.Equal(t, StatusInvalidCommand, status)
}

func TestOperationInitHappyPath(t *testing.T) {
	// Scenario 6.
	sink := &fakeSink{}
	wantJSON := `{"Id":"Dummy ID"}`
	h, dm := newTestHandler(t, &fakeDecoder{output: wantJSON}, sink)

	dm.StartEntry(7, []byte("schema"))
	dm.MarkComplete(7)
	dm.StartEntry(dictionary.AnnotationResourceID, []byte("annotation"))
	dm.MarkComplete(dictionary.AnnotationResourceID)

	payload := []byte{0x01, 0x02, 0x03}
	frame := buildOperationInitFrame(t, 7, payload)

	status := h.Decode(frame, OperationInitRequest)
	require.Equal(t, StatusOk, status)
	require.Equal(t, []string{wantJSON}, sink.published)
}

func TestOperationInitNoDictionary(t *testing.T) {
	h, _ := newTestHandler(t, &fakeDecoder{}, &fakeSink{})
	frame := buildOperationInitFrame(t, 123, []byte{0x01})
	status := h.Decode(frame, OperationInitRequest)
	require.Equal(t, StatusNoDictionary, status)
}

func TestOperationInitUnsupportedOperation(t *testing.T) {
	h, dm := newTestHandler(t, &fakeDecoder{}, &fakeSink{})
	dm.StartEntry(1, []byte("s"))
	dm.MarkComplete(1)
	dm.StartEntry(dictionary.AnnotationResourceID, []byte("a"))
	dm.MarkComplete(dictionary.AnnotationResourceID)

	frame := buildOperationInitFrame(t, 1, []byte{0x01})
	frame[6] = 2 // operationType != 1

	status := h.Decode(frame, OperationInitRequest)
	require.Equal(t, StatusUnsupportedOperation, status)
}

func TestOperationInitPayloadOverflow(t *testing.T) {
	h, dm := newTestHandler(t, &fakeDecoder{}, &fakeSink{})
	dm.StartEntry(1, []byte("s"))
	dm.MarkComplete(1)
	dm.StartEntry(dictionary.AnnotationResourceID, []byte("a"))
	dm.MarkComplete(dictionary.AnnotationResourceID)

	frame := buildOperationInitFrame(t, 1, []byte{0x01})
	binary.LittleEndian.PutUint32(frame[8:12], 1) // sendDataTransferHandle != 0

	status := h.Decode(frame, OperationInitRequest)
	require.Equal(t, StatusPayloadOverflow, status)
}

func TestOperationInitNoPayloadIsOk(t *testing.T) {
	h, _ := newTestHandler(t, &fakeDecoder{}, &fakeSink{})
	frame := make([]byte, operationInitHeaderSize)
	// flags byte left at 0: containsRequestPayload is false.
	status := h.Decode(frame, OperationInitRequest)
	require.Equal(t, StatusOk, status)
}

func TestOperationInitBejDecodingError(t *testing.T) {
	h, dm := newTestHandler(t, &fakeDecoder{err: errDecode}, &fakeSink{})
	dm.StartEntry(1, []byte("s"))
	dm.MarkComplete(1)
	dm.StartEntry(dictionary.AnnotationResourceID, []byte("a"))
	dm.MarkComplete(dictionary.AnnotationResourceID)

	frame := buildOperationInitFrame(t, 1, []byte{0x01})
	status := h.Decode(frame, OperationInitRequest)
	require.Equal(t, StatusBejDecodingError, status)
}

func TestOperationInitExternalStorerError(t *testing.T) {
	h, dm := newTestHandler(t, &fakeDecoder{output: "{}"}, &fakeSink{fail: true})
	dm.StartEntry(1, []byte("s"))
	dm.MarkComplete(1)
	dm.StartEntry(dictionary.AnnotationResourceID, []byte("a"))
	dm.MarkComplete(dictionary.AnnotationResourceID)

	frame := buildOperationInitFrame(t, 1, []byte{0x01})
	status := h.Decode(frame, OperationInitRequest)
	require.Equal(t, StatusExternalStorerError, status)
}

func TestInvalidCommandType(t *testing.T) {
	h, _ := newTestHandler(t, &fakeDecoder{}, &fakeSink{})
	status := h.Decode([]byte{0x01}, CommandType(0xff))
	require.Equal(t, StatusInvalidCommand, status)
}

func buildOperationInitFrame(t *testing.T, resourceID uint32, payload []byte) []byte {
	t.Helper()
	b := make([]byte, operationInitHeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], resourceID)
	binary.LittleEndian.PutUint16(b[4:6], 1) // operationID
	b[6] = rdeOpInitOperationUpdate
	b[7] = flagBitContainsRequestPayload
	binary.LittleEndian.PutUint32(b[8:12], 0) // sendDataTransferHandle
	b[12] = 0                                 // operationLocatorLength
	binary.LittleEndian.PutUint32(b[13:17], uint32(len(payload)))
	return append(b, payload...)
}
