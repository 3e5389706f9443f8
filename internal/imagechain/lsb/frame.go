// Package lsb carries the full chained payload in the least
// significant bits of the R, G and B channels. The payload is
// deflated, framed with a length, checksum and end marker, and every
// frame byte is tripled for majority-vote recovery.
package lsb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

const (
	frameMagic = "ICLSB01"
	endMarker  = "ICEND01"
)

var (
	ErrCapacity = errors.New("lsb: capacity exceeded")
	ErrNoFrame  = errors.New("lsb: no frame found")
)

// BuildFrame deflates the payload and wraps it:
// magic, u32be length, u32be checksum, compressed bytes, end marker.
func BuildFrame(payload []byte) ([]byte, error) {
	var comp bytes.Buffer
	w, err := flate.NewWriter(&comp, flate.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("lsb: deflate init: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return nil, fmt.Errorf("lsb: deflate: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lsb: deflate close: %w", err)
	}
	compressed := comp.Bytes()

	frame := make([]byte, 0, len(frameMagic)+8+len(compressed)+len(endMarker))
	frame = append(frame, frameMagic...)
	frame = binary.BigEndian.AppendUint32(frame, uint32(len(compressed)))
	frame = binary.BigEndian.AppendUint32(frame, byteSum(compressed))
	frame = append(frame, compressed...)
	frame = append(frame, endMarker...)
	return frame, nil
}

func byteSum(b []byte) uint32 {
	var sum uint32
	for _, c := range b {
		sum += uint32(c)
	}
	return sum
}

// ScanResult describes a frame located in a decoded byte stream.
type ScanResult struct {
	Payload []byte // inflated payload
	Start   int    // frame offset in the decoded stream
	End     int    // one past the end marker
}

// ScanFrame searches decoded bytes for a framed payload. The scanner
// tolerates false starts: a magic match whose length, end marker or
// checksum does not hold advances one byte and retries.
func ScanFrame(decoded []byte) (*ScanResult, error) {
	headerLen := len(frameMagic) + 8
	for start := 0; start+headerLen <= len(decoded); start++ {
		if !bytes.HasPrefix(decoded[start:], []byte(frameMagic)) {
			continue
		}
		p := start + len(frameMagic)
		compLen := int(binary.BigEndian.Uint32(decoded[p : p+4]))
		checksum := binary.BigEndian.Uint32(decoded[p+4 : p+8])
		bodyStart := p + 8
		bodyEnd := bodyStart + compLen
		markerEnd := bodyEnd + len(endMarker)
		if compLen < 0 || markerEnd > len(decoded) {
			continue
		}
		if string(decoded[bodyEnd:markerEnd]) != endMarker {
			continue
		}
		compressed := decoded[bodyStart:bodyEnd]
		if byteSum(compressed) != checksum {
			continue
		}
		payload, err := io.ReadAll(flate.NewReader(bytes.NewReader(compressed)))
		if err != nil {
			continue
		}
		return &ScanResult{Payload: payload, Start: start, End: markerEnd}, nil
	}
	return nil, ErrNoFrame
}
