// Package admin implements the Admin Control Socket (§4.10): a
// length-prefixed JSON request/response channel exposing lifecycle and
// introspection commands, grounded on edgectl's internal/ghost
// admin_control.go dispatch pattern but reframed from newline-delimited
// JSON to the length-prefixed framing edgectl's internal/protocol/frame
// uses for its data-plane wire.
package admin

import (
	"encoding/binary"
	"errors"
	"io"
)

// MaxFrameBytes bounds a single admin frame, guarding against a
// misbehaving client claiming an unbounded length prefix.
const MaxFrameBytes = 1 << 20

var ErrFrameTooLarge = errors.New("admin: frame exceeds maximum size")

// readFrame reads one u32-BE-length-prefixed payload.
func readFrame(r io.Reader) ([]byte, error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(lenBuf)
	if length > MaxFrameBytes {
		return nil, ErrFrameTooLarge
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// writeFrame writes one u32-BE-length-prefixed payload.
func writeFrame(w io.Writer, payload []byte) error {
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(payload)))
	if _, err := w.Write(lenBuf); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}
