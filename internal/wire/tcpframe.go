// Package wire implements the TCP Frontend Listener's wire framing (§4.6):
// a fixed binary header used for legacy clients, plus the newline-delimited
// text mode used by lighter clients. Grounded on the teacher's
// internal/protocol/frame fixed-header style and internal/protocol/tlv
// length-prefixed encoding, generalized to NEO6's transaction envelope.
package wire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

// TxIDLen is the fixed width of the space-padded ASCII transaction id field
// in a binary frame.
const TxIDLen = 8

// BinaryVersion is the current wire version stamped into every binary frame
// this listener emits.
const BinaryVersion uint16 = 1

var (
	ErrFrameTooShort   = errors.New("wire: frame shorter than header")
	ErrTransactionID   = errors.New("wire: transaction id exceeds 8 bytes")
	ErrTextFramePrefix = errors.New("wire: text frame missing NEO6 prefix")
)

// Frame is one decoded TCP request/response envelope.
type Frame struct {
	Version       uint16
	TransactionID string
	Payload       []byte
}

// EncodeBinary lays out [length:u32 BE][version:u16 BE][transaction_id:8
// bytes ASCII, space-padded][payload].
func EncodeBinary(f Frame) ([]byte, error) {
	if len(f.TransactionID) > TxIDLen {
		return nil, ErrTransactionID
	}
	txID := padTxID(f.TransactionID)
	total := 2 + TxIDLen + len(f.Payload)
	buf := make([]byte, 4+total)
	binary.BigEndian.PutUint32(buf[0:4], uint32(total))
	binary.BigEndian.PutUint16(buf[4:6], f.Version)
	copy(buf[6:6+TxIDLen], txID)
	copy(buf[6+TxIDLen:], f.Payload)
	return buf, nil
}

func padTxID(id string) []byte {
	out := make([]byte, TxIDLen)
	for i := range out {
		out[i] = ' '
	}
	copy(out, id)
	return out
}

// ReadBinary reads one length-prefixed binary frame from r (the length
// prefix itself already consumed by the caller's sniff, so length is
// passed in explicitly).
func ReadBinary(r io.Reader, length uint32) (Frame, error) {
	if length < 2+TxIDLen {
		return Frame{}, ErrFrameTooShort
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return Frame{}, err
	}
	version := binary.BigEndian.Uint16(body[0:2])
	txID := strings.TrimRight(string(body[2:2+TxIDLen]), " ")
	payload := body[2+TxIDLen:]
	return Frame{Version: version, TransactionID: txID, Payload: payload}, nil
}

// TextPrefix is the sentinel that opens every text-mode frame.
const TextPrefix = "NEO6"

// EncodeText renders the pipe-delimited text mode: NEO6|<version>|<tx>|<json>\n
func EncodeText(f Frame) []byte {
	line := fmt.Sprintf("%s|%d|%s|%s\n", TextPrefix, f.Version, f.TransactionID, f.Payload)
	return []byte(line)
}

// DecodeText parses one text-mode line (trailing newline already stripped).
func DecodeText(line string) (Frame, error) {
	parts := strings.SplitN(line, "|", 4)
	if len(parts) != 4 || parts[0] != TextPrefix {
		return Frame{}, ErrTextFramePrefix
	}
	var version uint16
	if _, err := fmt.Sscanf(parts[1], "%d", &version); err != nil {
		return Frame{}, fmt.Errorf("wire: invalid version: %w", err)
	}
	return Frame{Version: version, TransactionID: parts[2], Payload: []byte(parts[3])}, nil
}

// Sniff reads the first byte from br without consuming it and reports
// whether the connection should be treated as binary framing (a leading
// byte above 0x7F, or a control byte other than newline) rather than text
// mode.
func Sniff(br *bufio.Reader) (binaryMode bool, err error) {
	b, err := br.Peek(1)
	if err != nil {
		return false, err
	}
	return b[0] > 127 || (b[0] < 32 && b[0] != '\n'), nil
}
