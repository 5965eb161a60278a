package admin

import (
	"bytes"
	"testing"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte(`{"command":"Status"}`)
	if err := writeFrame(&buf, payload); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}
	out, err := readFrame(&buf)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Errorf("out = %q, want %q", out, payload)
	}
}

func TestReadFrameRejectsOversized(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFrame(&buf, make([]byte, 0)); err != nil {
		t.Fatal(err)
	}
	// Overwrite the length prefix with a value beyond MaxFrameBytes.
	oversized := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	buf2 := bytes.NewBuffer(oversized)
	if _, err := readFrame(buf2); err != ErrFrameTooLarge {
		t.Fatalf("err = %v, want ErrFrameTooLarge", err)
	}
}

func TestReadFrameEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFrame(&buf, nil); err != nil {
		t.Fatal(err)
	}
	out, err := readFrame(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty payload, got %q", out)
	}
}
