package protoplugins

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/neo6systems/neo6/internal/pluginabi"
	"github.com/neo6systems/neo6/internal/wire"
)

func TestTCPVTableSuccess(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		lenBuf := make([]byte, 4)
		if _, err := io.ReadFull(conn, lenBuf); err != nil {
			return
		}
		length := binary.BigEndian.Uint32(lenBuf)
		rest := make([]byte, length)
		if _, err := io.ReadFull(conn, rest); err != nil {
			return
		}

		reply, err := wire.EncodeBinary(wire.Frame{Version: wire.BinaryVersion, TransactionID: "tx-1", Payload: []byte(`{"ok":true}`)})
		if err != nil {
			return
		}
		conn.Write(reply)
	}()

	vt := TCPVTable()
	h, err := vt.Create(nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer vt.Destroy(h)

	params := []byte(`{"endpoint":"` + ln.Addr().String() + `"}`)
	out, kind := vt.Invoke(context.Background(), h, "tx-1", params)
	if kind != pluginabi.OK {
		t.Fatalf("kind = %v, want OK", kind)
	}
	if string(out) != `{"ok":true}` {
		t.Errorf("out = %q", out)
	}
}

func TestTCPVTableMissingEndpoint(t *testing.T) {
	vt := TCPVTable()
	h, _ := vt.Create(nil)
	_, kind := vt.Invoke(context.Background(), h, "tx-1", []byte(`{}`))
	if kind != pluginabi.InvalidArgs {
		t.Errorf("kind = %v, want InvalidArgs", kind)
	}
}

func TestTCPVTableDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close() // nothing is listening now

	vt := TCPVTable()
	h, _ := vt.Create(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, kind := vt.Invoke(ctx, h, "tx-1", []byte(`{"endpoint":"`+addr+`"}`))
	if kind != pluginabi.BackendUnavailable {
		t.Errorf("kind = %v, want BackendUnavailable", kind)
	}
}
