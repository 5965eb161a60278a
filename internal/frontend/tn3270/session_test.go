package tn3270

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/neo6systems/neo6/internal/config"
	"github.com/neo6systems/neo6/internal/loader"
	"github.com/neo6systems/neo6/internal/pluginabi"
	"github.com/neo6systems/neo6/internal/router"
	"github.com/neo6systems/neo6/internal/txregistry"
)

func newTestRouter(t *testing.T) *router.Router {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transactions.yaml")
	body := []byte("transactions:\n  LOOKUP:\n    protocol: fake\n    endpoint: LOOKUP\n    parameters:\n      - name: account_id\n        type: string\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}
	txs := txregistry.New()
	if err := txs.Load(path); err != nil {
		t.Fatal(err)
	}
	l := loader.New()
	vt := &pluginabi.VTable{
		Version: pluginabi.InterfaceVersion,
		Name:    "fake",
		Create:  func([]byte) (pluginabi.Handle, error) { return struct{}{}, nil },
		Destroy: func(pluginabi.Handle) {},
		Invoke: func(ctx context.Context, h pluginabi.Handle, transactionID string, params []byte) ([]byte, pluginabi.ErrorKind) {
			return []byte(`{"found":true}`), pluginabi.OK
		},
	}
	if err := l.RegisterBuiltin(vt, nil); err != nil {
		t.Fatal(err)
	}
	return router.New(txs, l, config.CircuitBreakerConfig{Enabled: true, FailureThreshold: 50, RecoveryTimeoutS: 60, HalfOpenMaxCalls: 1})
}

func newTestTemplates(t *testing.T) *TemplateStore {
	t.Helper()
	dir := t.TempDir()
	body := "[XY1,1]Account:[FIELD account_id,length=10][/FIELD]"
	if err := os.WriteFile(filepath.Join(dir, "lookup.t3270"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	store := NewTemplateStore(dir)
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}
	return store
}

func writeControlFrame(t *testing.T, conn net.Conn, in controlIn) {
	t.Helper()
	payload, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(payload)))
	if _, err := conn.Write(lenBuf); err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Write(payload); err != nil {
		t.Fatal(err)
	}
}

func readControlFrame(t *testing.T, conn net.Conn) controlOut {
	t.Helper()
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(conn, lenBuf); err != nil {
		t.Fatal(err)
	}
	length := binary.BigEndian.Uint32(lenBuf)
	buf := make([]byte, length)
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatal(err)
	}
	var out controlOut
	if err := json.Unmarshal(buf, &out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestSessionUnknownScreen(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	sess := newSession(server, newTestRouter(t), newTestTemplates(t))
	go sess.run(context.Background())

	writeControlFrame(t, client, controlIn{Screen: "does-not-exist"})
	out := readControlFrame(t, client)
	if out.FieldErrors["screen"] != "unknown screen" {
		t.Errorf("unexpected response: %+v", out)
	}
}

func TestSessionSelectScreenRendersDatastream(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	sess := newSession(server, newTestRouter(t), newTestTemplates(t))
	go sess.run(context.Background())

	writeControlFrame(t, client, controlIn{Screen: "lookup"})
	out := readControlFrame(t, client)
	if out.Screen != "lookup" || len(out.Datastream) == 0 {
		t.Errorf("unexpected response: %+v", out)
	}
}

func TestSessionEnterInvokesTransaction(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	sess := newSession(server, newTestRouter(t), newTestTemplates(t))
	go sess.run(context.Background())

	writeControlFrame(t, client, controlIn{Screen: "lookup"})
	readControlFrame(t, client) // initial screen render

	writeControlFrame(t, client, controlIn{
		Screen:        "lookup",
		TransactionID: "LOOKUP",
		AID:           "ENTER",
		FieldOrder:    []string{"account_id"},
		Segments:      map[string]string{"account_id": "12345"},
		MDTFlags:      map[string]bool{"account_id": true},
	})
	out := readControlFrame(t, client)
	if out.Response == nil || out.Response.Status != "success" {
		t.Fatalf("expected a successful invocation response, got %+v", out.Response)
	}
}

func TestSessionFieldValidationErrorSurfaced(t *testing.T) {
	dir := t.TempDir()
	body := "[XY1,1]Amount:[FIELD amount,length=6,numeric][/FIELD]"
	if err := os.WriteFile(filepath.Join(dir, "pay.t3270"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	store := NewTemplateStore(dir)
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}

	client, server := net.Pipe()
	defer client.Close()
	sess := newSession(server, newTestRouter(t), store)
	go sess.run(context.Background())

	writeControlFrame(t, client, controlIn{Screen: "pay"})
	readControlFrame(t, client)

	writeControlFrame(t, client, controlIn{
		Screen:     "pay",
		FieldOrder: []string{"amount"},
		Segments:   map[string]string{"amount": "abc"},
		MDTFlags:   map[string]bool{"amount": true},
	})
	out := readControlFrame(t, client)
	if out.FieldErrors["amount"] == "" {
		t.Errorf("expected a field validation error, got %+v", out)
	}
}

func TestSessionClosesOnEOF(t *testing.T) {
	client, server := net.Pipe()
	sess := newSession(server, newTestRouter(t), newTestTemplates(t))
	done := make(chan error, 1)
	go func() { done <- sess.run(context.Background()) }()

	client.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean EOF exit, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("expected session to exit after client closed the connection")
	}
}
