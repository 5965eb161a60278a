package protoplugins

import (
	"context"
	"testing"

	"github.com/neo6systems/neo6/internal/pluginabi"
)

func TestMQVTableCreateUsesDefaultAddr(t *testing.T) {
	vt := MQVTable()
	h, err := vt.Create(nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer vt.Destroy(h)
	if _, ok := h.(*mqHandle); !ok {
		t.Fatalf("expected *mqHandle, got %T", h)
	}
}

func TestMQVTableMissingEndpoint(t *testing.T) {
	vt := MQVTable()
	h, _ := vt.Create(nil)
	defer vt.Destroy(h)
	_, kind := vt.Invoke(context.Background(), h, "tx-1", []byte(`{}`))
	if kind != pluginabi.InvalidArgs {
		t.Errorf("kind = %v, want InvalidArgs", kind)
	}
}

// TestMQVTableUnreachableBackend exercises the RPush failure path against a
// Redis address nothing is listening on; go-redis fails fast on connection
// refused rather than blocking for the invocation's full timeout.
func TestMQVTableUnreachableBackend(t *testing.T) {
	vt := MQVTable()
	h, err := vt.Create([]byte(`{"addr":"127.0.0.1:1"}`))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer vt.Destroy(h)
	_, kind := vt.Invoke(context.Background(), h, "tx-1", []byte(`{"endpoint":"neo6:req"}`))
	if kind != pluginabi.BackendUnavailable {
		t.Errorf("kind = %v, want BackendUnavailable", kind)
	}
}
