package protoplugins

import (
	"context"
	"encoding/json"

	"github.com/neo6systems/neo6/internal/pluginabi"
)

type tn3270Handle struct{}

// TN3270VTable is a pass-through plugin: TN3270 is primarily a Frontend
// Listener concern (the terminal drives the compiler/renderer/field
// manager pipeline directly), so a transaction descriptor that names
// protocol "tn3270" is dispatched here only when a REST/TCP/MQ client
// wants to trigger a screen refresh transaction without a live terminal
// session — the invocation's parameters are echoed back as data.
func TN3270VTable() *pluginabi.VTable {
	return &pluginabi.VTable{
		Version: pluginabi.InterfaceVersion,
		Name:    "tn3270",
		Create: func([]byte) (pluginabi.Handle, error) {
			return &tn3270Handle{}, nil
		},
		Destroy: func(pluginabi.Handle) {},
		Invoke: func(ctx context.Context, h pluginabi.Handle, transactionID string, params []byte) ([]byte, pluginabi.ErrorKind) {
			var envelope struct {
				Parameters json.RawMessage `json:"parameters"`
			}
			if err := json.Unmarshal(params, &envelope); err != nil {
				return nil, pluginabi.InvalidArgs
			}
			out, err := json.Marshal(map[string]any{"echo": json.RawMessage(envelope.Parameters), "transaction_id": transactionID})
			if err != nil {
				return nil, pluginabi.Internal
			}
			return out, pluginabi.OK
		},
		SetLogLevel: func(pluginabi.Handle, string) error { return nil },
	}
}
