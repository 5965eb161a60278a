// Package protoplugins implements NEO6's built-in protocol plugins: rest,
// tcp, mq, tn3270 and an SSH-transport-backed stand-in for lu62/jca. Every
// plugin obeys the identical pluginabi.VTable contract a dynamically loaded
// .so would, so they are registered via loader.RegisterBuiltin rather than
// plugin.Open.
package protoplugins

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/neo6systems/neo6/internal/pluginabi"
)

type restHandle struct {
	client *http.Client
}

type restConfig struct {
	TimeoutMS int64 `json:"timeout_ms"`
}

// RestVTable dispatches an invocation as an HTTP POST to descriptor.endpoint
// carrying the composed payload as the request body, and mirrors the
// backend's JSON response back verbatim.
func RestVTable() *pluginabi.VTable {
	return &pluginabi.VTable{
		Version: pluginabi.InterfaceVersion,
		Name:    "rest",
		Create: func(configJSON []byte) (pluginabi.Handle, error) {
			cfg := restConfig{TimeoutMS: 30000}
			_ = json.Unmarshal(configJSON, &cfg)
			return &restHandle{client: &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond}}, nil
		},
		Destroy: func(pluginabi.Handle) {},
		Invoke: func(ctx context.Context, h pluginabi.Handle, transactionID string, params []byte) ([]byte, pluginabi.ErrorKind) {
			rh := h.(*restHandle)

			var envelope struct {
				Endpoint string `json:"endpoint"`
			}
			if err := json.Unmarshal(params, &envelope); err != nil || envelope.Endpoint == "" {
				return nil, pluginabi.InvalidArgs
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodPost, envelope.Endpoint, bytes.NewReader(params))
			if err != nil {
				return nil, pluginabi.InvalidArgs
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := rh.client.Do(req)
			if err != nil {
				if ctx.Err() == context.DeadlineExceeded {
					return nil, pluginabi.Timeout
				}
				return nil, pluginabi.BackendUnavailable
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, pluginabi.ProtocolError
			}
			if resp.StatusCode >= 500 {
				return nil, pluginabi.BackendUnavailable
			}
			if resp.StatusCode >= 400 {
				return nil, pluginabi.ProtocolError
			}
			return body, pluginabi.OK
		},
		SetLogLevel: func(pluginabi.Handle, string) error { return nil },
	}
}
