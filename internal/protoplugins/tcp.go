package protoplugins

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"net"
	"time"

	"github.com/neo6systems/neo6/internal/pluginabi"
	"github.com/neo6systems/neo6/internal/wire"
)

type tcpHandle struct {
	dialTimeout time.Duration
}

// TCPVTable dispatches an invocation to a raw TCP backend at
// descriptor.endpoint (host:port) using the same binary framing the TCP
// Frontend Listener speaks to inbound clients, so a downstream that also
// implements this framing can be exercised end to end without a mock.
func TCPVTable() *pluginabi.VTable {
	return &pluginabi.VTable{
		Version: pluginabi.InterfaceVersion,
		Name:    "tcp",
		Create: func(configJSON []byte) (pluginabi.Handle, error) {
			h := &tcpHandle{dialTimeout: 5 * time.Second}
			var cfg struct {
				DialTimeoutMS int64 `json:"dial_timeout_ms"`
			}
			if len(configJSON) > 0 && json.Unmarshal(configJSON, &cfg) == nil && cfg.DialTimeoutMS > 0 {
				h.dialTimeout = time.Duration(cfg.DialTimeoutMS) * time.Millisecond
			}
			return h, nil
		},
		Destroy: func(pluginabi.Handle) {},
		Invoke: func(ctx context.Context, h pluginabi.Handle, transactionID string, params []byte) ([]byte, pluginabi.ErrorKind) {
			th := h.(*tcpHandle)

			var envelope struct {
				Endpoint string `json:"endpoint"`
			}
			if err := json.Unmarshal(params, &envelope); err != nil || envelope.Endpoint == "" {
				return nil, pluginabi.InvalidArgs
			}

			d := net.Dialer{Timeout: th.dialTimeout}
			conn, err := d.DialContext(ctx, "tcp", envelope.Endpoint)
			if err != nil {
				return nil, pluginabi.BackendUnavailable
			}
			defer conn.Close()

			if deadline, ok := ctx.Deadline(); ok {
				_ = conn.SetDeadline(deadline)
			}

			frame, err := wire.EncodeBinary(wire.Frame{Version: wire.BinaryVersion, TransactionID: transactionID, Payload: params})
			if err != nil {
				return nil, pluginabi.InvalidArgs
			}
			if _, err := conn.Write(frame); err != nil {
				return nil, pluginabi.BackendUnavailable
			}

			lenBuf := make([]byte, 4)
			if _, err := io.ReadFull(conn, lenBuf); err != nil {
				if ctx.Err() == context.DeadlineExceeded {
					return nil, pluginabi.Timeout
				}
				return nil, pluginabi.BackendUnavailable
			}
			length := binary.BigEndian.Uint32(lenBuf)
			resp, err := wire.ReadBinary(conn, length)
			if err != nil {
				return nil, pluginabi.ProtocolError
			}
			return resp.Payload, pluginabi.OK
		},
		SetLogLevel: func(pluginabi.Handle, string) error { return nil },
	}
}
