package protoplugins

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/neo6systems/neo6/internal/pluginabi"
)

type mqHandle struct {
	client *redis.Client
}

type mqConfig struct {
	Addr string `json:"addr"`
	DB   int    `json:"db"`
}

// mqMessage is the request/reply envelope from §4.6, backed concretely by
// Redis lists (BLPOP/RPUSH) standing in for an IBM MQ queue manager, since
// no MQ client library exists anywhere in the retrieval pack.
type mqMessage struct {
	MessageID     string          `json:"message_id"`
	CorrelationID string          `json:"correlation_id"`
	TransactionID string          `json:"transaction_id"`
	Parameters    json.RawMessage `json:"parameters"`
	ReplyTo       string          `json:"reply_to"`
	ExpiryMS      int64           `json:"expiry_ms"`
}

// MQVTable dispatches an invocation by pushing an mqMessage onto
// descriptor.endpoint (the request queue name) and blocking on a
// per-correlation reply queue.
func MQVTable() *pluginabi.VTable {
	return &pluginabi.VTable{
		Version: pluginabi.InterfaceVersion,
		Name:    "mq",
		Create: func(configJSON []byte) (pluginabi.Handle, error) {
			cfg := mqConfig{Addr: "localhost:6379"}
			_ = json.Unmarshal(configJSON, &cfg)
			return &mqHandle{client: redis.NewClient(&redis.Options{Addr: cfg.Addr, DB: cfg.DB})}, nil
		},
		Destroy: func(h pluginabi.Handle) {
			_ = h.(*mqHandle).client.Close()
		},
		Invoke: func(ctx context.Context, h pluginabi.Handle, transactionID string, params []byte) ([]byte, pluginabi.ErrorKind) {
			mh := h.(*mqHandle)

			var envelope struct {
				Endpoint   string          `json:"endpoint"`
				Parameters json.RawMessage `json:"parameters"`
			}
			if err := json.Unmarshal(params, &envelope); err != nil || envelope.Endpoint == "" {
				return nil, pluginabi.InvalidArgs
			}

			correlationID := uuid.NewString()
			replyQueue := "neo6:reply:" + correlationID
			msg := mqMessage{
				MessageID:     uuid.NewString(),
				CorrelationID: correlationID,
				TransactionID: transactionID,
				Parameters:    envelope.Parameters,
				ReplyTo:       replyQueue,
			}
			payload, err := json.Marshal(msg)
			if err != nil {
				return nil, pluginabi.InvalidArgs
			}

			if err := mh.client.RPush(ctx, envelope.Endpoint, payload).Err(); err != nil {
				return nil, pluginabi.BackendUnavailable
			}

			timeout := 30 * time.Second
			if deadline, ok := ctx.Deadline(); ok {
				timeout = time.Until(deadline)
			}
			result, err := mh.client.BLPop(ctx, timeout, replyQueue).Result()
			if err != nil {
				if ctx.Err() == context.DeadlineExceeded {
					return nil, pluginabi.Timeout
				}
				return nil, pluginabi.BackendUnavailable
			}
			if len(result) < 2 {
				return nil, pluginabi.ProtocolError
			}
			return []byte(result[1]), pluginabi.OK
		},
		SetLogLevel: func(pluginabi.Handle, string) error { return nil },
	}
}
