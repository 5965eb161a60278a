// Package mq implements the MQ Frontend Listener (§4.6): a request/reply
// consumer over the configured request queue, backed concretely by Redis
// lists standing in for an IBM MQ queue manager.
package mq

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/neo6systems/neo6/internal/router"
)

// message is the wire envelope from §4.6.
type message struct {
	MessageID     string          `json:"message_id"`
	CorrelationID string          `json:"correlation_id"`
	TransactionID string          `json:"transaction_id"`
	Parameters    json.RawMessage `json:"parameters"`
	ReplyTo       string          `json:"reply_to"`
	ExpiryMS      int64           `json:"expiry_ms"`
}

// Listener consumes requests off a Redis-backed queue and publishes
// responses to each message's reply_to queue, preserving correlation_id.
type Listener struct {
	client       *redis.Client
	router       *router.Router
	requestQueue string
}

// New builds an MQ Frontend Listener bound to rt, consuming requestQueue.
func New(client *redis.Client, rt *router.Router, requestQueue string) *Listener {
	return &Listener{client: client, router: rt, requestQueue: requestQueue}
}

// Serve blocks consuming requestQueue until ctx is cancelled.
func (l *Listener) Serve(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		result, err := l.client.BLPop(ctx, 0, l.requestQueue).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn().Err(err).Msg("mq: blpop failed")
			continue
		}
		if len(result) < 2 {
			continue
		}
		go l.handle(ctx, []byte(result[1]))
	}
}

func (l *Listener) handle(ctx context.Context, raw []byte) {
	var msg message
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Warn().Err(err).Msg("mq: malformed message")
		return
	}

	var params map[string]any
	_ = json.Unmarshal(msg.Parameters, &params)

	resp := l.router.Invoke(ctx, router.Request{
		TransactionID: msg.TransactionID,
		Parameters:    params,
	})

	envelope := map[string]any{
		"message_id":     msg.MessageID,
		"correlation_id": msg.CorrelationID,
		"response":       resp,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		log.Error().Err(err).Msg("mq: failed to marshal reply")
		return
	}
	if msg.ReplyTo == "" {
		return
	}
	if err := l.client.RPush(ctx, msg.ReplyTo, payload).Err(); err != nil {
		log.Warn().Err(err).Str("reply_to", msg.ReplyTo).Msg("mq: failed to publish reply")
	}
}
