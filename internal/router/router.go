// Package router implements the Router (§4.5): resolve descriptor, resolve
// plugin, validate parameters, compose the plugin payload, apply timeout
// and retry/circuit-breaker policy, invoke, and normalize the response.
package router

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/neo6systems/neo6/internal/config"
	"github.com/neo6systems/neo6/internal/loader"
	"github.com/neo6systems/neo6/internal/neo6err"
	"github.com/neo6systems/neo6/internal/observability"
	"github.com/neo6systems/neo6/internal/pluginabi"
	"github.com/neo6systems/neo6/internal/txregistry"
	"github.com/neo6systems/neo6/internal/validate"
)

// Router ties the Transaction Registry and Protocol Loader together behind
// the single public Invoke operation.
type Router struct {
	transactions *txregistry.Registry
	plugins      *loader.Loader
	breakers     *breakerRegistry
	rng          *rand.Rand
}

// New builds a Router over the given registries, applying cb to every
// (protocol, endpoint) circuit breaker it creates.
func New(transactions *txregistry.Registry, plugins *loader.Loader, cb config.CircuitBreakerConfig) *Router {
	return &Router{
		transactions: transactions,
		plugins:      plugins,
		breakers:     newBreakerRegistry(newBreakerConfig(cb)),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Invoke runs the seven-step algorithm from §4.5.
func (r *Router) Invoke(ctx context.Context, req Request) Response {
	start := time.Now()
	traceID := req.TraceID
	if traceID == "" {
		traceID = uuid.NewString()
	}

	// Step 1: resolve descriptor.
	desc, ok := r.transactions.Get(req.TransactionID)
	if !ok {
		return errorResponse(neo6err.New(neo6err.TransactionUnknown, "unknown transaction_id"), traceID, start)
	}

	// Step 2: resolve plugin. Existence is checked here, ahead of parameter
	// validation, so an unavailable protocol reports PROTOCOL_UNAVAILABLE
	// even when the request also carries invalid parameters (§4.5 step
	// ordering). Dispatch still re-resolves at invoke time to observe
	// concurrent unload/reload, but that recheck must never be the first
	// one a caller sees.
	protocol := desc.Protocol
	endpoint := desc.Endpoint
	if !r.plugins.Registry().Registered(protocol) {
		e := neo6err.New(neo6err.ProtocolUnavailable, "protocol not loaded").WithField(protocol)
		observability.RecordInvocation(req.TransactionID, protocol, e.Kind.Code(), time.Since(start))
		return errorResponse(e, traceID, start)
	}

	// Step 3: validate parameters.
	params, verr := validate.Validate(desc, validate.Params(req.Parameters))
	if verr != nil {
		observability.RecordInvocation(req.TransactionID, protocol, "params_invalid", time.Since(start))
		return errorResponse(verr, traceID, start)
	}

	// Step 4: compose payload.
	payload := map[string]any{
		"transaction_id": req.TransactionID,
		"endpoint":       endpoint,
		"parameters":     params,
		"options":        req.Options,
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return errorResponse(neo6err.Wrap(neo6err.Internal, "failed to compose plugin payload", err), traceID, start)
	}

	// Step 5: timeout wrapping.
	timeout := DefaultTimeout
	if req.Options.TimeoutMS > 0 {
		timeout = time.Duration(req.Options.TimeoutMS) * time.Millisecond
		if timeout > MaxTimeout {
			timeout = MaxTimeout
		}
	}

	br := r.breakers.get(protocol, endpoint)

	// Step 6: invoke with retry/circuit-breaker policy.
	respJSON, ek, invokeErr := r.invokeWithPolicy(ctx, br, protocol, req.TransactionID, payloadJSON, timeout, req.Options.RetryCount)
	if invokeErr != nil {
		e := neo6err.As(invokeErr)
		observability.RecordInvocation(req.TransactionID, protocol, e.Kind.Code(), time.Since(start))
		return errorResponse(e, traceID, start)
	}
	if ek != pluginabi.OK {
		e := neo6err.New(ek.ToNeo6(), "plugin reported failure")
		observability.RecordInvocation(req.TransactionID, protocol, e.Kind.Code(), time.Since(start))
		return errorResponse(e, traceID, start)
	}

	// Step 7: normalize success.
	var data map[string]any
	if len(respJSON) > 0 {
		if err := json.Unmarshal(respJSON, &data); err != nil {
			data = map[string]any{"raw": string(respJSON)}
		}
	}
	elapsed := time.Since(start)
	observability.RecordInvocation(req.TransactionID, protocol, "success", elapsed)

	return Response{
		Status:          "success",
		Data:            data,
		ExecutionTimeMS: elapsed.Milliseconds(),
		TraceID:         traceID,
		Metadata: &Metadata{
			Protocol:        protocol,
			Endpoint:        endpoint,
			ExecutionTimeMS: elapsed.Milliseconds(),
		},
	}
}

// invokeWithPolicy applies the circuit breaker and retry/backoff rules
// around loader.Invoke.
func (r *Router) invokeWithPolicy(ctx context.Context, br *breaker, protocol, transactionID string, payload []byte, timeout time.Duration, retryCount int) ([]byte, pluginabi.ErrorKind, error) {
	attempt := 0
	for {
		attempt++
		if !br.Allow() {
			return nil, pluginabi.Internal, neo6err.New(neo6err.CircuitOpen, "circuit breaker open")
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		out, ek, err := r.plugins.Invoke(callCtx, protocol, transactionID, payload)
		cancel()

		if callCtx.Err() == context.DeadlineExceeded && err == nil && ek == pluginabi.OK {
			// plugin didn't respect the deadline but ctx did; treat as timeout.
			ek = pluginabi.Timeout
		}

		success := err == nil && ek == pluginabi.OK
		br.Record(success)

		if success {
			return out, ek, nil
		}

		kind := ek.ToNeo6()
		if err != nil {
			kind = neo6err.As(err).Kind
		}
		if !kind.Retryable() || attempt > retryCount {
			return out, ek, err
		}

		observability.RecordRetry(protocol, kind.Code())
		delay := defaultBackoff.delay(attempt, r.rng)
		log.Debug().Str("protocol", protocol).Int("attempt", attempt).Dur("delay", delay).Msg("router: retrying")

		select {
		case <-ctx.Done():
			return out, ek, neo6err.New(neo6err.Timeout, "context cancelled during retry backoff")
		case <-time.After(delay):
		}
	}
}

func errorResponse(e *neo6err.Error, traceID string, start time.Time) Response {
	return Response{
		Status:          "error",
		ExecutionTimeMS: time.Since(start).Milliseconds(),
		TraceID:         traceID,
		ErrorCode:       e.Kind.Code(),
		Field:           e.Field,
		Message:         e.Message,
	}
}
