package router

import "time"

// Options carries the caller-tunable per-invocation knobs from §3.
type Options struct {
	TimeoutMS    int64 `json:"timeout_ms,omitempty"`
	RetryCount   int   `json:"retry_count,omitempty"`
	TraceEnabled bool  `json:"trace_enabled,omitempty"`
}

// Request is one Invocation Request (§3).
type Request struct {
	TransactionID string         `json:"transaction_id"`
	Parameters    map[string]any `json:"parameters"`
	Options       Options        `json:"options,omitempty"`
	TraceID       string         `json:"trace_id,omitempty"` // inherited from an inbound header, if present
}

// Metadata is attached to a successful Response (§3).
type Metadata struct {
	Protocol        string `json:"protocol"`
	Endpoint        string `json:"endpoint"`
	ExecutionTimeMS int64  `json:"execution_time_ms"`
}

// Response is one Invocation Response (§3).
type Response struct {
	Status          string         `json:"status"` // "success" | "error"
	Data            map[string]any `json:"data,omitempty"`
	ExecutionTimeMS int64          `json:"execution_time_ms"`
	TraceID         string         `json:"trace_id"`
	Metadata        *Metadata      `json:"metadata,omitempty"`
	ErrorCode       string         `json:"error_code,omitempty"`
	Field           string         `json:"field,omitempty"`
	Message         string         `json:"message,omitempty"`
}

// DefaultTimeout is applied when the caller does not set Options.TimeoutMS.
const DefaultTimeout = 30 * time.Second

// MaxTimeout is the configured cap an option-supplied timeout may not
// exceed.
const MaxTimeout = 5 * time.Minute
