package router

import (
	"sync"
	"time"

	"github.com/neo6systems/neo6/internal/config"
)

// breakerState is the classic closed/open/half-open circuit breaker state
// machine, one instance per (protocol, endpoint) pair (§4.5).
type breakerState int

const (
	closed breakerState = iota
	open
	halfOpen
)

// windowSize is the fixed size of the sliding outcome window (§4.5, §8 P5).
// The failure rate threshold, recovery timeout and half-open concurrency
// are operator-configurable via [circuit_breaker] and are not baked in here.
const windowSize = 100

// breakerConfig is the resolved, per-breaker view of [circuit_breaker].
type breakerConfig struct {
	enabled          bool
	failureThreshold float64
	recoveryTimeout  time.Duration
	halfOpenMaxCalls int
}

func newBreakerConfig(cfg config.CircuitBreakerConfig) breakerConfig {
	threshold := float64(cfg.FailureThreshold) / 100
	if threshold <= 0 {
		threshold = 0.5
	}
	recovery := time.Duration(cfg.RecoveryTimeoutS) * time.Second
	if recovery <= 0 {
		recovery = 60 * time.Second
	}
	maxCalls := cfg.HalfOpenMaxCalls
	if maxCalls <= 0 {
		maxCalls = 1
	}
	return breakerConfig{
		enabled:          cfg.Enabled,
		failureThreshold: threshold,
		recoveryTimeout:  recovery,
		halfOpenMaxCalls: maxCalls,
	}
}

// breaker tracks a sliding window of the last windowSize outcomes for one
// (protocol, endpoint) pair and fails fast once the failures in the window
// reach the configured threshold share of windowSize (50 of 100 at the
// default), whether or not the window has filled yet. When cfg
// disables the breaker, Allow always permits the call and Record is a
// no-op — [circuit_breaker].enabled=false must actually turn it off.
type breaker struct {
	cfg breakerConfig

	mu sync.Mutex

	outcomes []bool // true = success
	pos      int
	filled   int

	state          breakerState
	openedAt       time.Time
	probesInFlight int
}

func newBreaker(cfg breakerConfig) *breaker {
	return &breaker{cfg: cfg, outcomes: make([]bool, windowSize)}
}

// Allow reports whether a call may proceed. In the open state it fails fast
// until the configured recovery timeout has elapsed, then permits up to
// halfOpenMaxCalls concurrent probes.
func (b *breaker) Allow() bool {
	if !b.cfg.enabled {
		return true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case closed:
		return true
	case open:
		if time.Since(b.openedAt) < b.cfg.recoveryTimeout {
			return false
		}
		b.state = halfOpen
		b.probesInFlight = 0
		fallthrough
	case halfOpen:
		if b.probesInFlight >= b.cfg.halfOpenMaxCalls {
			return false
		}
		b.probesInFlight++
		return true
	default:
		return true
	}
}

// Record folds one outcome into the window and updates the state machine.
func (b *breaker) Record(success bool) {
	if !b.cfg.enabled {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == halfOpen {
		b.probesInFlight--
		if !success {
			b.state = open
			b.openedAt = time.Now()
			return
		}
		if b.probesInFlight <= 0 {
			b.state = closed
			b.reset()
		}
		return
	}

	b.outcomes[b.pos] = success
	b.pos = (b.pos + 1) % windowSize
	if b.filled < windowSize {
		b.filled++
	}

	if b.filled == 0 {
		return
	}
	failures := 0
	for i := 0; i < b.filled; i++ {
		if !b.outcomes[i] {
			failures++
		}
	}
	if float64(failures) >= b.cfg.failureThreshold*windowSize {
		b.state = open
		b.openedAt = time.Now()
	}
}

func (b *breaker) reset() {
	b.pos = 0
	b.filled = 0
	for i := range b.outcomes {
		b.outcomes[i] = false
	}
}

// breakerRegistry keys breaker instances by "protocol|endpoint".
type breakerRegistry struct {
	cfg breakerConfig

	mu       sync.Mutex
	breakers map[string]*breaker
}

func newBreakerRegistry(cfg breakerConfig) *breakerRegistry {
	return &breakerRegistry{cfg: cfg, breakers: map[string]*breaker{}}
}

func (r *breakerRegistry) get(protocol, endpoint string) *breaker {
	key := protocol + "|" + endpoint
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[key]
	if !ok {
		b = newBreaker(r.cfg)
		r.breakers[key] = b
	}
	return b
}
