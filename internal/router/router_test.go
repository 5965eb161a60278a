package router

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/neo6systems/neo6/internal/config"
	"github.com/neo6systems/neo6/internal/loader"
	"github.com/neo6systems/neo6/internal/pluginabi"
	"github.com/neo6systems/neo6/internal/txregistry"
)

func deterministicRNG() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

// testCBConfig is an enabled breaker configuration matching the defaults
// config.Load applies, used everywhere a test needs a live breaker.
func testCBConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 50,
		RecoveryTimeoutS: 60,
		HalfOpenMaxCalls: 1,
	}
}

func testBreaker() *breaker {
	return newBreaker(newBreakerConfig(testCBConfig()))
}

func newTransactions(t *testing.T, body string) *txregistry.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transactions.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	r := txregistry.New()
	if err := r.Load(path); err != nil {
		t.Fatal(err)
	}
	return r
}

func fakeVTable(name string, invoke func(ctx context.Context, transactionID string, params []byte) ([]byte, pluginabi.ErrorKind)) *pluginabi.VTable {
	return &pluginabi.VTable{
		Version: pluginabi.InterfaceVersion,
		Name:    name,
		Create:  func(configJSON []byte) (pluginabi.Handle, error) { return name, nil },
		Destroy: func(h pluginabi.Handle) {},
		Invoke: func(ctx context.Context, h pluginabi.Handle, transactionID string, params []byte) ([]byte, pluginabi.ErrorKind) {
			return invoke(ctx, transactionID, params)
		},
	}
}

func TestInvokeUnknownTransaction(t *testing.T) {
	txs := newTransactions(t, "transactions: {}\n")
	rt := New(txs, loader.New(), testCBConfig())
	resp := rt.Invoke(context.Background(), Request{TransactionID: "NOPE"})
	if resp.Status != "error" || resp.ErrorCode != "TRANSACTION_UNKNOWN" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestInvokeParamsInvalid(t *testing.T) {
	txs := newTransactions(t, `
transactions:
  GET_BALANCE:
    protocol: rest
    endpoint: /accounts/balance
    parameters:
      - name: account_id
        type: string
        required: true
`)
	rt := New(txs, loader.New(), testCBConfig())
	resp := rt.Invoke(context.Background(), Request{TransactionID: "GET_BALANCE", Parameters: map[string]any{}})
	if resp.Status != "error" || resp.ErrorCode != "PARAMS_INVALID" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestInvokeProtocolUnavailable(t *testing.T) {
	txs := newTransactions(t, `
transactions:
  GET_BALANCE:
    protocol: rest
    endpoint: /accounts/balance
`)
	rt := New(txs, loader.New(), testCBConfig())
	resp := rt.Invoke(context.Background(), Request{TransactionID: "GET_BALANCE"})
	if resp.Status != "error" || resp.ErrorCode != "PROTOCOL_UNAVAILABLE" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestInvokeProtocolUnavailableTakesPrecedenceOverParamsInvalid(t *testing.T) {
	txs := newTransactions(t, `
transactions:
  GET_BALANCE:
    protocol: rest
    endpoint: /accounts/balance
    parameters:
      - name: account_id
        type: string
        required: true
`)
	rt := New(txs, loader.New(), testCBConfig())
	// account_id is required and missing, and the protocol is unloaded:
	// step ordering requires PROTOCOL_UNAVAILABLE, not PARAMS_INVALID.
	resp := rt.Invoke(context.Background(), Request{TransactionID: "GET_BALANCE"})
	if resp.Status != "error" || resp.ErrorCode != "PROTOCOL_UNAVAILABLE" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestInvokeSuccess(t *testing.T) {
	txs := newTransactions(t, `
transactions:
  GET_BALANCE:
    protocol: rest
    endpoint: /accounts/balance
`)
	l := loader.New()
	vt := fakeVTable("rest", func(ctx context.Context, transactionID string, params []byte) ([]byte, pluginabi.ErrorKind) {
		return []byte(`{"balance":100}`), pluginabi.OK
	})
	if err := l.RegisterBuiltin(vt, nil); err != nil {
		t.Fatal(err)
	}
	rt := New(txs, l, testCBConfig())
	resp := rt.Invoke(context.Background(), Request{TransactionID: "GET_BALANCE"})
	if resp.Status != "success" {
		t.Fatalf("expected success, got %+v", resp)
	}
	if resp.Data["balance"] != float64(100) {
		t.Errorf("Data = %v", resp.Data)
	}
	if resp.Metadata == nil || resp.Metadata.Protocol != "rest" {
		t.Errorf("Metadata = %+v", resp.Metadata)
	}
}

func TestInvokeRetriesRetryableFailureThenSucceeds(t *testing.T) {
	txs := newTransactions(t, `
transactions:
  T:
    protocol: flaky
    endpoint: T
`)
	l := loader.New()
	attempts := 0
	vt := fakeVTable("flaky", func(ctx context.Context, transactionID string, params []byte) ([]byte, pluginabi.ErrorKind) {
		attempts++
		if attempts < 3 {
			return nil, pluginabi.BackendUnavailable
		}
		return []byte(`{}`), pluginabi.OK
	})
	if err := l.RegisterBuiltin(vt, nil); err != nil {
		t.Fatal(err)
	}
	rt := New(txs, l, testCBConfig())
	resp := rt.Invoke(context.Background(), Request{TransactionID: "T", Options: Options{RetryCount: 5}})
	if resp.Status != "success" {
		t.Fatalf("expected eventual success, got %+v", resp)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestInvokeDoesNotRetryNonRetryableFailure(t *testing.T) {
	txs := newTransactions(t, `
transactions:
  T:
    protocol: bad
    endpoint: T
`)
	l := loader.New()
	attempts := 0
	vt := fakeVTable("bad", func(ctx context.Context, transactionID string, params []byte) ([]byte, pluginabi.ErrorKind) {
		attempts++
		return nil, pluginabi.ProtocolError
	})
	if err := l.RegisterBuiltin(vt, nil); err != nil {
		t.Fatal(err)
	}
	rt := New(txs, l, testCBConfig())
	resp := rt.Invoke(context.Background(), Request{TransactionID: "T", Options: Options{RetryCount: 5}})
	if resp.Status != "error" {
		t.Fatalf("expected error, got %+v", resp)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (non-retryable kind must not retry)", attempts)
	}
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	b := testBreaker()
	for i := 0; i < windowSize; i++ {
		b.Record(false)
	}
	if b.Allow() {
		t.Fatal("expected breaker to be open after 100% failures")
	}
}

func TestCircuitBreakerOpensBeforeWindowFills(t *testing.T) {
	b := testBreaker()
	// 50 failures and no successes yet: the window isn't full, but 50
	// failures already reach the threshold share of the 100-slot window,
	// so the very next request must be refused without waiting for the
	// other 50 slots.
	for i := 0; i < 50; i++ {
		b.Record(false)
	}
	if b.Allow() {
		t.Fatal("expected breaker to open once 50 of the first 50 outcomes are failures")
	}
}

func TestCircuitBreakerStaysClosedUnderThreshold(t *testing.T) {
	b := testBreaker()
	for i := 0; i < windowSize; i++ {
		b.Record(i%10 != 0) // 10% failure rate, under the 50% threshold
	}
	if !b.Allow() {
		t.Fatal("expected breaker to remain closed under the failure threshold")
	}
}

func TestCircuitBreakerDisabledNeverTrips(t *testing.T) {
	b := newBreaker(newBreakerConfig(config.CircuitBreakerConfig{Enabled: false}))
	for i := 0; i < windowSize; i++ {
		b.Record(false)
	}
	if !b.Allow() {
		t.Fatal("expected a disabled breaker to always allow calls")
	}
}

func TestCircuitBreakerHalfOpenProbe(t *testing.T) {
	b := testBreaker()
	for i := 0; i < windowSize; i++ {
		b.Record(false)
	}
	if b.Allow() {
		t.Fatal("expected breaker open immediately after tripping")
	}
	b.openedAt = time.Now().Add(-b.cfg.recoveryTimeout - time.Second)

	if !b.Allow() {
		t.Fatal("expected exactly one probe to be allowed after recovery timeout")
	}
	if b.Allow() {
		t.Fatal("expected a second concurrent probe to be denied while one is outstanding")
	}
	b.Record(true)
	if !b.Allow() {
		t.Fatal("expected breaker to close after a successful probe")
	}
}

func TestBackoffDelayGrowsAndCaps(t *testing.T) {
	rng := deterministicRNG()
	p := backoffPolicy{Base: 100 * time.Millisecond, Factor: 2, Jitter: 0, Cap: 2 * time.Second}
	d1 := p.delay(1, rng)
	d2 := p.delay(2, rng)
	d3 := p.delay(10, rng)
	if d1 != 100*time.Millisecond {
		t.Errorf("delay(1) = %v, want 100ms", d1)
	}
	if d2 != 200*time.Millisecond {
		t.Errorf("delay(2) = %v, want 200ms", d2)
	}
	if d3 != 2*time.Second {
		t.Errorf("delay(10) = %v, want capped at 2s", d3)
	}
}
