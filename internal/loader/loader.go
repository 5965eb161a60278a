// Package loader implements the Protocol Loader (§4.2): it scans a shared
// library directory, verifies and registers plugins behind the
// pluginabi.VTable contract, and additionally pre-registers the proxy's own
// built-in protocol implementations under the identical contract so the
// proxy is fully functional with zero .so files present.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/neo6systems/neo6/internal/neo6err"
	"github.com/neo6systems/neo6/internal/pluginabi"
)

// DefaultDrainTimeout bounds how long Unload waits for in-flight
// invocations before forcing teardown (§4.2).
const DefaultDrainTimeout = 30 * time.Second

// Loader owns the currently active Registry and every state transition
// applied to it. It is safe for concurrent use.
type Loader struct {
	current      atomic.Pointer[Registry]
	drainTimeout time.Duration
	mu           sync.Mutex // serializes LoadAll/Unload/Reload against each other
}

// New returns a Loader with an empty registry installed.
func New() *Loader {
	l := &Loader{drainTimeout: DefaultDrainTimeout}
	l.current.Store(newRegistry())
	return l
}

// Registry returns the currently active, immutable registry snapshot.
func (l *Loader) Registry() *Registry {
	return l.current.Load()
}

// RegisterBuiltin installs a native Go protocol implementation directly,
// bypassing plugin.Open — this is how rest/tcp/mq/tn3270/lu62 ship inside
// the binary while still obeying the exact same VTable contract that a
// dynamically loaded .so would.
func (l *Loader) RegisterBuiltin(vt *pluginabi.VTable, configJSON []byte) error {
	if vt.Version != pluginabi.InterfaceVersion {
		return fmt.Errorf("loader: builtin %q: interface version mismatch: got %d want %d",
			vt.Name, vt.Version, pluginabi.InterfaceVersion)
	}
	handle, err := vt.Create(configJSON)
	if err != nil || handle == nil {
		return fmt.Errorf("loader: builtin %q: create failed: %w", vt.Name, err)
	}
	e := &entry{vtable: vt, handle: handle, state: stateActive}

	l.mu.Lock()
	defer l.mu.Unlock()
	next := cloneRegistry(l.current.Load())
	next.entries[vt.Name] = e
	l.current.Store(next)
	return nil
}

// LoadAll scans libraryPath for shared objects, resolves and verifies each
// one's GetProtocolInterface symbol, and merges successfully loaded plugins
// into a freshly built registry that atomically replaces the current one.
// Partial failure is tolerated: a bad plugin is skipped and logged, the
// others still load (§4.2).
func (l *Loader) LoadAll(libraryPath string, configs map[string][]byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := cloneRegistry(l.current.Load())

	if libraryPath == "" {
		l.current.Store(next)
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(libraryPath, "*.so"))
	if err != nil {
		return fmt.Errorf("loader: scanning %s: %w", libraryPath, err)
	}
	for _, path := range matches {
		vt, err := openPlugin(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("loader: skipping invalid plugin")
			continue
		}
		cfg := configs[vt.Name]
		handle, err := vt.Create(cfg)
		if err != nil || handle == nil {
			log.Warn().Err(err).Str("plugin", vt.Name).Msg("loader: create failed, skipping")
			continue
		}
		next.entries[vt.Name] = &entry{vtable: vt, handle: handle, state: stateActive}
	}
	l.current.Store(next)
	return nil
}

func openPlugin(path string) (*pluginabi.VTable, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	sym, err := p.Lookup(pluginabi.DiscoverySymbol)
	if err != nil {
		return nil, neo6err.New(neo6err.PluginInvalid, "missing GetProtocolInterface symbol")
	}
	fn, ok := sym.(func() *pluginabi.VTable)
	if !ok {
		return nil, neo6err.New(neo6err.PluginInvalid, "GetProtocolInterface has the wrong signature")
	}
	vt := fn()
	if vt == nil || vt.Version != pluginabi.InterfaceVersion {
		return nil, neo6err.New(neo6err.PluginInvalid, "interface version mismatch")
	}
	return vt, nil
}

func cloneRegistry(r *Registry) *Registry {
	next := newRegistry()
	if r == nil {
		return next
	}
	for k, v := range r.entries {
		next.entries[k] = v
	}
	return next
}

// Unload drains name: it is removed from a freshly built registry
// immediately (so no new invocation resolves it), then waits for
// outstanding invocations against the old entry to finish before calling
// Destroy, up to the configured drain timeout.
func (l *Loader) Unload(name string) error {
	l.mu.Lock()
	cur := l.current.Load()
	e, ok := cur.lookup(name)
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("loader: unknown protocol %q", name)
	}
	next := cloneRegistry(cur)
	delete(next.entries, name)
	l.current.Store(next)
	l.mu.Unlock()

	e.mu.Lock()
	e.state = stateDraining
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(l.drainTimeout):
		log.Warn().Str("protocol", name).Msg("loader: drain timeout exceeded, forcing teardown")
	}

	e.mu.Lock()
	e.state = stateDestroyed
	e.mu.Unlock()
	e.vtable.Destroy(e.handle)
	return nil
}

// Reload is an atomic full-registry rebuild: LoadAll already implements
// this by construction (a new Registry is built before being swapped in),
// so Reload is a thin, explicitly named alias kept for symmetry with the
// spec's §4.2 vocabulary and for the admin socket's ReloadProtocols command.
func (l *Loader) Reload(libraryPath string, configs map[string][]byte) error {
	return l.LoadAll(libraryPath, configs)
}

// Invoke dispatches transactionID/params to the plugin named protocol. A
// plugin panic is recovered and converted to INTERNAL rather than crashing
// the process — a deliberate Go-idiomatic hardening over the original
// "plugins are trusted code" stance, recorded as a REDESIGN FLAG.
func (l *Loader) Invoke(ctx context.Context, protocol, transactionID string, params []byte) (out []byte, kind pluginabi.ErrorKind, err error) {
	reg := l.current.Load()
	e, ok := reg.lookup(protocol)
	if !ok {
		return nil, pluginabi.Internal, neo6err.New(neo6err.ProtocolUnavailable, "protocol not loaded").WithField(protocol)
	}

	e.mu.Lock()
	if e.state == stateDraining || e.state == stateDestroyed {
		e.mu.Unlock()
		return nil, pluginabi.Internal, neo6err.New(neo6err.ProtocolUnavailable, "protocol is draining").WithField(protocol)
	}
	e.inFlight.Add(1)
	e.mu.Unlock()
	defer e.inFlight.Done()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("recovered", r).Str("protocol", protocol).Msg("loader: plugin panicked during invoke")
			out, kind, err = nil, pluginabi.Internal, neo6err.Wrap(neo6err.Internal, "plugin panicked", fmt.Errorf("%v", r))
		}
	}()

	res, ek := e.vtable.Invoke(ctx, e.handle, transactionID, params)
	return res, ek, nil
}
