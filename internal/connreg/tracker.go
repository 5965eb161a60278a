// Package connreg tracks live data-plane connections across the TCP and
// TN3270 Frontend Listeners so the Admin Control Socket can answer
// GetConnections and act on KillConnection (§4.10).
package connreg

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/neo6systems/neo6/internal/admin"
)

type entry struct {
	info admin.ConnectionInfo
	conn net.Conn
}

// Tracker implements admin.ConnectionTracker.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]entry
}

// New builds an empty Tracker.
func New() *Tracker {
	return &Tracker{entries: map[string]entry{}}
}

// Register records a new connection and returns its tracker id; call the
// returned func on connection close to remove it.
func (t *Tracker) Register(protocol string, conn net.Conn) (id string, unregister func()) {
	id = uuid.NewString()
	info := admin.ConnectionInfo{
		ID:          id,
		Protocol:    protocol,
		RemoteAddr:  conn.RemoteAddr().String(),
		ConnectedAt: time.Now(),
	}
	t.mu.Lock()
	t.entries[id] = entry{info: info, conn: conn}
	t.mu.Unlock()

	return id, func() {
		t.mu.Lock()
		delete(t.entries, id)
		t.mu.Unlock()
	}
}

// List returns every tracked connection.
func (t *Tracker) List() []admin.ConnectionInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]admin.ConnectionInfo, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e.info)
	}
	return out
}

// Kill closes the connection with the given id, if tracked.
func (t *Tracker) Kill(id string) bool {
	t.mu.Lock()
	e, ok := t.entries[id]
	t.mu.Unlock()
	if !ok {
		return false
	}
	_ = e.conn.Close()
	return true
}
