package tn3270

import (
	"context"
	"net"

	"github.com/rs/zerolog/log"

	"github.com/neo6systems/neo6/internal/router"
)

// ConnTracker is implemented by internal/connreg.Tracker; a Listener with a
// nil tracker simply skips connection registration.
type ConnTracker interface {
	Register(protocol string, conn net.Conn) (id string, unregister func())
}

// Listener accepts TN3270 terminal connections and hands each to its own
// session, mirroring the TCP Frontend Listener's accept-loop shape.
type Listener struct {
	router    *router.Router
	templates *TemplateStore
	conns     ConnTracker
}

// New builds a TN3270 Frontend Listener bound to rt and the compiled screen
// set in templates.
func New(rt *router.Router, templates *TemplateStore) *Listener {
	return &Listener{router: rt, templates: templates}
}

// WithConnTracker attaches a connection tracker for the Admin Control
// Socket's GetConnections/KillConnection commands.
func (l *Listener) WithConnTracker(t ConnTracker) *Listener {
	l.conns = t
	return l
}

// Serve accepts connections on ln until ctx is cancelled.
func (l *Listener) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		var unregister func()
		if l.conns != nil {
			_, unregister = l.conns.Register("tn3270", conn)
		}
		sess := newSession(conn, l.router, l.templates)
		go func() {
			if unregister != nil {
				defer unregister()
			}
			if err := sess.run(ctx); err != nil {
				log.Warn().Err(err).Msg("tn3270: session ended with error")
			}
		}()
	}
}
