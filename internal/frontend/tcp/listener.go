// Package tcp implements the TCP Frontend Listener (§4.6): binary and text
// framed request/response over raw TCP, protocol chosen by first-byte
// sniff.
package tcp

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"net"

	"github.com/rs/zerolog/log"

	"github.com/neo6systems/neo6/internal/router"
	"github.com/neo6systems/neo6/internal/wire"
)

// ConnTracker is implemented by internal/connreg.Tracker; a Listener with a
// nil tracker simply skips connection registration.
type ConnTracker interface {
	Register(protocol string, conn net.Conn) (id string, unregister func())
}

// Listener accepts client connections and feeds each framed request to the
// Router, encoding the response back in the same mode the request arrived
// in.
type Listener struct {
	router *router.Router
	conns  ConnTracker
}

// New builds a TCP Frontend Listener bound to rt.
func New(rt *router.Router) *Listener {
	return &Listener{router: rt}
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
		go l.handleConn(ctx, conn)
	}
}

func (l *Listener) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	if l.conns != nil {
		_, unregister := l.conns.Register("tcp", conn)
		defer unregister()
	}
	br := bufio.NewReader(conn)

	for {
		binaryMode, err := wire.Sniff(br)
		if err != nil {
			if err != io.EOF {
				log.Warn().Err(err).Msg("tcp: sniff failed")
			}
			return
		}

		var frame wire.Frame
		if binaryMode {
			lenBuf := make([]byte, 4)
			if _, err := io.ReadFull(br, lenBuf); err != nil {
				return
			}
			length := binary.BigEndian.Uint32(lenBuf)
			frame, err = wire.ReadBinary(br, length)
		} else {
			var line string
			line, err = br.ReadString('\n')
			if err != nil && line == "" {
				return
			}
			frame, err = wire.DecodeText(trimNewline(line))
		}
		if err != nil {
			log.Warn().Err(err).Msg("tcp: frame decode failed")
			return
		}

		var body struct {
			Parameters map[string]any `json:"parameters"`
			Options    router.Options `json:"options"`
		}
		_ = json.Unmarshal(frame.Payload, &body)

		resp := l.router.Invoke(ctx, router.Request{
			TransactionID: frame.TransactionID,
			Parameters:    body.Parameters,
			Options:       body.Options,
		})
		respJSON, _ := json.Marshal(resp)

		out := wire.Frame{Version: frame.Version, TransactionID: frame.TransactionID, Payload: respJSON}
		var encoded []byte
		if binaryMode {
			encoded, err = wire.EncodeBinary(out)
		} else {
			encoded = wire.EncodeText(out)
		}
		if err != nil {
			log.Warn().Err(err).Msg("tcp: frame encode failed")
			return
		}
		if _, err := conn.Write(encoded); err != nil {
			return
		}
	}
}

func trimNewline(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\n' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '\r' {
		s = s[:len(s)-1]
	}
	return s
}
