package admin

import (
	"context"
	"encoding/json"
	"io"
	"net"

	"github.com/rs/zerolog/log"
)

// Serve accepts admin connections on ln until ctx is cancelled. Each
// connection may issue many commands but, per §4.10, is never used as a
// data-plane channel — one command per frame, one response per frame.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
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
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	for {
		payload, err := readFrame(conn)
		if err != nil {
			if err != io.EOF {
				log.Warn().Err(err).Msg("admin: frame read failed")
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(payload, &cmd); err != nil {
			s.reply(conn, Response{OK: false, Error: "admin: malformed command: " + err.Error()})
			continue
		}

		resp := s.dispatch(ctx, cmd)
		if err := s.reply(conn, resp); err != nil {
			log.Warn().Err(err).Msg("admin: frame write failed")
			return
		}
		if cmd.Command == "Shutdown" {
			return
		}
	}
}

func (s *Server) reply(conn net.Conn, resp Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return writeFrame(conn, payload)
}
