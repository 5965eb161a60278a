package tn3270

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"

	"github.com/neo6systems/neo6/internal/router"
	"github.com/neo6systems/neo6/internal/tn3270/field"
	"github.com/neo6systems/neo6/internal/tn3270/render"
)

// controlIn is a client->proxy control frame. A real 3270 terminal's telnet
// TN3270E "read modified" reply carries the AID plus, per dirty field, its
// on-screen order and raw content; the terminal-side gateway is only
// responsible for framing that reply as JSON, not for deciding which fields
// were modified — MDT decode is the Field Manager's job (§4.9), done in
// run() below from FieldOrder/Segments/MDTFlags.
type controlIn struct {
	Screen        string            `json:"screen"`
	TransactionID string            `json:"transaction_id"`
	AID           string            `json:"aid"`
	FieldOrder    []string          `json:"field_order"`
	Segments      map[string]string `json:"segments"`
	MDTFlags      map[string]bool   `json:"mdt_flags"`
	Vars          map[string]string `json:"vars"`
}

// controlOut is the proxy->client control frame: the rendered 3270
// datastream plus any field validation feedback from the last submission.
type controlOut struct {
	Screen      string            `json:"screen"`
	Datastream  []byte            `json:"datastream"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
	Response    *router.Response  `json:"response,omitempty"`
}

// session owns one terminal connection's compiled screen and field state.
// A session is only ever touched by its own goroutine (§5), so its Manager
// needs no locking of its own.
type session struct {
	conn      net.Conn
	br        *bufio.Reader
	router    *router.Router
	templates *TemplateStore
	renderer  *render.Renderer
	manager   *field.Manager
	screen    string
}

func newSession(conn net.Conn, rt *router.Router, templates *TemplateStore) *session {
	return &session{
		conn:      conn,
		br:        bufio.NewReader(conn),
		router:    rt,
		templates: templates,
		renderer:  &render.Renderer{},
	}
}

func (s *session) run(ctx context.Context) error {
	defer s.conn.Close()
	for {
		in, err := s.readFrame()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		if in.Screen != "" && in.Screen != s.screen {
			prog, ok := s.templates.Get(in.Screen)
			if !ok {
				s.writeFrame(controlOut{Screen: in.Screen, FieldErrors: map[string]string{"screen": "unknown screen"}})
				continue
			}
			s.screen = in.Screen
			s.manager = field.NewManager(prog)
		}
		if s.manager == nil {
			s.writeFrame(controlOut{FieldErrors: map[string]string{"screen": "no screen selected"}})
			continue
		}

		fieldErrors := map[string]string{}
		if len(in.FieldOrder) > 0 {
			segments := make(map[string][]byte, len(in.Segments))
			for name, raw := range in.Segments {
				segments[name] = []byte(raw)
			}
			inputs := field.DecodeMDT(in.FieldOrder, segments, in.MDTFlags)
			values := s.manager.Apply(inputs)
			for name, st := range s.manager.States {
				if st.Validation != nil {
					fieldErrors[name] = st.Validation.Message
				}
			}

			var resp *router.Response
			if in.AID == "ENTER" && in.TransactionID != "" {
				params := make(map[string]any, len(values))
				for k, v := range values {
					params[k] = v
				}
				r := s.router.Invoke(ctx, router.Request{TransactionID: in.TransactionID, Parameters: params})
				resp = &r
			}

			_, stream := s.renderer.Render(s.manager.Program)
			if err := s.writeFrame(controlOut{Screen: s.screen, Datastream: stream, FieldErrors: fieldErrors, Response: resp}); err != nil {
				return err
			}
			continue
		}

		_, stream := s.renderer.Render(s.manager.Program)
		if err := s.writeFrame(controlOut{Screen: s.screen, Datastream: stream, FieldErrors: fieldErrors}); err != nil {
			return err
		}
	}
}

func (s *session) readFrame() (controlIn, error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(s.br, lenBuf); err != nil {
		return controlIn{}, err
	}
	length := binary.BigEndian.Uint32(lenBuf)
	if length > 1<<20 {
		return controlIn{}, fmt.Errorf("tn3270: control frame too large: %d bytes", length)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(s.br, buf); err != nil {
		return controlIn{}, err
	}
	var in controlIn
	if err := json.Unmarshal(buf, &in); err != nil {
		return controlIn{}, fmt.Errorf("tn3270: malformed control frame: %w", err)
	}
	return in, nil
}

func (s *session) writeFrame(out controlOut) error {
	payload, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("tn3270: encode control frame: %w", err)
	}
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(payload)))
	if _, err := s.conn.Write(lenBuf); err != nil {
		return err
	}
	_, err = s.conn.Write(payload)
	return err
}
