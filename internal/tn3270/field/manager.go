// Package field implements the TN3270 Field Manager (§4.9): per-session
// field state tracking, MDT-flagged input decode, and per-field attribute
// rule enforcement.
package field

import (
	"strings"

	"github.com/neo6systems/neo6/internal/neo6err"
	"github.com/neo6systems/neo6/internal/tn3270/compiler"
)

// State is one field's current value and bookkeeping, keyed by field name
// within a session.
type State struct {
	Value      string
	Cursor     int
	Dirty      bool
	Validation *neo6err.Error
}

// Manager holds a session's compiled screen, its field index and the live
// FieldState map. Accessed only by its owning listener goroutine — no
// cross-session sharing (§5).
type Manager struct {
	Program *compiler.Program
	States  map[string]*State
}

// NewManager builds a Manager over prog with every declared field
// initialized to an empty, clean state.
func NewManager(prog *compiler.Program) *Manager {
	states := make(map[string]*State, len(prog.Fields))
	for _, f := range prog.Fields {
		states[f.Name] = &State{}
	}
	return &Manager{Program: prog, States: states}
}

// RawInput is one field's MDT-flagged raw content decoded from the 3270
// input stream, before rule enforcement.
type RawInput struct {
	FieldName string
	Value     string
}

// Apply decodes a batch of MDT-flagged inputs, applies each field's
// attribute rules, and returns the validated name→value map that the
// TN3270 listener packages as invocation parameters. Rule violations are
// recorded on the field's State (surfaced to the listener as a redrawn
// screen with an error hint) rather than aborting the whole batch.
func (m *Manager) Apply(inputs []RawInput) map[string]string {
	out := make(map[string]string, len(inputs))
	for _, in := range inputs {
		entry, ok := m.Program.FieldByName(in.FieldName)
		if !ok {
			continue
		}
		state := m.States[in.FieldName]
		if state == nil {
			state = &State{}
			m.States[in.FieldName] = state
		}

		if entry.Protected {
			state.Validation = neo6err.New(neo6err.FieldProtectedWrite, "write to protected field discarded").WithField(in.FieldName)
			continue
		}

		value := in.Value
		if entry.Length > 0 && len(value) > entry.Length {
			value = value[:entry.Length]
		}
		if entry.Uppercase {
			value = strings.ToUpper(value)
		}
		if entry.Numeric && !isDigits(value) {
			state.Validation = neo6err.New(neo6err.FieldNonNumeric, "non-numeric input rejected").WithField(in.FieldName)
			continue
		}

		state.Value = value
		state.Dirty = true
		state.Validation = nil
		out[in.FieldName] = value // caller must not log this when entry.Hidden is set
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// DecodeMDT parses a raw 3270 input stream into MDT-flagged field/value
// pairs using fieldOrder (the field index in on-screen order) to resolve
// which bytes belong to which field. The wire-level 3270 datastream
// structure of an inbound AID transmission is delegated to the TN3270
// listener; this function operates on already-segmented per-field byte
// runs paired with their MDT flag.
func DecodeMDT(fieldOrder []string, segments map[string][]byte, mdtFlags map[string]bool) []RawInput {
	inputs := make([]RawInput, 0, len(fieldOrder))
	for _, name := range fieldOrder {
		if !mdtFlags[name] {
			continue
		}
		inputs = append(inputs, RawInput{FieldName: name, Value: string(segments[name])})
	}
	return inputs
}
