// Package tn3270 implements the TN3270 Frontend Listener (§4.6): it accepts
// raw TCP connections and drives the Template Compiler (§4.7), Screen
// Renderer (§4.8) and Field Manager (§4.9) pipeline per session.
package tn3270

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/neo6systems/neo6/internal/tn3270/compiler"
)

// TemplateStore compiles every *.t3270 template file under a directory into
// a named, ready-to-render compiler.Program, atomically swappable on
// ReloadAll (POST /admin/reload and the ReloadConfig admin command, since
// screens are as much runtime-reloadable configuration as transaction
// descriptors; ReloadProtocols does not reload templates).
type TemplateStore struct {
	dir string

	mu        sync.RWMutex
	templates map[string]*compiler.Program
}

// NewTemplateStore builds a store rooted at dir. Call Load before use.
func NewTemplateStore(dir string) *TemplateStore {
	return &TemplateStore{dir: dir, templates: map[string]*compiler.Program{}}
}

// Load compiles every template under the store's directory, replacing the
// previous set only on full success so a bad template never takes down an
// otherwise-healthy screen set.
func (s *TemplateStore) Load() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("tn3270: read template dir: %w", err)
	}

	compiled := map[string]*compiler.Program{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".t3270") {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("tn3270: read %s: %w", path, err)
		}
		prog, err := compiler.Compile(string(src), nil)
		if err != nil {
			return fmt.Errorf("tn3270: compile %s: %w", path, err)
		}
		name := strings.TrimSuffix(entry.Name(), ".t3270")
		compiled[name] = prog
	}

	s.mu.Lock()
	s.templates = compiled
	s.mu.Unlock()
	return nil
}

// Reload is an alias for Load, named to match the Loader/Registry
// ReloadAll/Reload convention used elsewhere in the proxy.
func (s *TemplateStore) Reload() error { return s.Load() }

// Get looks up a compiled screen by name.
func (s *TemplateStore) Get(name string) (*compiler.Program, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prog, ok := s.templates[name]
	return prog, ok
}

// Names lists every loaded screen name.
func (s *TemplateStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	return names
}
