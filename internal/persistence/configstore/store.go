package configstore

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default_config.yml
var defaultConfig []byte

// DefaultConfig returns the shipped config.yml contents.
func DefaultConfig() []byte { return append([]byte(nil), defaultConfig...) }

// Store is a YAML-backed configuration with dotted-path access
// ("spawn_center.x"). Reads see in-memory values; Persist writes them back.
type Store struct {
	path string

	mu   sync.Mutex
	root map[string]any

	// serializes writers of the backing file
	writeMu sync.Mutex
}

// Open loads path, writing the default config first if it does not exist.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("empty config path")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, defaultConfig, 0o644); err != nil {
			return nil, err
		}
	}
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// FromBytes builds a store that is not backed by a file; Persist is a no-op.
func FromBytes(b []byte) (*Store, error) {
	s := &Store{}
	root, err := decode(b)
	if err != nil {
		return nil, err
	}
	s.root = root
	return s, nil
}

func decode(b []byte) (map[string]any, error) {
	root := map[string]any{}
	if err := yaml.Unmarshal(b, &root); err != nil {
		return nil, fmt.Errorf("config.yml: %w", err)
	}
	if root == nil {
		root = map[string]any{}
	}
	return root, nil
}

func (s *Store) Path() string { return s.path }

// Reload re-reads the backing file, discarding unsaved changes.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	root, err := decode(b)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.root = root
	s.mu.Unlock()
	return nil
}

// Persist writes the current values to the backing file atomically.
func (s *Store) Persist() error {
	if s.path == "" {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	b, err := yaml.Marshal(s.root)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) lookup(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cur any = s.root
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func (s *Store) Has(key string) bool {
	_, ok := s.lookup(key)
	return ok
}

// GetStrings returns a YAML sequence as strings; a missing or non-list key
// yields nil.
func (s *Store) GetStrings(key string) []string {
	v, ok := s.lookup(key)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if e == nil {
				continue
			}
			out = append(out, fmt.Sprint(e))
		}
		return out
	}
	return nil
}

func (s *Store) GetString(key, def string) string {
	v, ok := s.lookup(key)
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case string:
		return t
	case map[string]any, []any:
		return def
	default:
		return fmt.Sprint(t)
	}
}

func (s *Store) GetInt(key string, def int) int {
	v, ok := s.lookup(key)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case uint64:
		return int(t)
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return def
}

func (s *Store) GetBool(key string, def bool) bool {
	v, ok := s.lookup(key)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b
		}
	}
	return def
}

// Set stores v at key, creating intermediate sections as needed.
func (s *Store) Set(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	parts := strings.Split(key, ".")
	m := s.root
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[part] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = v
}
