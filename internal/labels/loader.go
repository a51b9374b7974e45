// Package labels loads the index <-> class-name table that translates the
// classifier's output index into a human-readable trash category.
package labels

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"trashd/internal/apperr"
	"trashd/internal/common/fsutil"
)

// Map is an immutable bidirectional label table. Indices are contiguous
// from 0 to Len()-1.
type Map struct {
	names []string
	index map[string]int
}

// Load reads a label file. Two layouts are accepted:
//
//	{"Cardboard": 0, "Glass": 1, ...}   (name -> index, as exported by Keras)
//	["Cardboard", "Glass", ...]          (index order)
//
// Any structural problem is reported as a startup configuration error.
func Load(path string) (*Map, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, apperr.StartupConfig("labels path", err)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, apperr.StartupConfig("labels path", fmt.Errorf("abs path: %w", err))
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		return nil, apperr.StartupConfig("read labels", err)
	}
	m, err := Parse(b)
	if err != nil {
		return nil, apperr.StartupConfig("parse labels "+abs, err)
	}
	return m, nil
}

// Parse decodes and validates label JSON.
func Parse(b []byte) (*Map, error) {
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "" {
		return nil, fmt.Errorf("empty label file")
	}
	if trimmed[0] == '[' {
		var names []string
		if err := json.Unmarshal(b, &names); err != nil {
			return nil, fmt.Errorf("decode label list: %w", err)
		}
		return FromNames(names)
	}
	var byName map[string]int
	if err := json.Unmarshal(b, &byName); err != nil {
		return nil, fmt.Errorf("decode label map: %w", err)
	}
	if len(byName) == 0 {
		return nil, fmt.Errorf("label map has no classes")
	}
	names := make([]string, len(byName))
	seen := make([]bool, len(byName))
	for name, idx := range byName {
		if idx < 0 || idx >= len(byName) {
			return nil, fmt.Errorf("class %q has index %d outside 0..%d", name, idx, len(byName)-1)
		}
		if seen[idx] {
			return nil, fmt.Errorf("index %d assigned to more than one class", idx)
		}
		seen[idx] = true
		names[idx] = name
	}
	return FromNames(names)
}

// FromNames builds a Map where names[i] is the label for index i.
func FromNames(names []string) (*Map, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("label map has no classes")
	}
	m := &Map{names: make([]string, len(names)), index: make(map[string]int, len(names))}
	for i, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return nil, fmt.Errorf("class at index %d has an empty name", i)
		}
		if _, dup := m.index[n]; dup {
			return nil, fmt.Errorf("duplicate class name %q", n)
		}
		m.names[i] = n
		m.index[n] = i
	}
	return m, nil
}

// Len returns the number of classes.
func (m *Map) Len() int { return len(m.names) }

// Name returns the label for index i.
func (m *Map) Name(i int) (string, bool) {
	if i < 0 || i >= len(m.names) {
		return "", false
	}
	return m.names[i], true
}

// Index returns the index for a label. Matching is case-insensitive when no
// exact match exists.
func (m *Map) Index(name string) (int, bool) {
	if i, ok := m.index[name]; ok {
		return i, true
	}
	for i, n := range m.names {
		if strings.EqualFold(n, name) {
			return i, true
		}
	}
	return -1, false
}

// Names returns a copy of the labels in index order.
func (m *Map) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}
