// Package symbols tracks per-run branch/tag state: which symbols exist,
// which have had their creation commit emitted, and which revision last
// advanced them.
package symbols

import (
	"errors"
	"fmt"
	"sort"
)

// ErrSymbolRecreated indicates an attempt to mark a symbol created twice.
// The sequencer must mark each symbol exactly once, at the moment its
// creation commit is emitted.
var ErrSymbolRecreated = errors.New("symbol already marked created")

// entry is the mutable state for one symbol. Entries are freshly
// allocated per symbol and never shared across runs.
type entry struct {
	name         string
	created      bool
	lastRevision string
}

// Table records symbol state for exactly one conversion run. Construct a
// fresh Table at run start; never reuse one across runs.
type Table struct {
	entries map[string]*entry
}

// NewTable creates an empty symbol table.
func NewTable() *Table {
	return &Table{entries: make(map[string]*entry)}
}

// Observe registers a symbol, returning true if it was not known before.
// Observing an already-known symbol is a no-op.
func (t *Table) Observe(name string) bool {
	if _, ok := t.entries[name]; ok {
		return false
	}

	t.entries[name] = &entry{name: name}

	return true
}

// Known reports whether the symbol has been observed.
func (t *Table) Known(name string) bool {
	_, ok := t.entries[name]

	return ok
}

// Created reports whether the symbol's creation commit has been emitted.
func (t *Table) Created(name string) bool {
	e, ok := t.entries[name]

	return ok && e.created
}

// MarkCreated flags the symbol's creation commit as emitted and records
// the revision that advanced it. Marking a symbol twice, or marking an
// unobserved symbol, is a bookkeeping defect.
func (t *Table) MarkCreated(name, revision string) error {
	e, ok := t.entries[name]
	if !ok {
		return fmt.Errorf("mark created: unknown symbol %q", name)
	}

	if e.created {
		return fmt.Errorf("mark created %q: %w", name, ErrSymbolRecreated)
	}

	e.created = true
	e.lastRevision = revision

	return nil
}

// LastRevision returns the revision that last advanced the symbol.
func (t *Table) LastRevision(name string) (string, bool) {
	e, ok := t.entries[name]
	if !ok {
		return "", false
	}

	return e.lastRevision, true
}

// Names returns all observed symbol names in lexical order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
