/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package sources

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyRegistry indicates the source list is empty. Caught at load time.
	ErrEmptyRegistry = errors.New("no sources configured")

	// ErrOutOfRange indicates a selection index outside the registry.
	ErrOutOfRange = errors.New("source index out of range")
)

// Registry holds the ordered source list and the selection cursor.
// The list is read-only after construction; only the cursor moves.
type Registry struct {
	specs  []SourceSpec
	cursor int
}

// NewRegistry builds a registry over a validated source list.
func NewRegistry(specs []SourceSpec) (*Registry, error) {
	if len(specs) == 0 {
		return nil, ErrEmptyRegistry
	}
	return &Registry{specs: specs}, nil
}

// Current returns the source under the cursor.
func (r *Registry) Current() SourceSpec {
	return r.specs[r.cursor]
}

// Advance moves the cursor to the next source, wrapping past the end.
// It never fails: an empty registry cannot be constructed.
func (r *Registry) Advance() SourceSpec {
	r.cursor = (r.cursor + 1) % len(r.specs)
	return r.specs[r.cursor]
}

// Select moves the cursor to the given index.
func (r *Registry) Select(index int) (SourceSpec, error) {
	if index < 0 || index >= len(r.specs) {
		return SourceSpec{}, fmt.Errorf("%w: %d of %d", ErrOutOfRange, index, len(r.specs))
	}
	r.cursor = index
	return r.specs[r.cursor], nil
}

// Index returns the current cursor position.
func (r *Registry) Index() int {
	return r.cursor
}

// Len returns the number of configured sources.
func (r *Registry) Len() int {
	return len(r.specs)
}

// All returns a copy of the source list in registry order.
func (r *Registry) All() []SourceSpec {
	out := make([]SourceSpec, len(r.specs))
	copy(out, r.specs)
	return out
}
