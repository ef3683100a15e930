// SPDX-License-Identifier: MIT

// Package state holds per-factor-instance buffers for a sweep scheduler.
//
// Every factor occurrence that needs state across sweeps (a Laplace operating
// point, a previous VMP message) registers one entry and receives an opaque
// uuid handle. The scheduler passes the handle back on each sweep; there is
// no hidden global.
//
// A Table is not safe for concurrent use: the sweep model has exactly one
// writer per handle and the scheduler owns the table.
package state

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// ErrUnknownHandle is returned for a handle that was never registered or
// was deleted.
var ErrUnknownHandle = errors.New("state: unknown handle")

// Table maps factor-instance handles to their state.
type Table[T any] struct {
	entries map[uuid.UUID]T
}

// NewTable returns an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{entries: make(map[uuid.UUID]T)}
}

// Register stores init under a fresh random handle.
func (t *Table[T]) Register(init T) (uuid.UUID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return uuid.Nil, fmt.Errorf("state: new handle: %w", err)
	}
	t.entries[id] = init

	return id, nil
}

// Get returns the state stored under id.
func (t *Table[T]) Get(id uuid.UUID) (T, error) {
	v, ok := t.entries[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("get %s: %w", id, ErrUnknownHandle)
	}
	return v, nil
}

// Put replaces the state stored under a registered id.
func (t *Table[T]) Put(id uuid.UUID, v T) error {
	if _, ok := t.entries[id]; !ok {
		return fmt.Errorf("put %s: %w", id, ErrUnknownHandle)
	}
	t.entries[id] = v
	return nil
}

// Delete removes id; called when the factor-graph instance is destroyed.
func (t *Table[T]) Delete(id uuid.UUID) error {
	if _, ok := t.entries[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, ErrUnknownHandle)
	}
	delete(t.entries, id)
	return nil
}

// Len returns the number of live entries.
func (t *Table[T]) Len() int { return len(t.entries) }

// Handles returns the live handles in a stable (lexicographic) order.
func (t *Table[T]) Handles() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	return ids
}
