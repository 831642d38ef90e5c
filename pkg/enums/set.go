// Package enums holds the string enums shared by the database, the API and
// the outbox. Every value matches a Postgres enum label or a stored string.
package enums

import (
	"fmt"
	"slices"
)

// set is the closed value list behind one enum type.
type set[T ~string] struct {
	kind   string
	values []T
}

func newSet[T ~string](kind string, values ...T) set[T] {
	return set[T]{kind: kind, values: values}
}

func (s set[T]) has(v T) bool {
	return slices.Contains(s.values, v)
}

func (s set[T]) parse(raw string) (T, error) {
	if v := T(raw); s.has(v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", s.kind, raw)
}

// graph maps a state to the states reachable from it in one step.
type graph[T ~string] map[T][]T

func (g graph[T]) allows(from, to T) bool {
	return slices.Contains(g[from], to)
}

func (g graph[T]) isSink(state T) bool {
	return len(g[state]) == 0
}
