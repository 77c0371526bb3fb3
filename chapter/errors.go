package chapter

import "errors"

var (
	// ErrNotFound is returned when a chapter id is not in the graph.
	ErrNotFound = errors.New("chapter not found")

	// ErrDuplicateID is returned when inserting an id that is already taken.
	ErrDuplicateID = errors.New("duplicate chapter id")

	// ErrInvariantViolation is returned when an operation would leave the
	// graph inconsistent: a cycle, a dangling or self relation, or an
	// asymmetric sibling link.
	ErrInvariantViolation = errors.New("chapter graph invariant violation")
)
