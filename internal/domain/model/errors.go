package model

import "errors"

var (
	// ErrNotFound is returned when an entity is required to exist and does not.
	ErrNotFound = errors.New("entity was not found")

	// ErrValidation is returned when the caller supplied malformed or missing input.
	ErrValidation = errors.New("invalid input")

	// ErrConflict is returned when a mutation would violate a uniqueness rule,
	// such as a verifier rating the same skill twice.
	ErrConflict = errors.New("conflicting state")
)
