package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrIdentityCollision is returned when two different records map to the
	// same identity.
	ErrIdentityCollision = errors.New("identity collision")

	// ErrMissingColumn is returned when a CSV input lacks a required column.
	ErrMissingColumn = errors.New("missing column")
)

// CollisionError names the two input rows that share an identity.
type CollisionError struct {
	Identity    string
	FirstIndex  int
	SecondIndex int
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("%v: rows %d and %d both map to %s",
		ErrIdentityCollision, e.FirstIndex+1, e.SecondIndex+1, e.Identity)
}

// Unwrap lets errors.Is match ErrIdentityCollision.
func (e *CollisionError) Unwrap() error { return ErrIdentityCollision }
