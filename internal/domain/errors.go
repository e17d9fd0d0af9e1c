package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrEmptyTitle is returned when a work item has no title to derive an identity from.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrEmptyIdentity is returned when a work item has no identity.
	ErrEmptyIdentity = errors.New("identity cannot be empty")

	// ErrInvalidTransition is returned when a status change is not allowed
	// from the item's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnknownField is returned when a result is attached for a field the
	// item does not require.
	ErrUnknownField = errors.New("field is not required by this item")

	// ErrIncomplete is returned when an item is asked for its results before
	// every required field has resolved.
	ErrIncomplete = errors.New("item has unresolved fields")
)
