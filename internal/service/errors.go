package service

import "errors"

var (
	// ErrInvalidTransition is returned when a status change is not permitted
	// from the entity's current state. The entity is left unchanged.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidState is returned when an operation's preconditions on entity
	// timestamps or fields do not hold.
	ErrInvalidState = errors.New("invalid state")

	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")
)
