package service

import "errors"

var (
	// ErrInvalidAmount is returned for non-positive amounts, amounts above
	// MaxAmount, or amounts with more than two decimal places.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNotCreator is returned when someone other than the group creator
	// resolves a join request.
	ErrNotCreator = errors.New("only the group creator can resolve join requests")
	// ErrAlreadyMember is returned when a member asks to join their own group.
	ErrAlreadyMember = errors.New("already a member")
)
