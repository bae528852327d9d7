package services

import "errors"

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrNoRowsAffected is returned when an update or delete touched nothing,
	// which the store also reports when row-level permissions deny the change.
	ErrNoRowsAffected = errors.New("no rows affected (record missing or permission denied)")

	// ErrUnknownMunicipality is returned when a form references a
	// municipality that is not in the lookup table.
	ErrUnknownMunicipality = errors.New("unknown municipality")
)
