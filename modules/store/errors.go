package store

import "errors"

var (
	// ErrNotFound is returned when a record does not exist or has expired.
	ErrNotFound = errors.New("record not found")
	// ErrRoomExists is returned when creating a room that is already stored.
	ErrRoomExists = errors.New("room already exists")
)
