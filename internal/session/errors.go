package session

import (
	"errors"
	"fmt"
)

var (
	ErrNoActiveRoom   = errors.New("no active room")
	ErrAlreadyStarted = errors.New("session already started")
	ErrEmptyUser      = errors.New("user is required")
	ErrEmptyRoom      = errors.New("room is required")
)

// HistoryFetchError is a failed backfill for one room and epoch. It is
// surfaced as a notice and never stops live processing.
type HistoryFetchError struct {
	Room  string
	Epoch uint64
	Err   error
}

func (e *HistoryFetchError) Error() string {
	return fmt.Sprintf("history for #%s (epoch %d): %v", e.Room, e.Epoch, e.Err)
}

func (e *HistoryFetchError) Unwrap() error {
	return e.Err
}
