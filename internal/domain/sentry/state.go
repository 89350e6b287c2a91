package sentry

import (
	"strconv"
	"time"
)

// ChatID identifies the operator's conversation. Zero means no operator.
type ChatID int64

// IsSet reports whether the chat id refers to a registered operator.
func (c ChatID) IsSet() bool {
	return c != 0
}

// String renders the chat id as Telegram shows it.
func (c ChatID) String() string {
	return strconv.FormatInt(int64(c), 10)
}

// State is a snapshot of the shared detection state.
type State struct {
	// Timestamp is when the state was last changed.
	Timestamp time.Time
	// Source names who made the last change (button, operator, control).
	Source string
	// Operator is the registered operator chat, zero when none.
	Operator ChatID
	// Active indicates whether detection is switched on.
	Active bool
}

// Clone returns a copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}

	cloned := *s

	return &cloned
}

// StatusWord renders the detection flag the way operators see it.
func StatusWord(active bool) string {
	if active {
		return "ON"
	}

	return "OFF"
}
