package sentry

import (
	"sync/atomic"
	"time"

	domain "github.com/oshokin/face-sentry/internal/domain/sentry"
)

// change records who touched the state last and when.
type change struct {
	at     time.Time
	source string
}

// SharedState is the detection flag and the operator chat shared by the button,
// the detection loop and the chat channel. Every field is an atomic, so readers
// never observe a torn value.
type SharedState struct {
	// active is the detection flag.
	active atomic.Bool
	// operator is the registered chat id, zero when none.
	operator atomic.Int64
	// last is the most recent change.
	last atomic.Pointer[change]
	// now is the clock, replaced in tests.
	now func() time.Time
}

// NewSharedState returns an inactive state without an operator.
func NewSharedState() *SharedState {
	return &SharedState{
		now: time.Now,
	}
}

// Active reports whether detection is switched on.
func (s *SharedState) Active() bool {
	return s.active.Load()
}

// Operator returns the registered operator chat, zero when none.
func (s *SharedState) Operator() domain.ChatID {
	return domain.ChatID(s.operator.Load())
}

// Toggle flips the detection flag and returns the new value.
func (s *SharedState) Toggle(source string) bool {
	for {
		old := s.active.Load()
		if s.active.CompareAndSwap(old, !old) {
			s.touch(source)

			return !old
		}
	}
}

// SetActive sets the detection flag and reports whether it changed.
func (s *SharedState) SetActive(source string, active bool) bool {
	changed := s.active.Swap(active) != active
	s.touch(source)

	return changed
}

// RegisterOperator records chatID as the operator, replacing any previous one.
// It returns the previous operator.
func (s *SharedState) RegisterOperator(source string, chatID domain.ChatID) domain.ChatID {
	previous := domain.ChatID(s.operator.Swap(int64(chatID)))
	s.touch(source)

	return previous
}

// Snapshot returns a copy of the current state.
func (s *SharedState) Snapshot() *domain.State {
	state := &domain.State{
		Operator: s.Operator(),
		Active:   s.Active(),
	}

	if last := s.last.Load(); last != nil {
		state.Timestamp = last.at
		state.Source = last.source
	}

	return state
}

// Restore loads a persisted operator. The detection flag is not restored:
// the process always starts with detection off.
func (s *SharedState) Restore(state *domain.State) {
	if state == nil {
		return
	}

	s.operator.Store(int64(state.Operator))
	s.last.Store(&change{
		at:     state.Timestamp,
		source: state.Source,
	})
}

func (s *SharedState) touch(source string) {
	s.last.Store(&change{
		at:     s.now(),
		source: source,
	})
}
