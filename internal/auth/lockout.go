package auth

import "time"

// LockState is the wrong-OTP lockout state derived from the counter and
// block timestamp on the challenge.
type LockState int

const (
	// LockOpen: zero or one wrong attempt recorded (or a lapsed block
	// whose stale counter has not been reset yet).
	LockOpen LockState = iota
	// LockWarned: one attempt left before the block.
	LockWarned
	// LockLocked: block active, verification refused without comparing.
	LockLocked
)

// LockEvent drives the transition function.
type LockEvent int

const (
	// EventWrongCode records a failed code comparison.
	EventWrongCode LockEvent = iota
	// EventChallengeIssued marks a fresh code being generated.
	EventChallengeIssued
	// EventVerified marks a successful code comparison.
	EventVerified
)

const maxWrongAttempts = 3

// Lockout is the persisted counter/block pair.
type Lockout struct {
	WrongCount     int
	BlockExpiresAt *time.Time
}

// State derives the current state purely by time comparison. A lapsed
// block reads as Open even while the stale counter still says 3; the
// counter is only reset by the next issued or verified challenge.
func (l Lockout) State(now time.Time) LockState {
	if l.BlockExpiresAt != nil && now.Before(*l.BlockExpiresAt) {
		return LockLocked
	}
	if l.WrongCount == maxWrongAttempts-1 {
		return LockWarned
	}
	return LockOpen
}

// Transition is the single place lockout state changes. It never
// touches storage; callers persist the returned value.
func Transition(l Lockout, event LockEvent, now time.Time, lockFor time.Duration) Lockout {
	switch event {
	case EventChallengeIssued, EventVerified:
		return Lockout{}
	case EventWrongCode:
		if l.State(now) == LockLocked {
			// Counter is capped; attempts while locked consume nothing.
			return l
		}
		if l.WrongCount < maxWrongAttempts-1 {
			return Lockout{WrongCount: l.WrongCount + 1, BlockExpiresAt: l.BlockExpiresAt}
		}
		if l.WrongCount == maxWrongAttempts-1 {
			until := now.Add(lockFor)
			return Lockout{WrongCount: maxWrongAttempts, BlockExpiresAt: &until}
		}
		// Stale counter after a lapsed block: leave it for the next
		// issued challenge to reset.
		return l
	}
	return l
}
