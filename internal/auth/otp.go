package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// OTPManager owns the challenge lifecycle: generate, expire, compare.
// It mutates only the in-memory user; callers persist through the store
// so concurrent attempts serialize on the identity row.
type OTPManager struct {
	ttl     time.Duration
	lockFor time.Duration
}

func NewOTPManager(ttl, lockFor time.Duration) *OTPManager {
	return &OTPManager{ttl: ttl, lockFor: lockFor}
}

func (m *OTPManager) LockDuration() time.Duration { return m.lockFor }

// Issue replaces the user's challenge with a fresh 6-digit code hashed
// at rest, resets the wrong-attempt counter and clears any lockout. The
// returned plaintext exists only for out-of-band delivery.
func (m *OTPManager) Issue(u *User, now time.Time) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}

	hash, err := HashSecret(code)
	if err != nil {
		return "", err
	}

	expiresAt := now.Add(m.ttl)
	u.Challenge = Challenge{
		OTPHash:   &hash,
		ExpiresAt: &expiresAt,
	}

	return code, nil
}

// Resend behaves as Issue once the current code has lapsed; before that
// it fails with TooSoonError carrying the remaining wait.
func (m *OTPManager) Resend(u *User, now time.Time) (string, error) {
	if u.Challenge.Active(now) {
		return "", TooSoonError{Until: *u.Challenge.ExpiresAt}
	}
	return m.Issue(u, now)
}

// Verify checks the candidate code against the stored challenge.
// Ordering matters: an active lockout fails fast before any comparison,
// and an expired challenge reports Expired even for the right code. The
// caller records the outcome (wrong attempt or cleared challenge).
func (m *OTPManager) Verify(u User, code string, now time.Time) error {
	lock := u.Challenge.Lockout()
	if lock.State(now) == LockLocked {
		return BlockedError{Until: *u.Challenge.BlockExpiresAt}
	}

	if u.Challenge.OTPHash == nil || u.Challenge.ExpiresAt == nil || !now.Before(*u.Challenge.ExpiresAt) {
		return ErrOTPExpired
	}

	if !VerifySecret(code, *u.Challenge.OTPHash) {
		return ErrOTPInvalid
	}

	return nil
}

// Lockout extracts the counter/block pair for the transition function.
func (c Challenge) Lockout() Lockout {
	return Lockout{WrongCount: c.WrongCount, BlockExpiresAt: c.BlockExpiresAt}
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	// Leading zeros are valid codes.
	return fmt.Sprintf("%06d", n.Int64()), nil
}
