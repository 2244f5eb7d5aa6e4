package auth

import (
	"errors"
	"time"
)

var (
	// ErrEmailTaken means the email is already bound to an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserNotFound means no identity exists for the given reference.
	ErrUserNotFound = errors.New("user not found")
	// ErrGoogleAccount means a password flow hit a Google-only identity.
	ErrGoogleAccount = errors.New("email is linked to a google account")
	// ErrLocalAccount means a Google login hit a password identity.
	ErrLocalAccount = errors.New("email is linked to a local account")
	// ErrInvalidCredentials covers a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrOTPExpired means the challenge expired (or was already consumed).
	ErrOTPExpired = errors.New("otp expired")
	// ErrOTPInvalid means the submitted code did not match.
	ErrOTPInvalid = errors.New("invalid otp")
	// ErrTokenInvalid covers a missing, malformed or expired signed token.
	ErrTokenInvalid = errors.New("invalid or expired token")
	// ErrSessionRequired means no refresh credential was presented.
	ErrSessionRequired = errors.New("session required")
	// ErrSessionExpired means the refresh credential failed verification.
	ErrSessionExpired = errors.New("session expired")
	// ErrAssertionInvalid means the Google ID token failed verification.
	ErrAssertionInvalid = errors.New("invalid identity assertion")
	// ErrDeleteSelf guards admins deleting their own account.
	ErrDeleteSelf = errors.New("cannot delete own account")
	// ErrDeleteNonUser guards deleting admin accounts.
	ErrDeleteNonUser = errors.New("only regular users can be deleted")
)

// BlockedError reports an active lockout and when it lifts.
type BlockedError struct {
	Until time.Time
}

func (e BlockedError) Error() string { return "account temporarily blocked" }

func (e BlockedError) Remaining(now time.Time) time.Duration {
	return e.Until.Sub(now)
}

// TooSoonError reports a resend attempt while the current code is still
// valid, carrying the moment a new code may be requested.
type TooSoonError struct {
	Until time.Time
}

func (e TooSoonError) Error() string { return "current otp still valid" }

func (e TooSoonError) Remaining(now time.Time) time.Duration {
	return e.Until.Sub(now)
}
