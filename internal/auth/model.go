package auth

import "time"

const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"

	RoleUser  = "user"
	RoleAdmin = "admin"
)

// OTP purposes. The purpose lives in the flow context, not on the
// challenge itself; the same challenge shape serves all three.
const (
	PurposeSignup        = "signup"
	PurposeLogin         = "login"
	PurposePasswordReset = "password-reset"
)

// User is the stored identity. PasswordHash is nil for Google-sourced
// accounts, which are always pre-verified.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash *string
	Provider     string
	Role         string
	IsVerified   bool
	Challenge    Challenge
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Challenge is the single active OTP record embedded on a user. It is
// recreated whole on every issue and nulled on successful verification.
type Challenge struct {
	OTPHash        *string
	ExpiresAt      *time.Time
	WrongCount     int
	BlockExpiresAt *time.Time
}

// Active reports whether an unexpired code is outstanding.
func (c Challenge) Active(now time.Time) bool {
	return c.OTPHash != nil && c.ExpiresAt != nil && now.Before(*c.ExpiresAt)
}

// Profile is the sanitized identity handed to downstream consumers.
// Password hash, challenge and lockout fields never leave this package.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (u User) Profile() Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// UserSummary is the admin listing projection.
type UserSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Provider   string    `json:"authProvider"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
}
