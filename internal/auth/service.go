package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"taskbox/internal/mail"
	"taskbox/internal/observability"
)

// Store is the persistence surface the orchestrator needs. Implemented
// by *Repository; faked in tests.
type Store interface {
	Create(ctx context.Context, u User) error
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	SetChallenge(ctx context.Context, userID, otpHash string, expiresAt, now time.Time) error
	RecordWrongAttempt(ctx context.Context, userID string, now time.Time, lockFor time.Duration) (Lockout, error)
	ClearChallenge(ctx context.Context, userID string, now time.Time) error
	ResetPassword(ctx context.Context, userID, passwordHash string, now time.Time) error
	UpdateName(ctx context.Context, userID, name string, now time.Time) error
	List(ctx context.Context, search string, page, limit int) ([]UserSummary, int, error)
	Delete(ctx context.Context, userID string) error
}

// ExternalIdentity is an identity asserted by a third party.
type ExternalIdentity struct {
	Email string
	Name  string
}

// IdentityVerifier validates a third-party identity assertion (a Google
// ID token) out of band of the OTP machinery.
type IdentityVerifier interface {
	Verify(ctx context.Context, assertion string) (ExternalIdentity, error)
}

// ChallengePair is issued when an OTP journey starts.
type ChallengePair struct {
	Verify Token
	Resend Token
}

// SessionPair is issued once an identity is fully authenticated.
type SessionPair struct {
	Access  Token
	Refresh Token
}

// Service composes the hasher, token service, OTP manager and lockout
// machine into the user-facing auth operations.
type Service struct {
	store    Store
	tokens   *TokenService
	otp      *OTPManager
	notifier mail.Notifier
	google   IdentityVerifier
	logger   *observability.Logger
	now      func() time.Time
}

func NewService(store Store, tokens *TokenService, otp *OTPManager, notifier mail.Notifier, google IdentityVerifier, logger *observability.Logger) *Service {
	return &Service{
		store:    store,
		tokens:   tokens,
		otp:      otp,
		notifier: notifier,
		google:   google,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a local unverified identity, issues its first OTP
// challenge and the verify/resend-gate tokens. The caller is not
// authenticated yet.
func (s *Service) Register(ctx context.Context, name, email, password string) (ChallengePair, error) {
	now := s.now()

	passwordHash, err := HashSecret(password)
	if err != nil {
		return ChallengePair{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return ChallengePair{}, fmt.Errorf("generate user id: %w", err)
	}

	user := User{
		ID:           id.String(),
		Name:         name,
		Email:        email,
		PasswordHash: &passwordHash,
		Provider:     ProviderLocal,
		Role:         RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	code, err := s.otp.Issue(&user, now)
	if err != nil {
		return ChallengePair{}, err
	}

	if err := s.store.Create(ctx, user); err != nil {
		return ChallengePair{}, err
	}

	pair, err := s.challengeTokens(user)
	if err != nil {
		return ChallengePair{}, err
	}

	// Awaited: a signup whose code never arrives is a dead end.
	if err := s.notifier.SendOTP(ctx, user.Email, code); err != nil {
		return ChallengePair{}, fmt.Errorf("send otp mail: %w", err)
	}

	return pair, nil
}

// Login performs the password step. A correct password never
// authenticates by itself; it always re-challenges with a fresh OTP.
func (s *Service) Login(ctx context.Context, email, password string) (ChallengePair, error) {
	now := s.now()

	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return ChallengePair{}, err
	}
	if user.PasswordHash == nil && user.Provider == ProviderGoogle {
		return ChallengePair{}, ErrGoogleAccount
	}

	if lock := user.Challenge.Lockout(); lock.State(now) == LockLocked {
		return ChallengePair{}, BlockedError{Until: *user.Challenge.BlockExpiresAt}
	}

	if user.PasswordHash == nil || !VerifySecret(password, *user.PasswordHash) {
		return ChallengePair{}, ErrInvalidCredentials
	}

	code, err := s.otp.Issue(&user, now)
	if err != nil {
		return ChallengePair{}, err
	}

	pair, err := s.challengeTokens(user)
	if err != nil {
		return ChallengePair{}, err
	}

	if err := s.notifier.SendOTP(ctx, user.Email, code); err != nil {
		return ChallengePair{}, fmt.Errorf("send otp mail: %w", err)
	}

	if err := s.store.SetChallenge(ctx, user.ID, *user.Challenge.OTPHash, *user.Challenge.ExpiresAt, now); err != nil {
		return ChallengePair{}, err
	}

	return pair, nil
}

// GoogleLogin verifies the ID-token assertion, lazily creates a
// pre-verified Google identity on first sight and authenticates
// directly. This path never touches the OTP or lockout machinery.
func (s *Service) GoogleLogin(ctx context.Context, assertion string) (SessionPair, error) {
	identity, err := s.google.Verify(ctx, assertion)
	if err != nil {
		return SessionPair{}, fmt.Errorf("%w: %w", ErrAssertionInvalid, err)
	}

	user, err := s.store.GetByEmail(ctx, identity.Email)
	switch {
	case err == nil:
		if user.Provider == ProviderLocal {
			return SessionPair{}, ErrLocalAccount
		}
	case errors.Is(err, ErrUserNotFound):
		now := s.now()
		id, idErr := uuid.NewV7()
		if idErr != nil {
			return SessionPair{}, fmt.Errorf("generate user id: %w", idErr)
		}
		user = User{
			ID:         id.String(),
			Name:       identity.Name,
			Email:      identity.Email,
			Provider:   ProviderGoogle,
			Role:       RoleUser,
			IsVerified: true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.store.Create(ctx, user); err != nil {
			return SessionPair{}, err
		}
	default:
		return SessionPair{}, err
	}

	return s.sessionTokens(user)
}

// VerifyAccount consumes the verify token and runs the challenge. For a
// login journey a successful match also authenticates; for signup the
// caller still has to log in.
func (s *Service) VerifyAccount(ctx context.Context, verifyToken, code, purpose string) (*SessionPair, error) {
	now := s.now()

	userID, err := s.tokens.Verify(TokenVerify, verifyToken)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == nil && user.Provider == ProviderGoogle {
		return nil, ErrGoogleAccount
	}

	if err := s.otp.Verify(user, code, now); err != nil {
		if errors.Is(err, ErrOTPInvalid) {
			if _, recErr := s.store.RecordWrongAttempt(ctx, user.ID, now, s.otp.LockDuration()); recErr != nil {
				return nil, recErr
			}
		}
		return nil, err
	}

	if err := s.store.ClearChallenge(ctx, user.ID, now); err != nil {
		return nil, err
	}

	if purpose == PurposeLogin {
		pair, err := s.sessionTokens(user)
		if err != nil {
			return nil, err
		}
		return &pair, nil
	}

	return nil, nil
}

// ResendOTP consumes the resend-gate token and, once the previous code
// has lapsed, issues a replacement. Only the verify token is reissued;
// the resend gate keeps its original lifetime.
func (s *Service) ResendOTP(ctx context.Context, resendToken string) (Token, error) {
	now := s.now()

	userID, err := s.tokens.Verify(TokenResend, resendToken)
	if err != nil {
		return Token{}, err
	}

	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return Token{}, err
	}
	if user.PasswordHash == nil && user.Provider == ProviderGoogle {
		return Token{}, ErrGoogleAccount
	}

	if lock := user.Challenge.Lockout(); lock.State(now) == LockLocked {
		return Token{}, BlockedError{Until: *user.Challenge.BlockExpiresAt}
	}

	code, err := s.otp.Resend(&user, now)
	if err != nil {
		return Token{}, err
	}

	if err := s.store.SetChallenge(ctx, user.ID, *user.Challenge.OTPHash, *user.Challenge.ExpiresAt, now); err != nil {
		return Token{}, err
	}

	verify, err := s.tokens.Issue(TokenVerify, user.ID, user.Email)
	if err != nil {
		return Token{}, err
	}

	// Fire and forget: the challenge is persisted, the caller can hit
	// resend again if this delivery fails.
	go func(email, code string) {
		if err := s.notifier.SendOTP(context.WithoutCancel(ctx), email, code); err != nil {
			sentry.CaptureException(err)
			s.logger.Error("resend_otp_mail_failed", map[string]any{"error": err.Error()})
		}
	}(user.Email, code)

	return verify, nil
}

// OTPExpiry reports when the current challenge lapses, for countdown UI.
func (s *Service) OTPExpiry(ctx context.Context, resendToken string) (*time.Time, error) {
	now := s.now()

	userID, err := s.tokens.Verify(TokenResend, resendToken)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == nil && user.Provider == ProviderGoogle {
		return nil, ErrGoogleAccount
	}

	if lock := user.Challenge.Lockout(); lock.State(now) == LockLocked {
		return nil, BlockedError{Until: *user.Challenge.BlockExpiresAt}
	}

	if user.Challenge.OTPHash != nil && user.Challenge.ExpiresAt != nil {
		return user.Challenge.ExpiresAt, nil
	}

	return nil, nil
}

// ForgotPassword starts a password-reset journey with the same token
// issuance as the login step.
func (s *Service) ForgotPassword(ctx context.Context, email string) (ChallengePair, error) {
	now := s.now()

	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return ChallengePair{}, err
	}
	if user.PasswordHash == nil && user.Provider == ProviderGoogle {
		return ChallengePair{}, ErrGoogleAccount
	}

	if lock := user.Challenge.Lockout(); lock.State(now) == LockLocked {
		return ChallengePair{}, BlockedError{Until: *user.Challenge.BlockExpiresAt}
	}

	code, err := s.otp.Issue(&user, now)
	if err != nil {
		return ChallengePair{}, err
	}

	pair, err := s.challengeTokens(user)
	if err != nil {
		return ChallengePair{}, err
	}

	if err := s.notifier.SendOTP(ctx, user.Email, code); err != nil {
		return ChallengePair{}, fmt.Errorf("send otp mail: %w", err)
	}

	if err := s.store.SetChallenge(ctx, user.ID, *user.Challenge.OTPHash, *user.Challenge.ExpiresAt, now); err != nil {
		return ChallengePair{}, err
	}

	return pair, nil
}

// ResetPassword consumes the verify token, runs the challenge and on
// success replaces the password hash. The caller must log in afterward;
// no session is issued here.
func (s *Service) ResetPassword(ctx context.Context, verifyToken, code, password string) error {
	now := s.now()

	userID, err := s.tokens.Verify(TokenVerify, verifyToken)
	if err != nil {
		return err
	}

	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.PasswordHash == nil && user.Provider == ProviderGoogle {
		return ErrGoogleAccount
	}

	if err := s.otp.Verify(user, code, now); err != nil {
		if errors.Is(err, ErrOTPInvalid) {
			if _, recErr := s.store.RecordWrongAttempt(ctx, user.ID, now, s.otp.LockDuration()); recErr != nil {
				return recErr
			}
		}
		return err
	}

	passwordHash, err := HashSecret(password)
	if err != nil {
		return err
	}

	return s.store.ResetPassword(ctx, user.ID, passwordHash, now)
}

// Authenticate maps inbound cookie credentials to an identity,
// silently minting a new access token from a valid refresh token. The
// returned token is non-nil only when renewal happened.
func (s *Service) Authenticate(ctx context.Context, access, refresh string) (Profile, *Token, error) {
	if refresh == "" {
		return Profile{}, nil, ErrSessionRequired
	}

	var renewed *Token
	userID, err := s.tokens.Verify(TokenAccess, access)
	if err != nil {
		userID, err = s.tokens.Verify(TokenRefresh, refresh)
		if err != nil {
			return Profile{}, nil, ErrSessionExpired
		}
		token, err := s.tokens.Issue(TokenAccess, userID, "")
		if err != nil {
			return Profile{}, nil, err
		}
		renewed = &token
	}

	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return Profile{}, nil, err
	}

	return user.Profile(), renewed, nil
}

func (s *Service) UpdateName(ctx context.Context, userID, name string) error {
	return s.store.UpdateName(ctx, userID, name, s.now())
}

func (s *Service) ListUsers(ctx context.Context, search string, page, limit int) ([]UserSummary, int, error) {
	return s.store.List(ctx, search, page, limit)
}

// DeleteUser removes a regular user account. Admins cannot delete
// themselves or other admins.
func (s *Service) DeleteUser(ctx context.Context, actor Profile, userID string) error {
	target, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if target.Email == actor.Email {
		return ErrDeleteSelf
	}
	if target.Role != RoleUser {
		return ErrDeleteNonUser
	}
	return s.store.Delete(ctx, userID)
}

func (s *Service) challengeTokens(user User) (ChallengePair, error) {
	verify, err := s.tokens.Issue(TokenVerify, user.ID, user.Email)
	if err != nil {
		return ChallengePair{}, err
	}
	resend, err := s.tokens.Issue(TokenResend, user.ID, user.Email)
	if err != nil {
		return ChallengePair{}, err
	}
	return ChallengePair{Verify: verify, Resend: resend}, nil
}

func (s *Service) sessionTokens(user User) (SessionPair, error) {
	access, err := s.tokens.Issue(TokenAccess, user.ID, "")
	if err != nil {
		return SessionPair{}, err
	}
	refresh, err := s.tokens.Issue(TokenRefresh, user.ID, "")
	if err != nil {
		return SessionPair{}, err
	}
	return SessionPair{Access: access, Refresh: refresh}, nil
}
