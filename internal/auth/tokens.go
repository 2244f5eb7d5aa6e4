package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskbox/internal/config"
)

// TokenKind selects one of the four token classes. Each kind signs with
// its own secret so one class can never be replayed as another.
type TokenKind int

const (
	TokenVerify TokenKind = iota
	TokenResend
	TokenAccess
	TokenRefresh
)

func (k TokenKind) String() string {
	switch k {
	case TokenVerify:
		return "verify"
	case TokenResend:
		return "resend"
	case TokenAccess:
		return "access"
	case TokenRefresh:
		return "refresh"
	}
	return "unknown"
}

// Token is a signed credential plus the lifetime its cookie should get.
type Token struct {
	Value string
	TTL   time.Duration
}

// TokenService issues and verifies the four signed token kinds. It is
// stateless: validity is signature plus expiry, nothing server-side.
type TokenService struct {
	cfg config.TokenConfig
}

func NewTokenService(cfg config.TokenConfig) *TokenService {
	return &TokenService{cfg: cfg}
}

// Issue signs a token of the given kind bound to userID. The email is
// carried only on the verify and resend kinds.
func (s *TokenService) Issue(kind TokenKind, userID, email string) (Token, error) {
	now := time.Now().UTC()
	ttl := s.ttl(kind)

	claims := jwt.MapClaims{
		"userId": userID,
		"typ":    kind.String(),
		"iat":    now.Unix(),
		"exp":    now.Add(ttl).Unix(),
	}
	if kind == TokenVerify || kind == TokenResend {
		claims["email"] = email
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret(kind))
	if err != nil {
		return Token{}, fmt.Errorf("sign %s token: %w", kind, err)
	}

	return Token{Value: signed, TTL: ttl}, nil
}

// Verify checks signature, expiry and kind, returning the carried
// identity reference. Every failure collapses to ErrTokenInvalid.
func (s *TokenService) Verify(kind TokenKind, value string) (string, error) {
	if value == "" {
		return "", ErrTokenInvalid
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(value, claims, func(*jwt.Token) (any, error) {
		return s.secret(kind), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", ErrTokenInvalid
	}

	if typ, _ := claims["typ"].(string); typ != kind.String() {
		return "", ErrTokenInvalid
	}

	userID, _ := claims["userId"].(string)
	if userID == "" {
		return "", ErrTokenInvalid
	}

	return userID, nil
}

func (s *TokenService) ttl(kind TokenKind) time.Duration {
	switch kind {
	case TokenVerify:
		return s.cfg.VerifyTTL
	case TokenResend:
		return s.cfg.ResendTTL
	case TokenAccess:
		return s.cfg.AccessTTL
	case TokenRefresh:
		return s.cfg.RefreshTTL
	}
	return 0
}

func (s *TokenService) secret(kind TokenKind) []byte {
	switch kind {
	case TokenVerify:
		return []byte(s.cfg.VerifySecret)
	case TokenResend:
		return []byte(s.cfg.ResendSecret)
	case TokenAccess:
		return []byte(s.cfg.AccessSecret)
	case TokenRefresh:
		return []byte(s.cfg.RefreshSecret)
	}
	return nil
}
