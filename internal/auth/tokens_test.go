package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskbox/internal/config"
)

func testTokenConfig() config.TokenConfig {
	return config.TokenConfig{
		VerifySecret:  "verify-secret",
		VerifyTTL:     7 * time.Minute,
		ResendSecret:  "resend-secret",
		ResendTTL:     22 * time.Minute,
		AccessSecret:  "access-secret",
		AccessTTL:     15 * time.Minute,
		RefreshSecret: "refresh-secret",
		RefreshTTL:    360 * time.Hour,
	}
}

func TestTokenRoundTripAllKinds(t *testing.T) {
	service := NewTokenService(testTokenConfig())

	for _, kind := range []TokenKind{TokenVerify, TokenResend, TokenAccess, TokenRefresh} {
		t.Run(kind.String(), func(t *testing.T) {
			token, err := service.Issue(kind, "user-1", "a@b.com")
			require.NoError(t, err)
			assert.NotEmpty(t, token.Value)
			assert.Greater(t, token.TTL, time.Duration(0))

			userID, err := service.Verify(kind, token.Value)
			require.NoError(t, err)
			assert.Equal(t, "user-1", userID)
		})
	}
}

func TestTokenKindsDoNotCrossVerify(t *testing.T) {
	service := NewTokenService(testTokenConfig())
	kinds := []TokenKind{TokenVerify, TokenResend, TokenAccess, TokenRefresh}

	for _, issued := range kinds {
		token, err := service.Issue(issued, "user-1", "a@b.com")
		require.NoError(t, err)

		for _, checked := range kinds {
			if checked == issued {
				continue
			}
			_, err := service.Verify(checked, token.Value)
			assert.ErrorIs(t, err, ErrTokenInvalid, "%s token accepted as %s", issued, checked)
		}
	}
}

func TestTokenExpiredRejected(t *testing.T) {
	cfg := testTokenConfig()
	cfg.AccessTTL = -time.Minute
	service := NewTokenService(cfg)

	token, err := service.Issue(TokenAccess, "user-1", "")
	require.NoError(t, err)

	_, err = service.Verify(TokenAccess, token.Value)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenEmptyAndGarbageRejected(t *testing.T) {
	service := NewTokenService(testTokenConfig())

	_, err := service.Verify(TokenAccess, "")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = service.Verify(TokenAccess, "not.a.jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenTamperedSignatureRejected(t *testing.T) {
	service := NewTokenService(testTokenConfig())

	token, err := service.Issue(TokenRefresh, "user-1", "")
	require.NoError(t, err)

	tampered := token.Value[:len(token.Value)-2] + "xx"
	_, err = service.Verify(TokenRefresh, tampered)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
