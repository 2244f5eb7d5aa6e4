// Google ID-token verification against the tokeninfo endpoint.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"taskbox/internal/auth"
)

const tokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// GoogleVerifier validates Google Sign-In ID tokens by asking Google
// directly, then checking the audience and email claims.
type GoogleVerifier struct {
	clientID string
	client   *http.Client
	endpoint string
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		clientID: clientID,
		client:   &http.Client{Timeout: 10 * time.Second},
		endpoint: tokenInfoURL,
	}
}

type tokenInfo struct {
	Audience      string `json:"aud"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
}

func (v *GoogleVerifier) Verify(ctx context.Context, assertion string) (auth.ExternalIdentity, error) {
	endpoint := v.endpoint + "?id_token=" + url.QueryEscape(assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return auth.ExternalIdentity{}, fmt.Errorf("build tokeninfo request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return auth.ExternalIdentity{}, fmt.Errorf("call tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return auth.ExternalIdentity{}, fmt.Errorf("tokeninfo rejected token: status %d", resp.StatusCode)
	}

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return auth.ExternalIdentity{}, fmt.Errorf("decode tokeninfo response: %w", err)
	}

	if info.Audience != v.clientID {
		return auth.ExternalIdentity{}, fmt.Errorf("token audience mismatch")
	}
	if info.EmailVerified != "true" || info.Email == "" {
		return auth.ExternalIdentity{}, fmt.Errorf("email not verified by google")
	}

	name := info.Name
	if name == "" {
		name = info.Email
	}

	return auth.ExternalIdentity{Email: info.Email, Name: name}, nil
}
