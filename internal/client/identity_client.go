package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"clickearn/internal/config"
	"clickearn/internal/util"
)

// ErrIdentityRejected is returned when the provider refuses the token or
// the exchange cannot complete in time. The caller never retries.
var ErrIdentityRejected = errors.New("identity provider rejected session")

// IdentityProfile is the verified identity returned by the provider
type IdentityProfile struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	SessionToken string `json:"session_token"`
	Picture      string `json:"picture,omitempty"`
}

// IdentityClient exchanges an opaque external token for a verified profile
// with the delegated identity provider.
type IdentityClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewIdentityClient(cfg *config.Config) *IdentityClient {
	return &IdentityClient{
		httpClient: &http.Client{Timeout: cfg.Identity.Timeout},
		baseURL:    cfg.Identity.BaseURL,
	}
}

// ExchangeSession resolves the external token. Timeouts and non-200
// responses both map to ErrIdentityRejected.
func (c *IdentityClient) ExchangeSession(ctx context.Context, externalToken string) (*IdentityProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build identity request: %w", err)
	}
	req.Header.Set("X-Session-ID", externalToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		util.Warn("Identity provider exchange failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrIdentityRejected, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		util.Warn("Identity provider returned non-OK status",
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrIdentityRejected, resp.StatusCode)
	}

	var profile IdentityProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrIdentityRejected, err)
	}
	if profile.Email == "" {
		return nil, fmt.Errorf("%w: response missing email", ErrIdentityRejected)
	}

	return &profile, nil
}
