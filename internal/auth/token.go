// Package auth exchanges Rackspace Spot refresh tokens for short-lived
// access tokens and keeps a valid token cached for the transport.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/SparkAIUR/rsspot-sdk/internal/constants"
	spothttp "github.com/SparkAIUR/rsspot-sdk/internal/http"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

// Static errors for err113 compliance.
var (
	ErrNoRefreshToken = errors.New("no refresh token configured")
	ErrNoAccessToken  = errors.New("no access token configured")
	ErrEmptyToken     = errors.New("token service returned an empty token")
)

// FormPoster is the slice of the transport the token manager needs.
type FormPoster interface {
	PostForm(ctx context.Context, path string, form url.Values, unauthenticated bool) (*spothttp.Response, error)
}

// Token is an access token with its decoded expiry.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Valid reports whether the token can still be used. Tokens inside the
// expiry skew window count as expired so they are refreshed before the
// server rejects them. A token with no decodable expiry is never
// considered valid.
func (t *Token) Valid(skew time.Duration) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}

	if t.ExpiresAt.IsZero() {
		return false
	}

	return time.Now().Add(skew).Before(t.ExpiresAt)
}

// RefreshTokenManager exchanges a long-lived refresh token for access
// tokens on demand. It is safe for concurrent use; concurrent callers
// share one exchange.
type RefreshTokenManager struct {
	transport    FormPoster
	oauthURL     string
	clientID     string
	refreshToken string
	skew         time.Duration

	mu    sync.Mutex
	token *Token

	// onToken, when set, observes every freshly exchanged token so
	// callers can persist it.
	onToken func(token string, expiresAt time.Time)
}

// Option configures a RefreshTokenManager.
type Option func(*RefreshTokenManager)

// WithExpirySkew overrides the default expiry skew.
func WithExpirySkew(skew time.Duration) Option {
	return func(m *RefreshTokenManager) {
		m.skew = skew
	}
}

// WithTokenObserver registers a callback invoked for every freshly
// exchanged token.
func WithTokenObserver(fn func(token string, expiresAt time.Time)) Option {
	return func(m *RefreshTokenManager) {
		m.onToken = fn
	}
}

// NewRefreshTokenManager creates a token manager that exchanges tokens
// against oauthURL through the given transport.
func NewRefreshTokenManager(transport FormPoster, oauthURL, clientID, refreshToken string, opts ...Option) *RefreshTokenManager {
	manager := &RefreshTokenManager{
		transport:    transport,
		oauthURL:     oauthURL,
		clientID:     clientID,
		refreshToken: refreshToken,
		skew:         constants.TokenExpirySkew,
	}

	for _, opt := range opts {
		opt(manager)
	}

	return manager
}

// SetToken seeds the cached token, typically from persisted state.
func (m *RefreshTokenManager) SetToken(accessToken string, expiresAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if expiresAt.IsZero() {
		expiresAt = decodeExpiry(accessToken)
	}

	m.token = &Token{AccessToken: accessToken, ExpiresAt: expiresAt}
}

// Token returns a valid access token, exchanging the refresh token
// when the cached one is missing, expired, or forceRefresh is set.
// The lock spans the exchange so concurrent callers piggyback on one
// request instead of racing the token endpoint.
func (m *RefreshTokenManager) Token(ctx context.Context, forceRefresh bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !forceRefresh && m.token.Valid(m.skew) {
		return m.token.AccessToken, nil
	}

	token, err := m.exchange(ctx)
	if err != nil {
		return "", err
	}

	m.token = token

	if m.onToken != nil {
		m.onToken(token.AccessToken, token.ExpiresAt)
	}

	return token.AccessToken, nil
}

func (m *RefreshTokenManager) exchange(ctx context.Context) (*Token, error) {
	if m.refreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	form := url.Values{
		"grant_type":    []string{"refresh_token"},
		"client_id":     []string{m.clientID},
		"refresh_token": []string{m.refreshToken},
	}

	resp, err := m.transport.PostForm(ctx, m.oauthURL+"/oauth/token", form, true)
	if err != nil {
		return nil, &spot.AuthError{Message: "exchanging refresh token", Err: err}
	}

	var payload struct {
		IDToken     string `json:"id_token"`
		AccessToken string `json:"access_token"`
	}

	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, &spot.AuthError{Message: "decoding token response", Err: err}
	}

	accessToken := payload.IDToken
	if accessToken == "" {
		accessToken = payload.AccessToken
	}

	if accessToken == "" {
		return nil, &spot.AuthError{Message: "exchanging refresh token", Err: ErrEmptyToken}
	}

	return &Token{
		AccessToken: accessToken,
		ExpiresAt:   decodeExpiry(accessToken),
	}, nil
}

// decodeExpiry reads the exp claim without verifying the signature;
// the server validates tokens, the client only needs to know when to
// refresh. Undecodable tokens get a zero expiry, which Valid treats
// as already expired.
func decodeExpiry(accessToken string) time.Time {
	claims := &jwt.RegisteredClaims{}

	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}
	}

	if claims.ExpiresAt == nil {
		return time.Time{}
	}

	return claims.ExpiresAt.Time
}

// StaticTokenManager serves one fixed token, for callers that manage
// credentials themselves.
type StaticTokenManager struct {
	token string
}

// NewStaticTokenManager creates a token manager around a fixed token.
func NewStaticTokenManager(token string) *StaticTokenManager {
	return &StaticTokenManager{token: token}
}

// Token returns the fixed token. forceRefresh has nothing to refresh.
func (m *StaticTokenManager) Token(_ context.Context, _ bool) (string, error) {
	if m.token == "" {
		return "", fmt.Errorf("static token: %w", ErrNoAccessToken)
	}

	return m.token, nil
}
