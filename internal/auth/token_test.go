package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SparkAIUR/rsspot-sdk/internal/auth"
	spothttp "github.com/SparkAIUR/rsspot-sdk/internal/http"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

// fakePoster records token-exchange calls and returns canned
// responses.
type fakePoster struct {
	mu        sync.Mutex
	calls     int32
	lastPath  string
	lastForm  url.Values
	responses []any
	err       error
}

func (p *fakePoster) PostForm(_ context.Context, path string, form url.Values, unauthenticated bool) (*spothttp.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !unauthenticated {
		panic("token exchange must be unauthenticated")
	}

	call := atomic.AddInt32(&p.calls, 1)
	p.lastPath = path
	p.lastForm = form

	if p.err != nil {
		return nil, p.err
	}

	response := p.responses[int(call-1)%len(p.responses)]

	body, err := json.Marshal(response)
	if err != nil {
		return nil, err
	}

	return &spothttp.Response{StatusCode: 200, Body: body}, nil
}

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user",
		"exp": expiresAt.Unix(),
	})

	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	return signed
}

func TestTokenValid(t *testing.T) {
	t.Parallel()

	skew := time.Minute

	tests := []struct {
		name     string
		token    *auth.Token
		expected bool
	}{
		{name: "nil token", token: nil, expected: false},
		{name: "empty access token", token: &auth.Token{}, expected: false},
		{
			name:     "no decodable expiry",
			token:    &auth.Token{AccessToken: "opaque"},
			expected: false,
		},
		{
			name:     "future expiry",
			token:    &auth.Token{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)},
			expected: true,
		},
		{
			name:     "expired",
			token:    &auth.Token{AccessToken: "tok", ExpiresAt: time.Now().Add(-time.Hour)},
			expected: false,
		},
		{
			name:     "inside skew window",
			token:    &auth.Token{AccessToken: "tok", ExpiresAt: time.Now().Add(30 * time.Second)},
			expected: false,
		},
		{
			name:     "outside skew window",
			token:    &auth.Token{AccessToken: "tok", ExpiresAt: time.Now().Add(2 * time.Minute)},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.token.Valid(skew))
		})
	}
}

func TestRefreshTokenManagerExchange(t *testing.T) {
	t.Parallel()

	accessToken := signedToken(t, time.Now().Add(time.Hour))
	poster := &fakePoster{responses: []any{map[string]string{"id_token": accessToken}}}

	manager := auth.NewRefreshTokenManager(poster, "https://login.example.com", "client-id", "refresh-me")

	token, err := manager.Token(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, accessToken, token)

	assert.Equal(t, "https://login.example.com/oauth/token", poster.lastPath)
	assert.Equal(t, "refresh_token", poster.lastForm.Get("grant_type"))
	assert.Equal(t, "client-id", poster.lastForm.Get("client_id"))
	assert.Equal(t, "refresh-me", poster.lastForm.Get("refresh_token"))

	// A valid cached token short-circuits the next call.
	token, err = manager.Token(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, accessToken, token)
	assert.Equal(t, int32(1), atomic.LoadInt32(&poster.calls))
}

func TestRefreshTokenManagerForceRefresh(t *testing.T) {
	t.Parallel()

	first := signedToken(t, time.Now().Add(time.Hour))
	second := signedToken(t, time.Now().Add(2*time.Hour))
	poster := &fakePoster{responses: []any{
		map[string]string{"id_token": first},
		map[string]string{"id_token": second},
	}}

	manager := auth.NewRefreshTokenManager(poster, "https://login.example.com", "client-id", "refresh-me")

	token, err := manager.Token(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, first, token)

	token, err = manager.Token(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, second, token)
	assert.Equal(t, int32(2), atomic.LoadInt32(&poster.calls))
}

func TestRefreshTokenManagerDecodesRegisteredExpiry(t *testing.T) {
	t.Parallel()

	// The exp claim is read from the exchanged JWT itself; a token
	// already past its exp is re-exchanged on the next call.
	expired := signedToken(t, time.Now().Add(-time.Hour))
	fresh := signedToken(t, time.Now().Add(time.Hour))
	poster := &fakePoster{responses: []any{
		map[string]string{"id_token": expired},
		map[string]string{"id_token": fresh},
	}}

	manager := auth.NewRefreshTokenManager(poster, "https://login.example.com", "client-id", "refresh-me")

	token, err := manager.Token(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, expired, token)

	token, err = manager.Token(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, fresh, token)
	assert.Equal(t, int32(2), atomic.LoadInt32(&poster.calls))

	// The fresh token's decoded expiry now holds.
	token, err = manager.Token(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, fresh, token)
	assert.Equal(t, int32(2), atomic.LoadInt32(&poster.calls))
}

func TestRefreshTokenManagerUndecodableTokenRefreshesEachCall(t *testing.T) {
	t.Parallel()

	// Opaque tokens carry no expiry, so every call re-exchanges.
	poster := &fakePoster{responses: []any{map[string]string{"id_token": "not-a-jwt"}}}
	manager := auth.NewRefreshTokenManager(poster, "https://login.example.com", "client-id", "refresh-me")

	for range 3 {
		token, err := manager.Token(context.Background(), false)
		require.NoError(t, err)
		assert.Equal(t, "not-a-jwt", token)
	}

	assert.Equal(t, int32(3), atomic.LoadInt32(&poster.calls))
}

func TestRefreshTokenManagerErrors(t *testing.T) {
	t.Parallel()
	t.Run("missing refresh token", func(t *testing.T) {
		t.Parallel()

		manager := auth.NewRefreshTokenManager(&fakePoster{}, "https://login.example.com", "client-id", "")

		_, err := manager.Token(context.Background(), false)
		assert.ErrorIs(t, err, auth.ErrNoRefreshToken)
	})

	t.Run("transport failure wraps as auth error", func(t *testing.T) {
		t.Parallel()

		poster := &fakePoster{err: errors.New("connection refused")}
		manager := auth.NewRefreshTokenManager(poster, "https://login.example.com", "client-id", "refresh-me")

		_, err := manager.Token(context.Background(), false)
		require.Error(t, err)

		var authErr *spot.AuthError

		assert.ErrorAs(t, err, &authErr)
	})

	t.Run("empty token response", func(t *testing.T) {
		t.Parallel()

		poster := &fakePoster{responses: []any{map[string]string{}}}
		manager := auth.NewRefreshTokenManager(poster, "https://login.example.com", "client-id", "refresh-me")

		_, err := manager.Token(context.Background(), false)
		assert.ErrorIs(t, err, auth.ErrEmptyToken)
	})
}

func TestRefreshTokenManagerConcurrentCallersShareExchange(t *testing.T) {
	t.Parallel()

	accessToken := signedToken(t, time.Now().Add(time.Hour))
	poster := &fakePoster{responses: []any{map[string]string{"id_token": accessToken}}}
	manager := auth.NewRefreshTokenManager(poster, "https://login.example.com", "client-id", "refresh-me")

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			token, err := manager.Token(context.Background(), false)
			assert.NoError(t, err)
			assert.Equal(t, accessToken, token)
		}()
	}

	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&poster.calls))
}

func TestRefreshTokenManagerTokenObserver(t *testing.T) {
	t.Parallel()

	expiresAt := time.Now().Add(time.Hour)
	accessToken := signedToken(t, expiresAt)
	poster := &fakePoster{responses: []any{map[string]string{"id_token": accessToken}}}

	var (
		observed       string
		observedExpiry time.Time
	)

	manager := auth.NewRefreshTokenManager(poster, "https://login.example.com", "client-id", "refresh-me",
		auth.WithTokenObserver(func(token string, expiry time.Time) {
			observed = token
			observedExpiry = expiry
		}))

	_, err := manager.Token(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, accessToken, observed)
	assert.WithinDuration(t, expiresAt, observedExpiry, time.Second)
}

func TestStaticTokenManager(t *testing.T) {
	t.Parallel()

	manager := auth.NewStaticTokenManager("fixed-token")

	token, err := manager.Token(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "fixed-token", token)

	empty := auth.NewStaticTokenManager("")
	_, err = empty.Token(context.Background(), false)
	assert.ErrorIs(t, err, auth.ErrNoAccessToken)
}

func TestSetTokenSeedsCache(t *testing.T) {
	t.Parallel()

	poster := &fakePoster{responses: []any{map[string]string{"id_token": "fresh"}}}
	manager := auth.NewRefreshTokenManager(poster, "https://login.example.com", "client-id", "refresh-me")

	seeded := signedToken(t, time.Now().Add(time.Hour))
	manager.SetToken(seeded, time.Time{})

	token, err := manager.Token(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, seeded, token)
	assert.Zero(t, atomic.LoadInt32(&poster.calls))
}
