package spotclient_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SparkAIUR/rsspot-sdk/internal/bridge"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spotclient"
)

func testConfig(t *testing.T, serverURL string) *spot.Config {
	t.Helper()

	return &spot.Config{
		BaseURL:     serverURL,
		AccessToken: "test-token",
		StatePath:   filepath.Join(t.TempDir(), "state.db"),
		Cache:       &spot.CacheConfig{Enabled: false},
	}
}

func newTestClient(t *testing.T, serverURL string) *spotclient.Client {
	t.Helper()

	c, err := spotclient.New(context.Background(), testConfig(t, serverURL))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c
}

func regionsHandler(t *testing.T) http.HandlerFunc {
	t.Helper()

	return func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/apis/ngpc.rxt.io/v1/regions", request.URL.Path)
		require.NoError(t, json.NewEncoder(writer).Encode(map[string]any{
			"items": []any{
				map[string]any{
					"metadata": map[string]any{"name": "us-central-dfw-1"},
					"spec":     map[string]any{"description": "Dallas"},
				},
			},
		}))
	}
}

func TestNewRejectsNilConfig(t *testing.T) {
	t.Parallel()

	_, err := spotclient.New(context.Background(), nil)
	assert.ErrorIs(t, err, spot.ErrConfigRequired)
}

func TestClientBlockingSurface(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(regionsHandler(t))
	defer server.Close()

	c := newTestClient(t, server.URL)

	token, err := c.Authenticate(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "test-token", token)

	regions, err := c.Regions().List(context.Background())
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, "us-central-dfw-1", regions[0].Name)
	assert.Equal(t, "Dallas", regions[0].Description)

	region, err := c.Regions().Get(context.Background(), "us-central-dfw-1")
	require.NoError(t, err)
	assert.Equal(t, "Dallas", region.Description)
}

func TestClientRequestAsync(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(regionsHandler(t))
	defer server.Close()

	c := newTestClient(t, server.URL)

	future, err := c.RequestAsync(context.Background(), "GET", "/apis/ngpc.rxt.io/v1/regions", nil)
	require.NoError(t, err)

	body, err := future.Wait(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(body), "us-central-dfw-1")
}

func TestClientAsyncBypassesRunner(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(regionsHandler(t))
	defer server.Close()

	c := newTestClient(t, server.URL)

	regions, err := c.Async().Regions().List(context.Background())
	require.NoError(t, err)
	assert.Len(t, regions, 1)
}

func TestClientCloseStopsRunner(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "https://unused.invalid")
	require.NoError(t, c.Close())

	_, err := c.Authenticate(context.Background(), false)
	assert.ErrorIs(t, err, bridge.ErrRunnerClosed)

	// Close is idempotent.
	require.NoError(t, c.Close())
}

func TestRegistryReusesClientsPerScope(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(regionsHandler(t))
	defer server.Close()

	var builds atomic.Int64

	registry := spotclient.NewRegistry(func(ctx context.Context, scope spotclient.Scope) (*spotclient.Client, error) {
		builds.Add(1)

		return spotclient.New(ctx, testConfig(t, server.URL))
	})

	first, err := registry.Get(context.Background(), spotclient.Scope{Profile: "default"})
	require.NoError(t, err)

	second, err := registry.Get(context.Background(), spotclient.Scope{Profile: "default"})
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int64(1), builds.Load())

	other, err := registry.Get(context.Background(), spotclient.Scope{Profile: "default", Region: "us-east-iad-1"})
	require.NoError(t, err)
	assert.NotSame(t, first, other)
	assert.Equal(t, 2, registry.Len())

	require.NoError(t, registry.CloseAll())
	assert.Equal(t, 0, registry.Len())

	_, err = registry.Get(context.Background(), spotclient.Scope{Profile: "default"})
	assert.ErrorIs(t, err, spotclient.ErrRegistryClosed)

	// CloseAll closed the cached clients, not just the registry.
	_, err = first.Authenticate(context.Background(), false)
	assert.ErrorIs(t, err, bridge.ErrRunnerClosed)
}

func TestZerologLoggerFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := spotclient.NewZerologLogger(zerolog.New(&buf))

	logger.Info("request completed", map[string]interface{}{"status": 200, "path": "/apis/ngpc.rxt.io/v1/regions"})
	logger.Warn("retrying", map[string]interface{}{"attempt": 2})

	output := buf.String()
	assert.Contains(t, output, `"message":"request completed"`)
	assert.Contains(t, output, `"status":200`)
	assert.Contains(t, output, `"path":"/apis/ngpc.rxt.io/v1/regions"`)
	assert.Contains(t, output, `"level":"warn"`)
	assert.Contains(t, output, `"attempt":2`)
}

func TestLoadConfigAppliesStoredPreferences(t *testing.T) {
	t.Setenv("RSSPOT_STATE_PATH", filepath.Join(t.TempDir(), "state.db"))

	ctx := context.Background()
	require.NoError(t, spotclient.SetDefaultOrg(ctx, "preferred-org"))
	require.NoError(t, spotclient.SetDefaultRegion(ctx, "us-east-iad-1"))

	configPath := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := spotclient.LoadConfig(ctx, configPath, spotclient.Scope{})
	require.NoError(t, err)
	assert.Equal(t, "preferred-org", cfg.Org)
	assert.Equal(t, "us-east-iad-1", cfg.Region)

	// The scope wins over stored preferences.
	cfg, err = spotclient.LoadConfig(ctx, configPath, spotclient.Scope{
		Org:    "org-cli",
		Region: "us-central-dfw-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "org-cli", cfg.Org)
	assert.Equal(t, "us-central-dfw-1", cfg.Region)
}
