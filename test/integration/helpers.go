//go:build integration
// +build integration

package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spotclient"
)

const testOrgID = "org-integration"

// FakeAPI is an in-process stand-in for the Spot control plane. It
// serves the token endpoint and a small set of resource endpoints,
// keeps nodepools in memory so mutations are observable, and counts
// requests per path so tests can assert cache behavior.
type FakeAPI struct {
	Server *httptest.Server

	mu        sync.Mutex
	hits      map[string]int
	spotPools map[string]map[string]any
}

// NewFakeAPI starts the fake control plane. The server is shut down
// automatically when the test finishes.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	api := &FakeAPI{
		hits:      make(map[string]int),
		spotPools: make(map[string]map[string]any),
	}

	api.Server = httptest.NewServer(http.HandlerFunc(api.handle))
	t.Cleanup(api.Server.Close)

	return api
}

// Hits returns how many requests reached the given path.
func (api *FakeAPI) Hits(path string) int {
	api.mu.Lock()
	defer api.mu.Unlock()

	return api.hits[path]
}

//nolint:cyclop // route dispatch is a flat switch
func (api *FakeAPI) handle(w http.ResponseWriter, r *http.Request) {
	api.mu.Lock()
	api.hits[r.URL.Path]++
	api.mu.Unlock()

	switch {
	case r.URL.Path == "/oauth/token":
		api.serveToken(w, r)
	case r.URL.Path == "/apis/auth.ngpc.rxt.io/v1/organizations":
		writeJSON(w, map[string]any{"organizations": []map[string]any{
			{"id": testOrgID, "name": "Integration Org"},
		}})
	case r.URL.Path == "/apis/ngpc.rxt.io/v1/regions":
		writeJSON(w, map[string]any{"items": []map[string]any{
			{"metadata": map[string]any{"name": "us-central-dfw-1"}, "spec": map[string]any{"description": "Dallas"}},
			{"metadata": map[string]any{"name": "us-east-iad-1"}, "spec": map[string]any{"description": "Ashburn"}},
		}})
	case strings.HasSuffix(r.URL.Path, "/cloudspaces") && r.Method == http.MethodPost:
		api.serveCloudspaceCreate(w, r)
	case strings.Contains(r.URL.Path, "/spotnodepools"):
		api.serveSpotNodePools(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]any{"message": "not found"})
	}
}

func (api *FakeAPI) serveToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if r.PostForm.Get("grant_type") != "refresh_token" || r.PostForm.Get("refresh_token") == "" {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]any{"error": "invalid_grant"})

		return
	}

	writeJSON(w, map[string]any{"access_token": signedTestToken()})
}

func (api *FakeAPI) serveCloudspaceCreate(w http.ResponseWriter, r *http.Request) {
	var envelope map[string]any
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, envelope)
}

func (api *FakeAPI) serveSpotNodePools(w http.ResponseWriter, r *http.Request) {
	api.mu.Lock()
	defer api.mu.Unlock()

	name := ""
	if idx := strings.LastIndex(r.URL.Path, "/spotnodepools/"); idx >= 0 {
		name = r.URL.Path[idx+len("/spotnodepools/"):]
	}

	switch {
	case r.Method == http.MethodGet && name == "":
		items := make([]map[string]any, 0, len(api.spotPools))
		for _, pool := range api.spotPools {
			items = append(items, pool)
		}

		writeJSON(w, map[string]any{"items": items})
	case r.Method == http.MethodGet:
		pool, ok := api.spotPools[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			writeJSON(w, map[string]any{"message": "spotnodepool not found"})

			return
		}

		writeJSON(w, pool)
	case r.Method == http.MethodPost:
		var envelope map[string]any
		if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		metadata, _ := envelope["metadata"].(map[string]any)
		created, _ := metadata["name"].(string)
		api.spotPools[created] = envelope

		w.WriteHeader(http.StatusCreated)
		writeJSON(w, envelope)
	case r.Method == http.MethodPatch:
		pool, ok := api.spotPools[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		var patch map[string]any
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		mergePatch(pool, patch)
		writeJSON(w, pool)
	case r.Method == http.MethodDelete:
		pool, ok := api.spotPools[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		delete(api.spotPools, name)
		writeJSON(w, pool)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// mergePatch applies an RFC 7386 merge patch onto target in place.
func mergePatch(target, patch map[string]any) {
	for key, value := range patch {
		if value == nil {
			delete(target, key)
			continue
		}

		patchMap, patchOK := value.(map[string]any)

		targetMap, targetOK := target[key].(map[string]any)
		if patchOK && targetOK {
			mergePatch(targetMap, patchMap)
			continue
		}

		target[key] = value
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// signedTestToken mints a short-lived JWT so the client trusts the
// token for the duration of the test instead of refreshing per call.
func signedTestToken() string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "integration-tests",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	signed, err := token.SignedString([]byte("integration-secret"))
	if err != nil {
		return ""
	}

	return signed
}

// NewIntegrationClient builds a client against the fake control
// plane with an in-memory durable cache tier and a throwaway state
// store.
func NewIntegrationClient(t *testing.T, api *FakeAPI) *spotclient.Client {
	t.Helper()

	client, err := spotclient.New(context.Background(), &spot.Config{
		BaseURL:      api.Server.URL,
		OAuthURL:     api.Server.URL,
		RefreshToken: "integration-refresh-token",
		OrgID:        testOrgID,
		StatePath:    filepath.Join(t.TempDir(), "state.db"),
		Cache: &spot.CacheConfig{
			Enabled:    true,
			Type:       spot.CacheTypeMemory,
			DefaultTTL: time.Minute,
		},
	})
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("closing client: %v", err)
		}
	})

	return client
}
