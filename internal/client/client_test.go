package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/SparkAIUR/rsspot-sdk/internal/client"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()

	c, err := New(context.Background(), &spot.Config{
		BaseURL:     serverURL,
		AccessToken: "test-token",
		StatePath:   filepath.Join(t.TempDir(), "state.db"),
		Cache:       &spot.CacheConfig{Enabled: false},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c
}

func writeJSON(t *testing.T, writer http.ResponseWriter, payload any) {
	t.Helper()
	require.NoError(t, json.NewEncoder(writer).Encode(payload))
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), nil)
	assert.ErrorIs(t, err, spot.ErrConfigRequired)

	_, err = New(context.Background(), &spot.Config{BaseURL: "https://example.com"})
	assert.ErrorIs(t, err, spot.ErrRefreshTokenRequired)
}

func TestClientAuthenticate(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "https://unused.invalid")

	token, err := c.Authenticate(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "test-token", token)
}

func TestClientRequestPrimitive(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/apis/ngpc.rxt.io/v1/regions", request.URL.Path)
		assert.Equal(t, "Bearer test-token", request.Header.Get("Authorization"))
		writeJSON(t, writer, map[string]any{"items": []any{}})
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	body, err := c.Request(context.Background(), "GET", "/apis/ngpc.rxt.io/v1/regions", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[]}`, string(body))
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestOrganizationResolution(t *testing.T) {
	t.Parallel()
	t.Run("name resolves through the API once", func(t *testing.T) {
		t.Parallel()

		var listCalls int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/apis/auth.ngpc.rxt.io/v1/organizations", request.URL.Path)
			atomic.AddInt32(&listCalls, 1)
			writeJSON(t, writer, map[string]any{
				"organizations": []map[string]string{
					{"name": "acme", "id": "org_ABC123"},
					{"name": "other", "id": "org_DEF456"},
				},
			})
		}))
		defer server.Close()

		c := newTestClient(t, server.URL)

		id, err := c.ResolveOrgID(context.Background(), "acme")
		require.NoError(t, err)
		assert.Equal(t, "org-abc123", id)

		// Second resolution hits the memo, not the API.
		id, err = c.ResolveOrgID(context.Background(), "acme")
		require.NoError(t, err)
		assert.Equal(t, "org-abc123", id)
		assert.Equal(t, int32(1), atomic.LoadInt32(&listCalls))
	})

	t.Run("id passes through normalized", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, "https://unused.invalid")

		id, err := c.ResolveOrgID(context.Background(), "org_ABC123")
		require.NoError(t, err)
		assert.Equal(t, "org-abc123", id)
	})

	t.Run("name passes through ResolveOrgName", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, "https://unused.invalid")

		name, err := c.ResolveOrgName(context.Background(), "acme")
		require.NoError(t, err)
		assert.Equal(t, "acme", name)
	})

	t.Run("id resolves to name through the API", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writeJSON(t, writer, map[string]any{
				"organizations": []map[string]string{
					{"name": "acme", "id": "org-abc123"},
				},
			})
		}))
		defer server.Close()

		c := newTestClient(t, server.URL)

		name, err := c.ResolveOrgName(context.Background(), "org_ABC123")
		require.NoError(t, err)
		assert.Equal(t, "acme", name)
	})

	t.Run("missing organization fails", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, "https://unused.invalid")

		_, err := c.ResolveOrgID(context.Background(), "")
		assert.ErrorIs(t, err, spot.ErrOrganizationRequired)
	})

	t.Run("unknown organization fails", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writeJSON(t, writer, map[string]any{"organizations": []map[string]string{}})
		}))
		defer server.Close()

		c := newTestClient(t, server.URL)

		_, err := c.ResolveOrgID(context.Background(), "ghost")
		assert.ErrorIs(t, err, spot.ErrOrganizationNotFound)
	})
}

func TestRegionsClient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/apis/ngpc.rxt.io/v1/regions", request.URL.Path)
		writeJSON(t, writer, map[string]any{
			"items": []map[string]any{
				{"metadata": map[string]string{"name": "us-central-dfw-1"}, "spec": map[string]string{"description": "Dallas"}},
				{"metadata": map[string]string{"name": "us-east-iad-1"}, "spec": map[string]string{"description": "Ashburn"}},
			},
		})
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	regions, err := c.Regions().List(context.Background())
	require.NoError(t, err)
	require.Len(t, regions, 2)
	assert.Equal(t, "us-central-dfw-1", regions[0].Name)
	assert.Equal(t, "Dallas", regions[0].Description)

	region, err := c.Regions().Get(context.Background(), "us-east-iad-1")
	require.NoError(t, err)
	assert.Equal(t, "Ashburn", region.Description)

	_, err = c.Regions().Get(context.Background(), "mars-1")
	assert.ErrorIs(t, err, spot.ErrRegionNotFound)
}

func serverClassFixture() map[string]any {
	return map[string]any{
		"items": []map[string]any{
			{
				"metadata": map[string]string{"name": "gp.vs1.large-dfw"},
				"spec": map[string]any{
					"availability":       "available",
					"displayName":        "General Purpose Large",
					"category":           "General Purpose",
					"region":             "us-central-dfw-1",
					"minBidPricePerHour": "0.002",
					"onDemandPricing":    map[string]string{"cost": "0.024"},
					"resources":          map[string]string{"cpu": "4", "memory": "8GB"},
				},
				"status": map[string]any{
					"spotPricing": map[string]string{"marketPricePerHour": "$0.011"},
				},
			},
			{
				"metadata": map[string]string{"name": "gp.vs1.large-iad"},
				"spec": map[string]any{
					"availability": "unavailable",
					"region":       "us-east-iad-1",
					"resources":    map[string]string{"cpu": "4", "memory": "8GB"},
				},
			},
		},
	}
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestServerClassesClient(t *testing.T) {
	t.Parallel()
	t.Run("list filters and normalizes prices", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/apis/ngpc.rxt.io/v1/serverclasses", request.URL.Path)
			writeJSON(t, writer, serverClassFixture())
		}))
		defer server.Close()

		c := newTestClient(t, server.URL)

		classes, err := c.ServerClasses().List(context.Background(), nil)
		require.NoError(t, err)
		require.Len(t, classes, 1) // unavailable entry dropped

		summary := classes[0]
		assert.Equal(t, "gp.vs1.large-dfw", summary.Name)
		assert.Equal(t, "$0.011", summary.MarketPricePerHour) // already prefixed
		assert.Equal(t, "$0.002", summary.MinBidPricePerHour) // prefix added
		assert.Equal(t, "$0.024", summary.OnDemandPricePerHour)
		assert.Equal(t, "4", summary.CPU)
	})

	t.Run("list can include unavailable and filter by region", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writeJSON(t, writer, serverClassFixture())
		}))
		defer server.Close()

		c := newTestClient(t, server.URL)

		classes, err := c.ServerClasses().List(context.Background(), &spot.ServerClassListOptions{
			Region:             "us-east-iad-1",
			IncludeUnavailable: true,
		})
		require.NoError(t, err)
		require.Len(t, classes, 1)
		assert.Equal(t, "gp.vs1.large-iad", classes[0].Name)
	})

	t.Run("get by name", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/apis/ngpc.rxt.io/v1/serverclasses/gp.vs1.large-dfw", request.URL.Path)
			writeJSON(t, writer, map[string]any{
				"metadata": map[string]string{"name": "gp.vs1.large-dfw"},
				"spec": map[string]any{
					"availability": "available",
					"region":       "us-central-dfw-1",
					"resources":    map[string]string{"cpu": "4", "memory": "8GB"},
				},
			})
		}))
		defer server.Close()

		c := newTestClient(t, server.URL)

		summary, err := c.ServerClasses().Get(context.Background(), "gp.vs1.large-dfw")
		require.NoError(t, err)
		assert.Equal(t, "us-central-dfw-1", summary.Region)
	})

	t.Run("get missing maps to static error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusNotFound)
			writeJSON(t, writer, map[string]string{"message": "not found"})
		}))
		defer server.Close()

		c := newTestClient(t, server.URL)

		_, err := c.ServerClasses().Get(context.Background(), "ghost")
		assert.ErrorIs(t, err, spot.ErrServerClassNotFound)
	})
}

func TestPricingClient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writeJSON(t, writer, serverClassFixture())
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	prices, err := c.Pricing().List(context.Background(), "us-central-dfw-1")
	require.NoError(t, err)
	require.Len(t, prices.Items, 1)
	assert.Equal(t, "gp.vs1.large-dfw", prices.Items[0].ServerClassName)
	assert.Equal(t, "$0.011", prices.Items[0].MarketPrice)
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestCloudspacesClient(t *testing.T) {
	t.Parallel()
	t.Run("list and get resolve the org", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			switch request.URL.Path {
			case "/apis/ngpc.rxt.io/v1/namespaces/org-abc123/cloudspaces":
				writeJSON(t, writer, map[string]any{
					"items": []map[string]any{
						{"metadata": map[string]string{"name": "demo"}, "spec": map[string]string{"region": "us-central-dfw-1"}},
					},
				})
			case "/apis/ngpc.rxt.io/v1/namespaces/org-abc123/cloudspaces/demo":
				writeJSON(t, writer, map[string]any{
					"metadata": map[string]string{"name": "demo"},
					"spec":     map[string]string{"region": "us-central-dfw-1"},
					"status":   map[string]any{"phase": "Ready", "health": "Healthy"},
				})
			default:
				t.Errorf("unexpected path %s", request.URL.Path)
				writer.WriteHeader(http.StatusNotFound)
			}
		}))
		defer server.Close()

		c := newTestClient(t, server.URL)

		list, err := c.Cloudspaces().List(context.Background(), "org_ABC123")
		require.NoError(t, err)
		require.Len(t, list.Items, 1)
		assert.Equal(t, "demo", list.Items[0].Metadata.Name)

		item, err := c.Cloudspaces().Get(context.Background(), "demo", "org_ABC123")
		require.NoError(t, err)
		assert.Equal(t, "Ready", item.Status.Phase)
	})

	t.Run("create wraps the spec in a resource envelope", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "POST", request.Method)
			assert.Equal(t, "/apis/ngpc.rxt.io/v1/namespaces/org-abc123/cloudspaces", request.URL.Path)

			var payload map[string]any

			require.NoError(t, json.NewDecoder(request.Body).Decode(&payload))
			assert.Equal(t, "ngpc.rxt.io/v1", payload["apiVersion"])
			assert.Equal(t, "CloudSpace", payload["kind"])

			metadata, _ := payload["metadata"].(map[string]any)
			assert.Equal(t, "demo", metadata["name"])
			assert.Equal(t, "org-abc123", metadata["namespace"])

			spec, _ := payload["spec"].(map[string]any)
			assert.Equal(t, "us-central-dfw-1", spec["region"])
			assert.Equal(t, "1.31.1", spec["kubernetesVersion"])

			writer.WriteHeader(http.StatusCreated)
			writeJSON(t, writer, map[string]string{"kind": "CloudSpace"})
		}))
		defer server.Close()

		c := newTestClient(t, server.URL)

		result, err := c.Cloudspaces().Create(context.Background(), &spot.CloudspaceCreateRequest{
			Name:              "demo",
			Region:            "us-central-dfw-1",
			KubernetesVersion: "1.31.1",
		}, "org-abc123")
		require.NoError(t, err)
		assert.Equal(t, "CloudSpace", result["kind"])
	})

	t.Run("generate kubeconfig posts to the auth service", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if request.URL.Path == "/oauth/token" {
				writeJSON(t, writer, map[string]string{"id_token": "exchanged"})

				return
			}

			assert.Equal(t, "/apis/auth.ngpc.rxt.io/v1/generate-kubeconfig", request.URL.Path)

			var payload map[string]string

			require.NoError(t, json.NewDecoder(request.Body).Decode(&payload))
			assert.Equal(t, "acme", payload["organization_name"])
			assert.Equal(t, "demo", payload["cloudspace_name"])
			assert.Equal(t, "refresh-me", payload["refresh_token"])

			writeJSON(t, writer, map[string]any{
				"data": map[string]string{"kubeconfig": "apiVersion: v1\nkind: Config\n"},
			})
		}))
		defer server.Close()

		c, err := New(context.Background(), &spot.Config{
			BaseURL:      server.URL,
			OAuthURL:     server.URL,
			RefreshToken: "refresh-me",
			Org:          "acme",
			StatePath:    filepath.Join(t.TempDir(), "state.db"),
			Cache:        &spot.CacheConfig{Enabled: false},
		})
		require.NoError(t, err)

		defer func() { _ = c.Close() }()

		kubeconfig, err := c.Cloudspaces().GenerateKubeconfig(context.Background(), "demo", "")
		require.NoError(t, err)
		assert.Contains(t, kubeconfig, "kind: Config")
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestSpotNodePoolsClient(t *testing.T) {
	t.Parallel()
	t.Run("list filters by cloudspace label", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/apis/ngpc.rxt.io/v1/namespaces/org-abc123/spotnodepools", request.URL.Path)
			assert.Equal(t, "ngpc.rxt.io/cloudspace=demo", request.URL.Query().Get("labelSelector"))
			writeJSON(t, writer, map[string]any{"items": []any{}})
		}))
		defer server.Close()

		c := newTestClient(t, server.URL)

		_, err := c.SpotNodePools().List(context.Background(), "org-abc123", "demo")
		require.NoError(t, err)
	})

	t.Run("create strips bid price dollar sign", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			var payload map[string]any

			require.NoError(t, json.NewDecoder(request.Body).Decode(&payload))
			assert.Equal(t, "SpotNodePool", payload["kind"])

			spec, _ := payload["spec"].(map[string]any)
			assert.Equal(t, "0.008", spec["bidPrice"])
			assert.Equal(t, "demo", spec["cloudSpace"])

			metadata, _ := payload["metadata"].(map[string]any)
			labels, _ := metadata["labels"].(map[string]any)
			assert.Equal(t, "demo", labels["ngpc.rxt.io/cloudspace"])

			writer.WriteHeader(http.StatusCreated)
			writeJSON(t, writer, map[string]string{"kind": "SpotNodePool"})
		}))
		defer server.Close()

		c := newTestClient(t, server.URL)

		_, err := c.SpotNodePools().Create(context.Background(), &spot.SpotNodePoolUpsert{
			Name:        "pool-1",
			Cloudspace:  "demo",
			ServerClass: "gp.vs1.large-dfw",
			Desired:     3,
			BidPrice:    "$0.008",
		}, "org-abc123")
		require.NoError(t, err)
	})

	t.Run("update sends a merge patch", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "PATCH", request.Method)
			assert.Equal(t, "/apis/ngpc.rxt.io/v1/namespaces/org-abc123/spotnodepools/pool-1", request.URL.Path)
			assert.Equal(t, "application/merge-patch+json", request.Header.Get("Content-Type"))

			var payload map[string]any

			require.NoError(t, json.NewDecoder(request.Body).Decode(&payload))

			// The patch carries only mutable spec fields.
			assert.NotContains(t, payload, "metadata")

			spec, _ := payload["spec"].(map[string]any)
			assert.NotContains(t, spec, "serverClass")

			writeJSON(t, writer, map[string]string{"kind": "SpotNodePool"})
		}))
		defer server.Close()

		c := newTestClient(t, server.URL)

		_, err := c.SpotNodePools().Update(context.Background(), &spot.SpotNodePoolUpsert{
			Name:     "pool-1",
			Desired:  5,
			BidPrice: "0.009",
		}, "org-abc123")
		require.NoError(t, err)
	})
}

func TestInventoryClient(t *testing.T) {
	t.Parallel()
	t.Run("vmpools use the vmcloudspace selector", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/apis/ngpc.rxt.io/v1/namespaces/org-abc123/vmpools", request.URL.Path)
			assert.Equal(t, "ngpc.rxt.io/vmcloudspace=vm-demo", request.URL.Query().Get("labelSelector"))
			writeJSON(t, writer, map[string]any{"items": []any{}})
		}))
		defer server.Close()

		c := newTestClient(t, server.URL)

		_, err := c.Inventory().ListVMPools(context.Background(), "vm-demo", "org-abc123")
		require.NoError(t, err)
	})

	t.Run("organization events pass the limits parameter", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/apis/metrics.ngpc.rxt.io/v1/events/organizations", request.URL.Path)
			assert.Equal(t, "25", request.URL.Query().Get("limits"))
			writeJSON(t, writer, map[string]any{
				"org_id": "org-abc123",
				"events": [][]string{{"2026-01-02T03:04:05Z", "preempted"}},
			})
		}))
		defer server.Close()

		c := newTestClient(t, server.URL)

		events, err := c.Inventory().ListOrganizationEvents(context.Background(), 25)
		require.NoError(t, err)
		assert.Equal(t, "org-abc123", events.OrgID)
		require.Len(t, events.Events, 1)
		assert.Equal(t, "preempted", events.Events[0][1])
	})
}
