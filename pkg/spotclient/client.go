// Package spotclient is the main entry point for creating Rackspace
// Spot API clients. The returned client exposes a blocking call
// surface that funnels every operation through one persistent runner
// goroutine per client; Async returns the direct client for callers
// that manage their own concurrency.
package spotclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/SparkAIUR/rsspot-sdk/internal/bridge"
	"github.com/SparkAIUR/rsspot-sdk/internal/client"
	"github.com/SparkAIUR/rsspot-sdk/internal/state"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

// Client is the blocking client facade. All methods are safe for
// concurrent use; operations issued from multiple goroutines are
// serialized onto the client's runner.
type Client struct {
	direct *client.Client
	runner *bridge.Runner
}

var _ spot.Client = (*Client)(nil)

// New creates a client from config.
func New(ctx context.Context, config *spot.Config) (*Client, error) {
	if config == nil {
		return nil, spot.ErrConfigRequired
	}

	if config.BaseURL != "" {
		config.BaseURL = normalizeEndpoint(config.BaseURL)
	}

	if config.OAuthURL != "" {
		config.OAuthURL = normalizeEndpoint(config.OAuthURL)
	}

	direct, err := client.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}

	return &Client{direct: direct, runner: bridge.NewRunner()}, nil
}

// normalizeEndpoint trims trailing slashes and defaults the scheme to
// https.
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSuffix(endpoint, "/")
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	return endpoint
}

// Async returns the direct client. Calls on it bypass the runner, so
// it is the surface to use from code already running inside a
// runner-submitted operation.
func (c *Client) Async() spot.Client {
	return c.direct
}

// State exposes the sqlite state store backing the client.
func (c *Client) State() *state.Store {
	return c.direct.State()
}

// Request implements spot.Client.Request.
func (c *Client) Request(ctx context.Context, method, path string, opts *spot.RequestOptions) (json.RawMessage, error) {
	return bridge.Do(c.runner, ctx, func(ctx context.Context) (json.RawMessage, error) {
		return c.direct.Request(ctx, method, path, opts)
	})
}

// RequestAsync issues a raw request on the runner without blocking.
func (c *Client) RequestAsync(ctx context.Context, method, path string,
	opts *spot.RequestOptions,
) (*bridge.Future[json.RawMessage], error) {
	return bridge.Go(c.runner, ctx, func(ctx context.Context) (json.RawMessage, error) {
		return c.direct.Request(ctx, method, path, opts)
	})
}

// Authenticate implements spot.Client.Authenticate.
func (c *Client) Authenticate(ctx context.Context, forceRefresh bool) (string, error) {
	return bridge.Do(c.runner, ctx, func(ctx context.Context) (string, error) {
		return c.direct.Authenticate(ctx, forceRefresh)
	})
}

// ResolveOrgID implements spot.Client.ResolveOrgID.
func (c *Client) ResolveOrgID(ctx context.Context, org string) (string, error) {
	return bridge.Do(c.runner, ctx, func(ctx context.Context) (string, error) {
		return c.direct.ResolveOrgID(ctx, org)
	})
}

// ResolveOrgName implements spot.Client.ResolveOrgName.
func (c *Client) ResolveOrgName(ctx context.Context, org string) (string, error) {
	return bridge.Do(c.runner, ctx, func(ctx context.Context) (string, error) {
		return c.direct.ResolveOrgName(ctx, org)
	})
}

// Close shuts the runner down and releases the client's resources.
// Safe to call more than once.
func (c *Client) Close() error {
	c.runner.Close()

	return c.direct.Close()
}

// Organizations implements spot.Client.Organizations.
func (c *Client) Organizations() spot.OrganizationsClient {
	return &organizationsFacade{c}
}

// Regions implements spot.Client.Regions.
func (c *Client) Regions() spot.RegionsClient {
	return &regionsFacade{c}
}

// ServerClasses implements spot.Client.ServerClasses.
func (c *Client) ServerClasses() spot.ServerClassesClient {
	return &serverClassesFacade{c}
}

// Pricing implements spot.Client.Pricing.
func (c *Client) Pricing() spot.PricingClient {
	return &pricingFacade{c}
}

// Cloudspaces implements spot.Client.Cloudspaces.
func (c *Client) Cloudspaces() spot.CloudspacesClient {
	return &cloudspacesFacade{c}
}

// SpotNodePools implements spot.Client.SpotNodePools.
func (c *Client) SpotNodePools() spot.SpotNodePoolsClient {
	return &spotNodePoolsFacade{c}
}

// OnDemandNodePools implements spot.Client.OnDemandNodePools.
func (c *Client) OnDemandNodePools() spot.OnDemandNodePoolsClient {
	return &onDemandNodePoolsFacade{c}
}

// Inventory implements spot.Client.Inventory.
func (c *Client) Inventory() spot.InventoryClient {
	return &inventoryFacade{c}
}
