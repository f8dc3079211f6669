// Package client implements the spot.Client interface: transport
// wiring, organization resolution, and the per-resource API clients.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/maypok86/otter/v2"

	"github.com/SparkAIUR/rsspot-sdk/internal/auth"
	"github.com/SparkAIUR/rsspot-sdk/internal/constants"
	"github.com/SparkAIUR/rsspot-sdk/internal/http"
	"github.com/SparkAIUR/rsspot-sdk/internal/state"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

const (
	orgCacheSize = 128
	orgCacheTTL  = time.Hour
)

// Client implements the spot.Client interface.
type Client struct {
	httpClient   *http.Client
	tokenManager http.TokenManager
	store        *state.Store
	logger       spot.Logger

	defaultOrg   string
	defaultOrgID string

	// Org resolution memos; name -> id and id -> name.
	orgIDByName *otter.Cache[string, string]
	orgNameByID *otter.Cache[string, string]

	organizations     spot.OrganizationsClient
	regions           spot.RegionsClient
	serverClasses     spot.ServerClassesClient
	pricing           spot.PricingClient
	cloudspaces       spot.CloudspacesClient
	spotNodePools     spot.SpotNodePoolsClient
	onDemandNodePools spot.OnDemandNodePoolsClient
	inventory         spot.InventoryClient

	refreshToken string

	closeOnce sync.Once
	closeErr  error
}

// New creates a client from config. The config must carry a refresh
// token or a pre-issued access token.
//
//nolint:cyclop // config normalization is a flat default-filling sequence
func New(ctx context.Context, config *spot.Config) (*Client, error) {
	if config == nil {
		return nil, spot.ErrConfigRequired
	}

	if config.RefreshToken == "" && config.AccessToken == "" {
		return nil, spot.ErrRefreshTokenRequired
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = constants.DefaultBaseURL
	}

	oauthURL := config.OAuthURL
	if oauthURL == "" {
		oauthURL = constants.DefaultOAuthURL
	}

	clientID := config.ClientID
	if clientID == "" {
		clientID = constants.DefaultClientID
	}

	cacheConfig := config.Cache
	if cacheConfig == nil {
		cacheConfig = spot.DefaultCacheConfig()
	}

	store, err := openStore(config)
	if err != nil {
		return nil, err
	}

	controller, err := buildCacheController(cacheConfig, store)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}

		return nil, err
	}

	httpClient := http.NewClient(baseURL, nil, httpOptions(config, controller)...)

	tokenManager := buildTokenManager(httpClient, oauthURL, clientID, config)
	httpClient.SetTokenManager(tokenManager)

	client := &Client{
		httpClient:   httpClient,
		tokenManager: tokenManager,
		store:        store,
		logger:       config.Logger,
		defaultOrg:   config.Org,
		defaultOrgID: config.OrgID,
		refreshToken: config.RefreshToken,
		orgIDByName: otter.Must(&otter.Options[string, string]{
			MaximumSize:      orgCacheSize,
			ExpiryCalculator: otter.ExpiryCreating[string, string](orgCacheTTL),
		}),
		orgNameByID: otter.Must(&otter.Options[string, string]{
			MaximumSize:      orgCacheSize,
			ExpiryCalculator: otter.ExpiryCreating[string, string](orgCacheTTL),
		}),
	}

	client.initializeResourceClients()

	return client, nil
}

func openStore(config *spot.Config) (*state.Store, error) {
	// The sqlite store backs both the durable cache tier and the
	// preference/history/ledger tables, so it is opened even when
	// the cache backend is a different type.
	path := config.StatePath
	if path == "" {
		defaultPath, err := state.DefaultStatePath()
		if err != nil {
			return nil, &spot.ConfigError{Message: "resolving state path", Err: err}
		}

		path = defaultPath
	}

	store, err := state.Open(path)
	if err != nil {
		return nil, &spot.ConfigError{Message: "opening state store", Err: err}
	}

	return store, nil
}

func buildCacheController(cacheConfig *spot.CacheConfig, store *state.Store) (*http.CacheController, error) {
	if !cacheConfig.Enabled {
		return nil, nil //nolint:nilnil // a nil controller disables caching in the transport
	}

	var durable spot.Cache

	switch cacheConfig.Type {
	case spot.CacheTypeSQLite, "":
		durable = store.Cache()
	default:
		backend, err := spot.NewCacheFromConfig(cacheConfig)
		if err != nil {
			return nil, err
		}

		durable = backend
	}

	return http.NewCacheController(cacheConfig, durable), nil
}

func httpOptions(config *spot.Config, controller *http.CacheController) []http.ClientOption {
	opts := []http.ClientOption{}

	if config.Logger != nil {
		opts = append(opts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		opts = append(opts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		opts = append(opts, http.WithUserAgent(config.UserAgent))
	}

	if config.RequestTimeout > 0 {
		opts = append(opts, http.WithTimeout(config.RequestTimeout))
	}

	if config.Retry != nil {
		opts = append(opts, http.WithRetryPolicy(http.NewRetryPolicy(*config.Retry)))
	}

	if config.HTTPClient != nil {
		opts = append(opts, http.WithHTTPClient(config.HTTPClient))
	}

	if controller != nil {
		opts = append(opts, http.WithCacheController(controller))
	}

	return opts
}

func buildTokenManager(httpClient *http.Client, oauthURL, clientID string, config *spot.Config) http.TokenManager {
	if config.RefreshToken == "" {
		return auth.NewStaticTokenManager(config.AccessToken)
	}

	manager := auth.NewRefreshTokenManager(httpClient, oauthURL, clientID, config.RefreshToken)
	if config.AccessToken != "" {
		manager.SetToken(config.AccessToken, time.Time{})
	}

	return manager
}

func (c *Client) initializeResourceClients() {
	c.organizations = NewOrganizationsClient(c.httpClient)
	c.regions = NewRegionsClient(c.httpClient)
	c.serverClasses = NewServerClassesClient(c.httpClient)
	c.pricing = NewPricingClient(c.serverClasses)
	c.cloudspaces = NewCloudspacesClient(c.httpClient, c)
	c.spotNodePools = NewSpotNodePoolsClient(c.httpClient, c)
	c.onDemandNodePools = NewOnDemandNodePoolsClient(c.httpClient, c)
	c.inventory = NewInventoryClient(c.httpClient, c)
}

// Organizations implements spot.Client.Organizations.
func (c *Client) Organizations() spot.OrganizationsClient {
	return c.organizations
}

// Regions implements spot.Client.Regions.
func (c *Client) Regions() spot.RegionsClient {
	return c.regions
}

// ServerClasses implements spot.Client.ServerClasses.
func (c *Client) ServerClasses() spot.ServerClassesClient {
	return c.serverClasses
}

// Pricing implements spot.Client.Pricing.
func (c *Client) Pricing() spot.PricingClient {
	return c.pricing
}

// Cloudspaces implements spot.Client.Cloudspaces.
func (c *Client) Cloudspaces() spot.CloudspacesClient {
	return c.cloudspaces
}

// SpotNodePools implements spot.Client.SpotNodePools.
func (c *Client) SpotNodePools() spot.SpotNodePoolsClient {
	return c.spotNodePools
}

// OnDemandNodePools implements spot.Client.OnDemandNodePools.
func (c *Client) OnDemandNodePools() spot.OnDemandNodePoolsClient {
	return c.onDemandNodePools
}

// Inventory implements spot.Client.Inventory.
func (c *Client) Inventory() spot.InventoryClient {
	return c.inventory
}

// State exposes the sqlite state store for CLI-level features
// (history, ledger, preferences).
func (c *Client) State() *state.Store {
	return c.store
}

// RefreshToken returns the configured refresh token. Kubeconfig
// generation embeds it.
func (c *Client) RefreshToken() string {
	return c.refreshToken
}

// Request implements spot.Client.Request.
func (c *Client) Request(ctx context.Context, method, path string, opts *spot.RequestOptions) (json.RawMessage, error) {
	req := &http.Request{Method: method, Path: path}
	if opts != nil {
		req.Query = opts.Query
		req.Body = opts.Body
		req.ContentType = opts.ContentType
		req.Unauthenticated = opts.Unauthenticated
	}

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	return resp.Body, nil
}

// Authenticate implements spot.Client.Authenticate.
func (c *Client) Authenticate(ctx context.Context, forceRefresh bool) (string, error) {
	return c.tokenManager.Token(ctx, forceRefresh)
}

// normalizeOrgID canonicalizes an organization id.
func normalizeOrgID(value string) string {
	return strings.ToLower(strings.ReplaceAll(value, "_", "-"))
}

func isOrgID(value string) bool {
	return strings.HasPrefix(value, "org-") || strings.HasPrefix(value, "org_")
}

// ResolveOrgID implements spot.Client.ResolveOrgID. Lookups by name
// go through the organizations API once and are memoized.
func (c *Client) ResolveOrgID(ctx context.Context, org string) (string, error) {
	candidate := firstNonEmpty(org, c.defaultOrgID, c.defaultOrg)
	if candidate == "" {
		return "", spot.ErrOrganizationRequired
	}

	if isOrgID(candidate) {
		return normalizeOrgID(candidate), nil
	}

	if id, ok := c.orgIDByName.GetIfPresent(candidate); ok {
		return id, nil
	}

	found, err := c.organizations.Get(ctx, candidate)
	if err != nil {
		return "", fmt.Errorf("resolving organization %q: %w", candidate, err)
	}

	resolved := normalizeOrgID(found.ID)
	c.orgIDByName.Set(found.Name, resolved)
	c.orgIDByName.Set(candidate, resolved)
	c.orgNameByID.Set(resolved, found.Name)

	return resolved, nil
}

// ResolveOrgName implements spot.Client.ResolveOrgName.
func (c *Client) ResolveOrgName(ctx context.Context, org string) (string, error) {
	candidate := firstNonEmpty(org, c.defaultOrg, c.defaultOrgID)
	if candidate == "" {
		return "", spot.ErrOrganizationRequired
	}

	if !isOrgID(candidate) {
		return candidate, nil
	}

	normalized := normalizeOrgID(candidate)
	if name, ok := c.orgNameByID.GetIfPresent(normalized); ok {
		return name, nil
	}

	found, err := c.organizations.Get(ctx, normalized)
	if err != nil {
		return "", fmt.Errorf("resolving organization %q: %w", candidate, err)
	}

	resolved := normalizeOrgID(found.ID)
	c.orgIDByName.Set(found.Name, resolved)
	c.orgNameByID.Set(resolved, found.Name)

	return found.Name, nil
}

// Close implements spot.Client.Close.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.store != nil {
			c.closeErr = c.store.Close()
		}
	})

	return c.closeErr
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}

	return ""
}
