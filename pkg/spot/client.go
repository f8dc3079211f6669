package spot

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// OrganizationsClient provides access to organization operations.
type OrganizationsClient interface {
	List(ctx context.Context) (*OrganizationsResponse, error)
	Get(ctx context.Context, nameOrID string) (*Organization, error)
}

// RegionsClient provides access to region operations.
type RegionsClient interface {
	List(ctx context.Context) ([]RegionSummary, error)
	Get(ctx context.Context, name string) (*RegionSummary, error)
}

// ServerClassesClient provides access to server class operations.
type ServerClassesClient interface {
	List(ctx context.Context, opts *ServerClassListOptions) ([]ServerClassSummary, error)
	Get(ctx context.Context, name string) (*ServerClassSummary, error)
}

// ServerClassListOptions filters server class listings.
type ServerClassListOptions struct {
	// Region restricts results to one region when non-empty.
	Region string

	// IncludeUnavailable keeps classes whose availability is not
	// "available"; the default is to drop them.
	IncludeUnavailable bool
}

// PricingClient provides pricing projections sourced from server
// class data.
type PricingClient interface {
	List(ctx context.Context, region string) (*PriceDetailsList, error)
	ForServerClass(ctx context.Context, serverClass string) (*PriceDetails, error)
}

// CloudspacesClient provides access to cloudspace operations.
type CloudspacesClient interface {
	List(ctx context.Context, org string) (*CloudspaceListResponse, error)
	Get(ctx context.Context, name, org string) (*CloudspaceItem, error)
	Create(ctx context.Context, req *CloudspaceCreateRequest, org string) (map[string]any, error)
	Delete(ctx context.Context, name, org string) (map[string]any, error)
	GenerateKubeconfig(ctx context.Context, cloudspace, org string) (string, error)
}

// SpotNodePoolsClient provides access to spot nodepool operations.
type SpotNodePoolsClient interface {
	List(ctx context.Context, org, cloudspace string) (*SpotNodePoolListResponse, error)
	Get(ctx context.Context, name, org string) (*SpotNodePoolItem, error)
	Create(ctx context.Context, req *SpotNodePoolUpsert, org string) (map[string]any, error)
	Update(ctx context.Context, req *SpotNodePoolUpsert, org string) (map[string]any, error)
	Delete(ctx context.Context, name, org string) (map[string]any, error)
}

// OnDemandNodePoolsClient provides access to on-demand nodepool
// operations.
type OnDemandNodePoolsClient interface {
	List(ctx context.Context, org, cloudspace string) (*OnDemandNodePoolListResponse, error)
	Get(ctx context.Context, name, org string) (*OnDemandNodePoolItem, error)
	Create(ctx context.Context, req *OnDemandNodePoolUpsert, org string) (map[string]any, error)
	Update(ctx context.Context, req *OnDemandNodePoolUpsert, org string) (map[string]any, error)
	Delete(ctx context.Context, name, org string) (map[string]any, error)
}

// InventoryClient provides VM-level inventory used by controller-style
// workflows.
type InventoryClient interface {
	ListVMCloudspaces(ctx context.Context, org string) (*VMCloudSpaceListResponse, error)
	ListVMPools(ctx context.Context, vmcloudspace, org string) (*OnDemandNodePoolListResponse, error)
	ListOrganizationEvents(ctx context.Context, limit int) (*OrganizationEventsResponse, error)
}

// RequestOptions carries the optional parts of a raw API request.
type RequestOptions struct {
	Query       map[string]string
	Body        any
	ContentType string

	// Unauthenticated skips the Authorization header.
	Unauthenticated bool
}

// Client is the Spot API client surface. All methods are safe for
// concurrent use by multiple goroutines.
type Client interface {
	Organizations() OrganizationsClient
	Regions() RegionsClient
	ServerClasses() ServerClassesClient
	Pricing() PricingClient
	Cloudspaces() CloudspacesClient
	SpotNodePools() SpotNodePoolsClient
	OnDemandNodePools() OnDemandNodePoolsClient
	Inventory() InventoryClient

	// Request is the raw request primitive: one logical call with
	// auth, caching, and retries applied. The response is always a
	// single JSON object.
	Request(ctx context.Context, method, path string, opts *RequestOptions) (json.RawMessage, error)

	// Authenticate returns a valid bearer token, refreshing it first
	// when forceRefresh is set or the cached token is near expiry.
	Authenticate(ctx context.Context, forceRefresh bool) (string, error)

	// ResolveOrgID resolves an organization selector (name or id) to
	// the canonical organization id.
	ResolveOrgID(ctx context.Context, org string) (string, error)

	// ResolveOrgName resolves an organization selector (name or id)
	// to the organization name.
	ResolveOrgName(ctx context.Context, org string) (string, error)

	// Close releases the client's transport and state resources.
	Close() error
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// RetryConfig tunes the transport retry policy.
type RetryConfig struct {
	// MaxAttempts is the total attempt budget per logical request,
	// including the first attempt.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`

	// BaseDelay seeds the exponential backoff.
	BaseDelay time.Duration `yaml:"base_delay" json:"base_delay"`

	// MaxDelay clamps the backoff.
	MaxDelay time.Duration `yaml:"max_delay" json:"max_delay"`

	// Jitter is the uniform jitter fraction (0 disables jitter).
	Jitter float64 `yaml:"jitter" json:"jitter"`

	// RetryStatuses overrides the retryable status set
	// (default 429, 500, 502, 503, 504).
	RetryStatuses []int `yaml:"retry_statuses,omitempty" json:"retry_statuses,omitempty"`
}

// Config configures a Spot API client.
type Config struct {
	// BaseURL is the Spot API endpoint. Defaults to the public
	// Rackspace Spot endpoint.
	BaseURL string

	// OAuthURL is the base URL of the token service; the token
	// endpoint is "<OAuthURL>/oauth/token".
	OAuthURL string

	// ClientID identifies the OAuth client used for the
	// refresh_token grant.
	ClientID string

	// RefreshToken is the long-lived credential used to obtain
	// bearer tokens. Required unless AccessToken is set and never
	// expires within the session.
	RefreshToken string

	// AccessToken optionally seeds the bearer token; it is still
	// refreshed through RefreshToken once it nears expiry.
	AccessToken string

	// Org, OrgID, and Region select defaults for resource operations.
	Org    string
	OrgID  string
	Region string

	// RequestTimeout bounds each request attempt. It is a fresh
	// budget per attempt, not cumulative across retries.
	RequestTimeout time.Duration

	// Retry tunes the retry policy; nil selects defaults.
	Retry *RetryConfig

	// Cache tunes the response cache; nil selects defaults.
	Cache *CacheConfig

	// StatePath is the sqlite state file. Empty selects the default
	// path under the user config dir; ":memory:" keeps state
	// in-process only.
	StatePath string

	// Debug enables verbose request/response logging when a Logger
	// is configured.
	Debug bool

	// Logger receives structured SDK logs.
	Logger Logger

	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// HTTPClient overrides the underlying HTTP client. Mostly for
	// tests.
	HTTPClient *http.Client
}
