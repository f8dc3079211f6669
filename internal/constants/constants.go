package constants

import "time"

// Service endpoints.
const (
	// DefaultBaseURL is the Rackspace Spot API endpoint.
	DefaultBaseURL = "https://spot.rackspace.com"

	// DefaultOAuthURL is the base URL of the token service.
	DefaultOAuthURL = "https://login.spot.rackspace.com"

	// DefaultClientID is the public OAuth client used by the SDK and CLI.
	DefaultClientID = "mP5rjyrLNOIPxGB22fBWBMgajM6pOVsP"

	// DefaultUserAgent identifies the SDK on outgoing requests.
	DefaultUserAgent = "rsspot-sdk-go/1.0"

	// DefaultKubernetesVersion is the version new cloudspaces run when
	// none is requested.
	DefaultKubernetesVersion = "1.31.1"
)

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout bounds a single request attempt.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry defaults.
const (
	// DefaultMaxAttempts is the total attempt budget per logical request.
	DefaultMaxAttempts = 4

	// DefaultRetryBaseDelay seeds the exponential backoff.
	DefaultRetryBaseDelay = 600 * time.Millisecond

	// DefaultRetryMaxDelay clamps the backoff.
	DefaultRetryMaxDelay = 8 * time.Second

	// DefaultRetryJitter is the uniform jitter fraction applied to delays.
	DefaultRetryJitter = 0.2
)

// Cache defaults.
const (
	// DefaultCacheTTL applies to cacheable reads without a TTL override.
	DefaultCacheTTL = 30 * time.Second

	// DefaultCacheMaxEntries bounds the durable cache tier.
	DefaultCacheMaxEntries = 512

	// FrontCacheMaxEntries bounds the in-process front cache.
	FrontCacheMaxEntries = 2048
)

// Auth defaults.
const (
	// TokenExpirySkew is subtracted from a token's expiry so refresh
	// happens before the credential actually lapses.
	TokenExpirySkew = 60 * time.Second
)

// State store limits.
const (
	// HistoryMaxEntries bounds the command history table.
	HistoryMaxEntries = 2000

	// HistoryListLimit is the default page size for history listings.
	HistoryListLimit = 100

	// LedgerListLimit is the default page size for ledger listings.
	LedgerListLimit = 200
)
