package spotclient

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/SparkAIUR/rsspot-sdk/internal/config"
	"github.com/SparkAIUR/rsspot-sdk/internal/state"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

// Static errors for err113 compliance.
var (
	// ErrRegistryClosed is returned when a registry is used after CloseAll.
	ErrRegistryClosed = errors.New("client registry is closed")
)

// Scope selects a cached client inside a Registry. Clients are shared
// per distinct (Profile, Org, Region) tuple; a zero Scope selects the
// active profile with no org or region override.
type Scope struct {
	Profile string
	Org     string
	Region  string
}

// BuildFunc constructs the client for a scope on first use.
type BuildFunc func(ctx context.Context, scope Scope) (*Client, error)

// Registry caches clients keyed by scope so repeated lookups reuse
// connections, caches, and runner goroutines. The registry is owned by
// the application entry point and passed where needed; it is safe for
// concurrent use.
type Registry struct {
	mutex   sync.Mutex
	build   BuildFunc
	clients map[Scope]*Client
	closed  bool
}

// NewRegistry creates a registry that builds clients with build. When
// build is nil, ProfileBuilder("") is used.
func NewRegistry(build BuildFunc) *Registry {
	if build == nil {
		build = ProfileBuilder("")
	}

	return &Registry{
		build:   build,
		clients: make(map[Scope]*Client),
	}
}

// Get returns the client for scope, constructing it on first use.
func (r *Registry) Get(ctx context.Context, scope Scope) (*Client, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}

	if existing, ok := r.clients[scope]; ok {
		return existing, nil
	}

	built, err := r.build(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("building client for profile %q: %w", scope.Profile, err)
	}

	r.clients[scope] = built

	return built, nil
}

// Len reports the number of cached clients.
func (r *Registry) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return len(r.clients)
}

// CloseAll closes every cached client and marks the registry closed.
// Subsequent Get calls return ErrRegistryClosed.
func (r *Registry) CloseAll() error {
	r.mutex.Lock()
	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}

	r.clients = make(map[Scope]*Client)
	r.closed = true
	r.mutex.Unlock()

	var errs []error

	for _, c := range clients {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// ProfileBuilder returns a BuildFunc that loads the named profile from
// the configuration file at configPath (empty means the default search
// order), applies RSSPOT_* environment overrides, and applies the
// scope's org and region on top.
func ProfileBuilder(configPath string) BuildFunc {
	return func(ctx context.Context, scope Scope) (*Client, error) {
		clientConfig, err := LoadConfig(ctx, configPath, scope)
		if err != nil {
			return nil, err
		}

		return New(ctx, clientConfig)
	}
}

// LoadConfig resolves the effective client configuration for a scope.
// Precedence per setting: the scope itself, then RSSPOT_* environment
// overrides, then stored state preferences, then the profile file.
func LoadConfig(ctx context.Context, configPath string, scope Scope) (*spot.Config, error) {
	overrides, err := config.LoadOverrides(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading environment overrides: %w", err)
	}

	prefs := storedPreferences(ctx)

	profileName := scope.Profile
	if profileName == "" {
		profileName = overrides.Profile
	}

	if profileName == "" {
		profileName = prefs.Profile
	}

	manager, err := config.NewManager(configPath)
	if err != nil {
		return nil, fmt.Errorf("resolving configuration path: %w", err)
	}

	profile, err := manager.GetProfile(profileName)

	switch {
	case err == nil:
	case errors.Is(err, spot.ErrProfileNotFound) && profileName == "":
		// No config file is fine when the environment carries the
		// credentials.
		profile = &config.Profile{}
	default:
		return nil, err
	}

	overrides.Apply(profile)

	if profile.Org == "" && profile.OrgID == "" {
		profile.Org = prefs.Org
	}

	if profile.Region == "" {
		profile.Region = prefs.Region
	}

	if scope.Org != "" {
		profile.Org = scope.Org
		profile.OrgID = ""
	}

	if scope.Region != "" {
		profile.Region = scope.Region
	}

	return profile.ClientConfig(), nil
}

// preferences are the stored state defaults consulted when neither the
// scope nor the environment selects a profile, org, or region.
type preferences struct {
	Profile string
	Org     string
	Region  string
}

// storedPreferences reads default_profile, default_org, and
// default_region from the state store. Preferences are advisory: a
// missing or unreadable store yields empty values.
func storedPreferences(ctx context.Context) preferences {
	path := os.Getenv("RSSPOT_STATE_PATH")
	if path == "" {
		resolved, err := state.DefaultStatePath()
		if err != nil {
			return preferences{}
		}

		path = resolved
	}

	if _, err := os.Stat(path); err != nil {
		return preferences{}
	}

	store, err := state.Open(path)
	if err != nil {
		return preferences{}
	}

	defer func() { _ = store.Close() }()

	var prefs preferences
	prefs.Profile, _ = store.GetPreference(ctx, "default_profile")
	prefs.Org, _ = store.GetPreference(ctx, "default_org")
	prefs.Region, _ = store.GetPreference(ctx, "default_region")

	return prefs
}

// SetDefaultProfile stores the profile used when neither the scope
// nor the environment selects one.
func SetDefaultProfile(ctx context.Context, name string) error {
	return setPreference(ctx, "default_profile", name)
}

// SetDefaultOrg stores the organization used when the resolved
// profile carries none.
func SetDefaultOrg(ctx context.Context, org string) error {
	return setPreference(ctx, "default_org", org)
}

// SetDefaultRegion stores the region used when the resolved profile
// carries none.
func SetDefaultRegion(ctx context.Context, region string) error {
	return setPreference(ctx, "default_region", region)
}

func setPreference(ctx context.Context, key, value string) error {
	path := os.Getenv("RSSPOT_STATE_PATH")
	if path == "" {
		resolved, err := state.DefaultStatePath()
		if err != nil {
			return fmt.Errorf("resolving state path: %w", err)
		}

		path = resolved
	}

	store, err := state.Open(path)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}

	defer func() { _ = store.Close() }()

	return store.SetPreference(ctx, key, value)
}
