package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/SparkAIUR/rsspot-sdk/internal/constants"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

// Overrides are environment-driven settings that take precedence over
// the profile file.
type Overrides struct {
	Profile string `env:"RSSPOT_PROFILE"`

	Org    string `env:"RSSPOT_ORG"`
	OrgID  string `env:"RSSPOT_ORG_ID"`
	Region string `env:"RSSPOT_REGION"`

	ClientID     string `env:"RSSPOT_CLIENT_ID"`
	RefreshToken string `env:"RSSPOT_REFRESH_TOKEN"`
	AccessToken  string `env:"RSSPOT_ACCESS_TOKEN"`

	BaseURL  string `env:"RSSPOT_BASE_URL"`
	OAuthURL string `env:"RSSPOT_OAUTH_URL"`

	RequestTimeoutSeconds float64 `env:"RSSPOT_REQUEST_TIMEOUT_SECONDS"`
	MaxRetries            int     `env:"RSSPOT_MAX_RETRIES"`
	RetryBackoffFactor    float64 `env:"RSSPOT_RETRY_BACKOFF_FACTOR"`

	Debug bool `env:"RSSPOT_DEBUG"`
}

// LoadOverrides reads the RSSPOT_* environment variables.
func LoadOverrides(ctx context.Context) (*Overrides, error) {
	var overrides Overrides
	if err := envconfig.Process(ctx, &overrides); err != nil {
		return nil, &spot.ConfigError{Message: "reading environment overrides", Err: err}
	}

	return &overrides, nil
}

// Apply merges overrides onto a profile. Set fields win; zero fields
// leave the profile value in place.
func (o *Overrides) Apply(profile *Profile) {
	if o.Org != "" {
		profile.Org = o.Org
	}

	if o.OrgID != "" {
		profile.OrgID = o.OrgID
	}

	if o.Region != "" {
		profile.Region = o.Region
	}

	if o.ClientID != "" {
		profile.ClientID = o.ClientID
	}

	if o.RefreshToken != "" {
		profile.RefreshToken = o.RefreshToken
	}

	if o.AccessToken != "" {
		profile.AccessToken = o.AccessToken
	}

	if o.BaseURL != "" {
		profile.BaseURL = o.BaseURL
	}

	if o.OAuthURL != "" {
		profile.OAuthURL = o.OAuthURL
	}

	if o.RequestTimeoutSeconds > 0 {
		profile.RequestTimeoutSeconds = o.RequestTimeoutSeconds
	}

	if o.MaxRetries > 0 {
		profile.MaxRetries = o.MaxRetries
	}

	if o.RetryBackoffFactor > 0 {
		profile.RetryBackoffFactor = o.RetryBackoffFactor
	}
}

// ClientConfig converts a profile into the client configuration,
// filling retry settings from the profile's retry knobs.
func (p *Profile) ClientConfig() *spot.Config {
	config := &spot.Config{
		BaseURL:      p.BaseURL,
		OAuthURL:     p.OAuthURL,
		ClientID:     p.ClientID,
		RefreshToken: p.RefreshToken,
		AccessToken:  p.AccessToken,
		Org:          p.Org,
		OrgID:        p.OrgID,
		Region:       p.Region,
	}

	if p.RequestTimeoutSeconds > 0 {
		config.RequestTimeout = time.Duration(p.RequestTimeoutSeconds * float64(time.Second))
	}

	if p.MaxRetries > 0 || p.RetryBackoffFactor > 0 {
		retry := spot.RetryConfig{}

		if p.MaxRetries > 0 {
			// MaxRetries counts retries after the first attempt.
			retry.MaxAttempts = p.MaxRetries + 1
		} else {
			retry.MaxAttempts = constants.DefaultMaxAttempts
		}

		if p.RetryBackoffFactor > 0 {
			retry.BaseDelay = time.Duration(p.RetryBackoffFactor * float64(time.Second))
		}

		config.Retry = &retry
	}

	return config
}
