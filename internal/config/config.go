// Package config loads and persists profile configuration for the
// CLI and the client constructors. A config file holds named
// profiles; older installations used a flat single-profile schema,
// which is recognized and folded into a "default" profile on load.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/SparkAIUR/rsspot-sdk/internal/constants"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

// ConfigPathEnvs are checked in order for an explicit config file
// location before the default candidates are searched.
var ConfigPathEnvs = []string{"RSSPOT_CONFIG", "RSSPOT_CONFIG_FILE", "SPOT_CONFIG_FILE"}

// Profile holds the connection settings for one account.
type Profile struct {
	Org                   string  `yaml:"org,omitempty"`
	OrgID                 string  `yaml:"org_id,omitempty"`
	Region                string  `yaml:"region,omitempty"`
	ClientID              string  `yaml:"client_id,omitempty"`
	RefreshToken          string  `yaml:"refresh_token,omitempty"`
	AccessToken           string  `yaml:"access_token,omitempty"`
	BaseURL               string  `yaml:"base_url,omitempty"`
	OAuthURL              string  `yaml:"oauth_url,omitempty"`
	RequestTimeoutSeconds float64 `yaml:"request_timeout_seconds,omitempty"`
	MaxRetries            int     `yaml:"max_retries,omitempty"`
	RetryBackoffFactor    float64 `yaml:"retry_backoff_factor,omitempty"`
}

// File is the root config document.
type File struct {
	ActiveProfile  string             `yaml:"active_profile,omitempty"`
	DefaultProfile string             `yaml:"default_profile,omitempty"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

// DefaultConfigDir returns ~/.config/rsspot.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}

	return filepath.Join(home, ".config", "rsspot"), nil
}

// DefaultConfigCandidates returns the file paths searched for a
// config, in precedence order.
func DefaultConfigCandidates() ([]string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return nil, err
	}

	return []string{
		filepath.Join(dir, "config.yml"),
		filepath.Join(dir, "config.yaml"),
		filepath.Join(dir, "config.toml"),
		filepath.Join(dir, "config.json"),
	}, nil
}

// LegacyConfigPath returns the flat-schema path used by older
// installations.
func LegacyConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}

	return filepath.Join(home, ".spot_config"), nil
}

// ResolveConfigPath finds the config file to use: the explicit path
// if given, then the path env vars, then the default candidates, then
// the legacy path. The returned path may not exist yet; exists
// reports whether it does.
func ResolveConfigPath(explicit string) (path string, exists bool, err error) {
	if explicit != "" {
		_, statErr := os.Stat(explicit)

		return explicit, statErr == nil, nil
	}

	for _, envName := range ConfigPathEnvs {
		envPath := os.Getenv(envName)
		if envPath == "" {
			continue
		}

		_, statErr := os.Stat(envPath)

		return envPath, statErr == nil, nil
	}

	candidates, err := DefaultConfigCandidates()
	if err != nil {
		return "", false, err
	}

	for _, candidate := range candidates {
		if _, statErr := os.Stat(candidate); statErr == nil {
			return candidate, true, nil
		}
	}

	legacy, err := LegacyConfigPath()
	if err != nil {
		return "", false, err
	}

	if _, statErr := os.Stat(legacy); statErr == nil {
		return legacy, true, nil
	}

	return candidates[0], false, nil
}

// Load reads and normalizes the config file at path. A missing file
// yields an empty config rather than an error.
func Load(path string) (*File, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &File{Profiles: map[string]Profile{}}, nil
		}

		return nil, &spot.ConfigError{Message: fmt.Sprintf("reading config file %s", path), Err: err}
	}

	parser := viper.New()
	parser.SetConfigFile(path)

	if filepath.Ext(path) == "" {
		// The legacy flat file has no extension; it was historically
		// written as YAML.
		parser.SetConfigType("yaml")
	}

	if err := parser.ReadInConfig(); err != nil {
		return nil, &spot.ConfigError{Message: fmt.Sprintf("reading config file %s", path), Err: err}
	}

	return normalize(parser.AllSettings()), nil
}

// Save writes the config document to path as YAML with owner-only
// permissions.
func Save(file *File, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm); err != nil {
		return &spot.ConfigError{Message: "creating config directory", Err: err}
	}

	data, err := yaml.Marshal(file)
	if err != nil {
		return &spot.ConfigError{Message: "encoding config", Err: err}
	}

	if err := os.WriteFile(path, data, constants.ConfigFilePerm); err != nil {
		return &spot.ConfigError{Message: fmt.Sprintf("writing config file %s", path), Err: err}
	}

	return nil
}

// legacyProfileKeys are the top-level keys that mark a flat
// single-profile document. All lowercase: viper lowercases keys.
var legacyProfileKeys = []string{
	"org", "organization", "org_id", "orgid", "organization_id",
	"region", "default_region",
	"client_id", "clientid",
	"refresh_token", "refreshtoken",
	"access_token", "accesstoken",
	"base_url", "baseurl",
	"oauth_url", "oauthurl", "auth_url", "authurl",
	"request_timeout_seconds", "requesttimeoutseconds",
	"max_retries", "maxretries",
	"retry_backoff_factor", "retrybackofffactor",
}

func normalize(raw map[string]any) *File {
	file := &File{
		ActiveProfile:  getString(raw, "active_profile", "activeprofile"),
		DefaultProfile: getString(raw, "default_profile", "defaultprofile"),
		Profiles:       map[string]Profile{},
	}

	if profiles, ok := raw["profiles"].(map[string]any); ok {
		for name, value := range profiles {
			if profileMap, ok := value.(map[string]any); ok {
				file.Profiles[name] = parseProfile(profileMap)
			}
		}

		return file
	}

	// Flat schema: every recognized profile key at the top level
	// becomes the "default" profile.
	for _, key := range legacyProfileKeys {
		if _, ok := raw[key]; ok {
			file.Profiles["default"] = parseProfile(raw)

			if file.ActiveProfile == "" {
				file.ActiveProfile = "default"
			}

			break
		}
	}

	return file
}

func parseProfile(profileMap map[string]any) Profile {
	return Profile{
		Org:                   getString(profileMap, "org", "organization"),
		OrgID:                 getString(profileMap, "org_id", "orgid", "organization_id"),
		Region:                getString(profileMap, "region", "default_region"),
		ClientID:              getString(profileMap, "client_id", "clientid"),
		RefreshToken:          getString(profileMap, "refresh_token", "refreshtoken"),
		AccessToken:           getString(profileMap, "access_token", "accesstoken"),
		BaseURL:               getString(profileMap, "base_url", "baseurl"),
		OAuthURL:              getString(profileMap, "oauth_url", "oauthurl", "auth_url", "authurl"),
		RequestTimeoutSeconds: getFloat(profileMap, "request_timeout_seconds", "requesttimeoutseconds"),
		MaxRetries:            getInt(profileMap, "max_retries", "maxretries"),
		RetryBackoffFactor:    getFloat(profileMap, "retry_backoff_factor", "retrybackofffactor"),
	}
}

func getString(source map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := source[key].(string); ok && value != "" {
			return value
		}
	}

	return ""
}

func getFloat(source map[string]any, keys ...string) float64 {
	for _, key := range keys {
		switch value := source[key].(type) {
		case float64:
			return value
		case int:
			return float64(value)
		}
	}

	return 0
}

func getInt(source map[string]any, keys ...string) int {
	for _, key := range keys {
		switch value := source[key].(type) {
		case int:
			return value
		case float64:
			return int(value)
		}
	}

	return 0
}
