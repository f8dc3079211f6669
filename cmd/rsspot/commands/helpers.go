// Package commands implements the rsspot CLI commands.
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/SparkAIUR/rsspot-sdk/internal/state"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spotclient"
)

// Common string constants used throughout the commands package.
const (
	NotAvailable = "N/A"

	// Output formats.
	OutputFormatTable = "table"
	OutputFormatJSON  = "json"
	OutputFormatYAML  = "yaml"

	defaultYAMLIndent = 2
)

// Static errors for err113 compliance.
var (
	ErrKeyValueFormat = errors.New("expected key=value format")
	ErrJSONObject     = errors.New("expected a JSON object")
)

// currentScope builds the client scope from the global flags.
func currentScope() spotclient.Scope {
	return spotclient.Scope{
		Profile: viper.GetString("profile"),
		Org:     viper.GetString("org"),
		Region:  viper.GetString("region"),
	}
}

// getClient returns the shared client for the current scope.
func getClient(ctx context.Context, registry *spotclient.Registry) (*spotclient.Client, error) {
	return registry.Get(ctx, currentScope())
}

// openStateStore opens the local state database without building an
// authenticated client.
func openStateStore() (*state.Store, error) {
	path := os.Getenv("RSSPOT_STATE_PATH")
	if path == "" {
		resolved, err := state.DefaultStatePath()
		if err != nil {
			return nil, err
		}

		path = resolved
	}

	return state.Open(path)
}

// StandardJSONRenderer encodes data as indented JSON on stdout.
func StandardJSONRenderer[T any](data T) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	err := encoder.Encode(data)
	if err != nil {
		return fmt.Errorf("encoding data to JSON: %w", err)
	}

	return nil
}

// StandardYAMLRenderer encodes data as YAML on stdout.
func StandardYAMLRenderer[T any](data T) error {
	encoder := yaml.NewEncoder(os.Stdout)
	encoder.SetIndent(defaultYAMLIndent)

	err := encoder.Encode(data)
	if err != nil {
		return fmt.Errorf("encoding data to YAML: %w", err)
	}

	return nil
}

// renderStructured emits data in the requested non-table format, or
// falls through to the provided table renderer.
func renderStructured[T any](data T, table func() error) error {
	switch viper.GetString("output") {
	case OutputFormatJSON:
		return StandardJSONRenderer(data)
	case OutputFormatYAML:
		return StandardYAMLRenderer(data)
	default:
		return table()
	}
}

// parseKeyValues parses repeated key=value flag entries.
func parseKeyValues(entries []string) (map[string]string, error) {
	parsed := make(map[string]string, len(entries))

	for _, entry := range entries {
		key, value, found := strings.Cut(entry, "=")
		if !found {
			return nil, fmt.Errorf("%w, got: %s", ErrKeyValueFormat, entry)
		}

		parsed[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	return parsed, nil
}

// orNA substitutes N/A for empty display values.
func orNA(value string) string {
	if value == "" {
		return NotAvailable
	}

	return value
}
