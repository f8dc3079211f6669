package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spotclient"
)

// NewRawCommand creates the raw request escape hatch. It goes through
// the full transport (auth, retries, caching), so responses match
// what the typed commands see.
func NewRawCommand(registry *spotclient.Registry) *cobra.Command {
	var (
		method     string
		path       string
		paramsJSON string
		bodyJSON   string
	)

	cmd := &cobra.Command{
		Use:   "raw",
		Short: "Issue a raw API request",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient(cmd.Context(), registry)
			if err != nil {
				return err
			}

			opts := &spot.RequestOptions{}

			if paramsJSON != "" {
				params := map[string]string{}
				if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
					return fmt.Errorf("%w: parsing --params-json: %w", ErrJSONObject, err)
				}

				opts.Query = params
			}

			if bodyJSON != "" {
				body := map[string]any{}
				if err := json.Unmarshal([]byte(bodyJSON), &body); err != nil {
					return fmt.Errorf("%w: parsing --body-json: %w", ErrJSONObject, err)
				}

				opts.Body = body
			}

			response, err := client.Request(cmd.Context(), strings.ToUpper(method), path, opts)
			if err != nil {
				return err
			}

			var decoded map[string]any
			if err := json.Unmarshal(response, &decoded); err != nil {
				return fmt.Errorf("decoding response: %w", err)
			}

			return renderStructured(decoded, func() error {
				return StandardJSONRenderer(decoded)
			})
		},
	}

	cmd.Flags().StringVarP(&method, "method", "X", "GET", "HTTP method")
	cmd.Flags().StringVar(&path, "path", "/", "API path, e.g. /apis/ngpc.rxt.io/v1/regions")
	cmd.Flags().StringVar(&paramsJSON, "params-json", "", "JSON object of query parameters")
	cmd.Flags().StringVar(&bodyJSON, "body-json", "", "JSON object request body")

	return cmd
}
