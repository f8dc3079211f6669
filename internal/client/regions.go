package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SparkAIUR/rsspot-sdk/internal/http"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

// RegionsClient implements spot.RegionsClient.
type RegionsClient struct {
	httpClient *http.Client
}

// NewRegionsClient creates a new regions client.
func NewRegionsClient(httpClient *http.Client) *RegionsClient {
	return &RegionsClient{httpClient: httpClient}
}

// List implements spot.RegionsClient.List.
func (c *RegionsClient) List(ctx context.Context) ([]spot.RegionSummary, error) {
	resp, err := c.httpClient.Get(ctx, "/apis/ngpc.rxt.io/v1/regions", nil)
	if err != nil {
		return nil, fmt.Errorf("listing regions: %w", err)
	}

	var result spot.RegionsListResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("parsing regions response: %w", err)
	}

	regions := make([]spot.RegionSummary, 0, len(result.Items))
	for _, item := range result.Items {
		regions = append(regions, spot.RegionSummary{
			Name:        item.Metadata.Name,
			Description: item.Spec.Description,
		})
	}

	return regions, nil
}

// Get implements spot.RegionsClient.Get, matching against the listing
// because the API has no per-region endpoint.
func (c *RegionsClient) Get(ctx context.Context, name string) (*spot.RegionSummary, error) {
	regions, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, region := range regions {
		if region.Name == name {
			return &region, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", spot.ErrRegionNotFound, name)
}
