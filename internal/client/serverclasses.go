package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/SparkAIUR/rsspot-sdk/internal/http"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

// ServerClassesClient implements spot.ServerClassesClient.
type ServerClassesClient struct {
	httpClient *http.Client
}

// NewServerClassesClient creates a new server classes client.
func NewServerClassesClient(httpClient *http.Client) *ServerClassesClient {
	return &ServerClassesClient{httpClient: httpClient}
}

// toPrice normalizes a price string to a "$" prefix. Empty stays
// empty.
func toPrice(value string) string {
	if value == "" || strings.HasPrefix(value, "$") {
		return value
	}

	return "$" + value
}

func summarize(item *spot.ServerClassItem) spot.ServerClassSummary {
	spec := item.Spec

	marketPrice := ""
	if item.Status != nil && item.Status.SpotPricing != nil {
		marketPrice = item.Status.SpotPricing.MarketPricePerHour
	}

	onDemandPrice := ""
	if spec.OnDemandPricing != nil {
		onDemandPrice = spec.OnDemandPricing.Cost
	}

	return spot.ServerClassSummary{
		Name:                 item.Metadata.Name,
		DisplayName:          spec.DisplayName,
		Category:             spec.Category,
		Region:               spec.Region,
		Availability:         spec.Availability,
		MarketPricePerHour:   toPrice(marketPrice),
		MinBidPricePerHour:   toPrice(spec.MinBidPricePerHour),
		OnDemandPricePerHour: toPrice(onDemandPrice),
		CPU:                  spec.Resources.CPU,
		Memory:               spec.Resources.Memory,
	}
}

// List implements spot.ServerClassesClient.List. Region filtering and
// availability filtering happen client-side; the API returns the full
// catalog.
func (c *ServerClassesClient) List(ctx context.Context, opts *spot.ServerClassListOptions) ([]spot.ServerClassSummary, error) {
	resp, err := c.httpClient.Get(ctx, "/apis/ngpc.rxt.io/v1/serverclasses", nil)
	if err != nil {
		return nil, fmt.Errorf("listing server classes: %w", err)
	}

	var result spot.ServerClassListResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("parsing server classes response: %w", err)
	}

	if opts == nil {
		opts = &spot.ServerClassListOptions{}
	}

	summaries := make([]spot.ServerClassSummary, 0, len(result.Items))

	for i := range result.Items {
		item := &result.Items[i]
		if opts.Region != "" && item.Spec.Region != opts.Region {
			continue
		}

		if !opts.IncludeUnavailable && item.Spec.Availability != "available" {
			continue
		}

		summaries = append(summaries, summarize(item))
	}

	return summaries, nil
}

// Get implements spot.ServerClassesClient.Get.
func (c *ServerClassesClient) Get(ctx context.Context, name string) (*spot.ServerClassSummary, error) {
	resp, err := c.httpClient.Get(ctx, "/apis/ngpc.rxt.io/v1/serverclasses/"+name, nil)
	if err != nil {
		if spot.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", spot.ErrServerClassNotFound, name)
		}

		return nil, fmt.Errorf("getting server class: %w", err)
	}

	var item spot.ServerClassItem
	if err := json.Unmarshal(resp.Body, &item); err != nil {
		return nil, fmt.Errorf("parsing server class response: %w", err)
	}

	summary := summarize(&item)

	return &summary, nil
}
