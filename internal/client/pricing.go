package client

import (
	"context"
	"fmt"

	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

// PricingClient implements spot.PricingClient. Pricing has no
// dedicated endpoint; projections are derived from server class data.
type PricingClient struct {
	serverClasses spot.ServerClassesClient
}

// NewPricingClient creates a new pricing client.
func NewPricingClient(serverClasses spot.ServerClassesClient) *PricingClient {
	return &PricingClient{serverClasses: serverClasses}
}

func toPriceDetails(summary *spot.ServerClassSummary) spot.PriceDetails {
	return spot.PriceDetails{
		ServerClassName: summary.Name,
		DisplayName:     summary.DisplayName,
		Category:        summary.Category,
		Region:          summary.Region,
		MarketPrice:     summary.MarketPricePerHour,
		CPU:             summary.CPU,
		Memory:          summary.Memory,
	}
}

// List implements spot.PricingClient.List.
func (c *PricingClient) List(ctx context.Context, region string) (*spot.PriceDetailsList, error) {
	classes, err := c.serverClasses.List(ctx, &spot.ServerClassListOptions{Region: region})
	if err != nil {
		return nil, fmt.Errorf("listing prices: %w", err)
	}

	items := make([]spot.PriceDetails, 0, len(classes))
	for i := range classes {
		items = append(items, toPriceDetails(&classes[i]))
	}

	return &spot.PriceDetailsList{Items: items}, nil
}

// ForServerClass implements spot.PricingClient.ForServerClass.
func (c *PricingClient) ForServerClass(ctx context.Context, serverClass string) (*spot.PriceDetails, error) {
	summary, err := c.serverClasses.Get(ctx, serverClass)
	if err != nil {
		return nil, err
	}

	details := toPriceDetails(summary)

	return &details, nil
}
