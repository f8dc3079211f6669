package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SparkAIUR/rsspot-sdk/internal/http"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

// OrganizationsClient implements spot.OrganizationsClient.
type OrganizationsClient struct {
	httpClient *http.Client
}

// NewOrganizationsClient creates a new organizations client.
func NewOrganizationsClient(httpClient *http.Client) *OrganizationsClient {
	return &OrganizationsClient{httpClient: httpClient}
}

// List implements spot.OrganizationsClient.List.
func (c *OrganizationsClient) List(ctx context.Context) (*spot.OrganizationsResponse, error) {
	resp, err := c.httpClient.Get(ctx, "/apis/auth.ngpc.rxt.io/v1/organizations", nil)
	if err != nil {
		return nil, fmt.Errorf("listing organizations: %w", err)
	}

	var result spot.OrganizationsResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("parsing organizations response: %w", err)
	}

	result.Raw = resp.Body

	return &result, nil
}

// Get implements spot.OrganizationsClient.Get. The API has no
// per-organization endpoint, so the selector is matched against the
// listing by name or id.
func (c *OrganizationsClient) Get(ctx context.Context, nameOrID string) (*spot.Organization, error) {
	orgs, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, org := range orgs.Organizations {
		if org.Name == nameOrID || org.ID == nameOrID {
			return &org, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", spot.ErrOrganizationNotFound, nameOrID)
}
