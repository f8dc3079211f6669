package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/SparkAIUR/rsspot-sdk/internal/http"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

// InventoryClient implements spot.InventoryClient.
type InventoryClient struct {
	httpClient *http.Client
	client     *Client
}

// NewInventoryClient creates a new inventory client.
func NewInventoryClient(httpClient *http.Client, client *Client) *InventoryClient {
	return &InventoryClient{httpClient: httpClient, client: client}
}

// ListVMCloudspaces implements spot.InventoryClient.ListVMCloudspaces.
func (c *InventoryClient) ListVMCloudspaces(ctx context.Context, org string) (*spot.VMCloudSpaceListResponse, error) {
	orgID, err := c.client.ResolveOrgID(ctx, org)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/apis/ngpc.rxt.io/v1/namespaces/%s/vmcloudspaces", orgID)

	resp, err := c.httpClient.Get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("listing vmcloudspaces: %w", err)
	}

	var result spot.VMCloudSpaceListResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("parsing vmcloudspaces response: %w", err)
	}

	result.Raw = resp.Body

	return &result, nil
}

// ListVMPools implements spot.InventoryClient.ListVMPools.
func (c *InventoryClient) ListVMPools(ctx context.Context, vmcloudspace, org string) (*spot.OnDemandNodePoolListResponse, error) {
	orgID, err := c.client.ResolveOrgID(ctx, org)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/apis/ngpc.rxt.io/v1/namespaces/%s/vmpools", orgID)
	query := cloudspaceSelector("ngpc.rxt.io/vmcloudspace", vmcloudspace)

	resp, err := c.httpClient.Get(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("listing vmpools: %w", err)
	}

	var result spot.OnDemandNodePoolListResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("parsing vmpools response: %w", err)
	}

	result.Raw = resp.Body

	return &result, nil
}

// ListOrganizationEvents implements
// spot.InventoryClient.ListOrganizationEvents. The upstream query
// parameter really is named "limits".
func (c *InventoryClient) ListOrganizationEvents(ctx context.Context, limit int) (*spot.OrganizationEventsResponse, error) {
	if limit <= 0 {
		limit = 100
	}

	query := map[string]string{"limits": strconv.Itoa(limit)}

	resp, err := c.httpClient.Get(ctx, "/apis/metrics.ngpc.rxt.io/v1/events/organizations", query)
	if err != nil {
		return nil, fmt.Errorf("listing organization events: %w", err)
	}

	var result spot.OrganizationEventsResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("parsing organization events response: %w", err)
	}

	result.Raw = resp.Body

	return &result, nil
}
