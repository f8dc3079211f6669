package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/SparkAIUR/rsspot-sdk/internal/http"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

// cloudspaceSelector builds the labelSelector query for filtering
// pools by cloudspace.
func cloudspaceSelector(label, cloudspace string) map[string]string {
	return map[string]string{"labelSelector": label + "=" + cloudspace}
}

// stripDollar removes a leading "$" so bid prices round-trip whether
// or not callers pass the display form.
func stripDollar(price string) string {
	return strings.TrimPrefix(price, "$")
}

// SpotNodePoolsClient implements spot.SpotNodePoolsClient.
type SpotNodePoolsClient struct {
	httpClient *http.Client
	client     *Client
}

// NewSpotNodePoolsClient creates a new spot nodepools client.
func NewSpotNodePoolsClient(httpClient *http.Client, client *Client) *SpotNodePoolsClient {
	return &SpotNodePoolsClient{httpClient: httpClient, client: client}
}

// List implements spot.SpotNodePoolsClient.List. cloudspace, when
// non-empty, filters by the cloudspace label.
func (c *SpotNodePoolsClient) List(ctx context.Context, org, cloudspace string) (*spot.SpotNodePoolListResponse, error) {
	orgID, err := c.client.ResolveOrgID(ctx, org)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/apis/ngpc.rxt.io/v1/namespaces/%s/spotnodepools", orgID)

	var query map[string]string
	if cloudspace != "" {
		query = cloudspaceSelector("ngpc.rxt.io/cloudspace", cloudspace)
	}

	resp, err := c.httpClient.Get(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("listing spot nodepools: %w", err)
	}

	var result spot.SpotNodePoolListResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("parsing spot nodepools response: %w", err)
	}

	result.Raw = resp.Body

	return &result, nil
}

// Get implements spot.SpotNodePoolsClient.Get.
func (c *SpotNodePoolsClient) Get(ctx context.Context, name, org string) (*spot.SpotNodePoolItem, error) {
	orgID, err := c.client.ResolveOrgID(ctx, org)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/apis/ngpc.rxt.io/v1/namespaces/%s/spotnodepools/%s", orgID, name)

	resp, err := c.httpClient.Get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("getting spot nodepool: %w", err)
	}

	var item spot.SpotNodePoolItem
	if err := json.Unmarshal(resp.Body, &item); err != nil {
		return nil, fmt.Errorf("parsing spot nodepool response: %w", err)
	}

	item.Raw = resp.Body

	return &item, nil
}

// Create implements spot.SpotNodePoolsClient.Create.
func (c *SpotNodePoolsClient) Create(ctx context.Context, req *spot.SpotNodePoolUpsert, org string) (map[string]any, error) {
	orgID, err := c.client.ResolveOrgID(ctx, org)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"apiVersion": "ngpc.rxt.io/v1",
		"kind":       "SpotNodePool",
		"metadata": map[string]any{
			"name":      req.Name,
			"namespace": orgID,
			"labels":    map[string]string{"ngpc.rxt.io/cloudspace": req.Cloudspace},
		},
		"spec": map[string]any{
			"serverClass":       req.ServerClass,
			"desired":           req.Desired,
			"cloudSpace":        req.Cloudspace,
			"bidPrice":          stripDollar(req.BidPrice),
			"customAnnotations": req.CustomAnnotations,
			"customLabels":      req.CustomLabels,
			"customTaints":      req.CustomTaints,
			"autoscaling":       req.Autoscaling,
		},
	}

	path := fmt.Sprintf("/apis/ngpc.rxt.io/v1/namespaces/%s/spotnodepools", orgID)

	resp, err := c.httpClient.Post(ctx, path, payload)
	if err != nil {
		return nil, fmt.Errorf("creating spot nodepool: %w", err)
	}

	return decodeObject(resp.Body)
}

// Update implements spot.SpotNodePoolsClient.Update via JSON merge
// patch; only mutable spec fields are sent.
func (c *SpotNodePoolsClient) Update(ctx context.Context, req *spot.SpotNodePoolUpsert, org string) (map[string]any, error) {
	orgID, err := c.client.ResolveOrgID(ctx, org)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"spec": map[string]any{
			"desired":           req.Desired,
			"bidPrice":          stripDollar(req.BidPrice),
			"customAnnotations": req.CustomAnnotations,
			"customLabels":      req.CustomLabels,
			"customTaints":      req.CustomTaints,
			"autoscaling":       req.Autoscaling,
		},
	}

	path := fmt.Sprintf("/apis/ngpc.rxt.io/v1/namespaces/%s/spotnodepools/%s", orgID, req.Name)

	resp, err := c.httpClient.Patch(ctx, path, payload, "application/merge-patch+json")
	if err != nil {
		return nil, fmt.Errorf("updating spot nodepool: %w", err)
	}

	return decodeObject(resp.Body)
}

// Delete implements spot.SpotNodePoolsClient.Delete.
func (c *SpotNodePoolsClient) Delete(ctx context.Context, name, org string) (map[string]any, error) {
	orgID, err := c.client.ResolveOrgID(ctx, org)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/apis/ngpc.rxt.io/v1/namespaces/%s/spotnodepools/%s", orgID, name)

	resp, err := c.httpClient.Delete(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("deleting spot nodepool: %w", err)
	}

	return decodeObject(resp.Body)
}

// OnDemandNodePoolsClient implements spot.OnDemandNodePoolsClient.
type OnDemandNodePoolsClient struct {
	httpClient *http.Client
	client     *Client
}

// NewOnDemandNodePoolsClient creates a new on-demand nodepools client.
func NewOnDemandNodePoolsClient(httpClient *http.Client, client *Client) *OnDemandNodePoolsClient {
	return &OnDemandNodePoolsClient{httpClient: httpClient, client: client}
}

// List implements spot.OnDemandNodePoolsClient.List.
func (c *OnDemandNodePoolsClient) List(ctx context.Context, org, cloudspace string) (*spot.OnDemandNodePoolListResponse, error) {
	orgID, err := c.client.ResolveOrgID(ctx, org)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/apis/ngpc.rxt.io/v1/namespaces/%s/ondemandnodepools", orgID)

	var query map[string]string
	if cloudspace != "" {
		query = cloudspaceSelector("ngpc.rxt.io/cloudspace", cloudspace)
	}

	resp, err := c.httpClient.Get(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("listing on-demand nodepools: %w", err)
	}

	var result spot.OnDemandNodePoolListResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("parsing on-demand nodepools response: %w", err)
	}

	result.Raw = resp.Body

	return &result, nil
}

// Get implements spot.OnDemandNodePoolsClient.Get.
func (c *OnDemandNodePoolsClient) Get(ctx context.Context, name, org string) (*spot.OnDemandNodePoolItem, error) {
	orgID, err := c.client.ResolveOrgID(ctx, org)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/apis/ngpc.rxt.io/v1/namespaces/%s/ondemandnodepools/%s", orgID, name)

	resp, err := c.httpClient.Get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("getting on-demand nodepool: %w", err)
	}

	var item spot.OnDemandNodePoolItem
	if err := json.Unmarshal(resp.Body, &item); err != nil {
		return nil, fmt.Errorf("parsing on-demand nodepool response: %w", err)
	}

	item.Raw = resp.Body

	return &item, nil
}

// Create implements spot.OnDemandNodePoolsClient.Create.
func (c *OnDemandNodePoolsClient) Create(ctx context.Context, req *spot.OnDemandNodePoolUpsert, org string) (map[string]any, error) {
	orgID, err := c.client.ResolveOrgID(ctx, org)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"apiVersion": "ngpc.rxt.io/v1",
		"kind":       "OnDemandNodePool",
		"metadata": map[string]any{
			"name":      req.Name,
			"namespace": orgID,
			"labels":    map[string]string{"ngpc.rxt.io/cloudspace": req.Cloudspace},
		},
		"spec": map[string]any{
			"serverClass":       req.ServerClass,
			"desired":           req.Desired,
			"cloudSpace":        req.Cloudspace,
			"customAnnotations": req.CustomAnnotations,
			"customLabels":      req.CustomLabels,
			"customTaints":      req.CustomTaints,
			"autoscaling":       req.Autoscaling,
		},
	}

	path := fmt.Sprintf("/apis/ngpc.rxt.io/v1/namespaces/%s/ondemandnodepools", orgID)

	resp, err := c.httpClient.Post(ctx, path, payload)
	if err != nil {
		return nil, fmt.Errorf("creating on-demand nodepool: %w", err)
	}

	return decodeObject(resp.Body)
}

// Update implements spot.OnDemandNodePoolsClient.Update.
func (c *OnDemandNodePoolsClient) Update(ctx context.Context, req *spot.OnDemandNodePoolUpsert, org string) (map[string]any, error) {
	orgID, err := c.client.ResolveOrgID(ctx, org)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"spec": map[string]any{
			"desired":           req.Desired,
			"customAnnotations": req.CustomAnnotations,
			"customLabels":      req.CustomLabels,
			"customTaints":      req.CustomTaints,
			"autoscaling":       req.Autoscaling,
		},
	}

	path := fmt.Sprintf("/apis/ngpc.rxt.io/v1/namespaces/%s/ondemandnodepools/%s", orgID, req.Name)

	resp, err := c.httpClient.Patch(ctx, path, payload, "application/merge-patch+json")
	if err != nil {
		return nil, fmt.Errorf("updating on-demand nodepool: %w", err)
	}

	return decodeObject(resp.Body)
}

// Delete implements spot.OnDemandNodePoolsClient.Delete.
func (c *OnDemandNodePoolsClient) Delete(ctx context.Context, name, org string) (map[string]any, error) {
	orgID, err := c.client.ResolveOrgID(ctx, org)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/apis/ngpc.rxt.io/v1/namespaces/%s/ondemandnodepools/%s", orgID, name)

	resp, err := c.httpClient.Delete(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("deleting on-demand nodepool: %w", err)
	}

	return decodeObject(resp.Body)
}
