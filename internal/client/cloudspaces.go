package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SparkAIUR/rsspot-sdk/internal/http"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

// CloudspacesClient implements spot.CloudspacesClient.
type CloudspacesClient struct {
	httpClient *http.Client
	client     *Client
}

// NewCloudspacesClient creates a new cloudspaces client.
func NewCloudspacesClient(httpClient *http.Client, client *Client) *CloudspacesClient {
	return &CloudspacesClient{httpClient: httpClient, client: client}
}

// List implements spot.CloudspacesClient.List.
func (c *CloudspacesClient) List(ctx context.Context, org string) (*spot.CloudspaceListResponse, error) {
	orgID, err := c.client.ResolveOrgID(ctx, org)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/apis/ngpc.rxt.io/v1/namespaces/%s/cloudspaces", orgID)

	resp, err := c.httpClient.Get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("listing cloudspaces: %w", err)
	}

	var result spot.CloudspaceListResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("parsing cloudspaces response: %w", err)
	}

	result.Raw = resp.Body

	return &result, nil
}

// Get implements spot.CloudspacesClient.Get.
func (c *CloudspacesClient) Get(ctx context.Context, name, org string) (*spot.CloudspaceItem, error) {
	orgID, err := c.client.ResolveOrgID(ctx, org)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/apis/ngpc.rxt.io/v1/namespaces/%s/cloudspaces/%s", orgID, name)

	resp, err := c.httpClient.Get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("getting cloudspace: %w", err)
	}

	var item spot.CloudspaceItem
	if err := json.Unmarshal(resp.Body, &item); err != nil {
		return nil, fmt.Errorf("parsing cloudspace response: %w", err)
	}

	item.Raw = resp.Body

	return &item, nil
}

// Create implements spot.CloudspacesClient.Create. The normalized
// request is expanded into the resource envelope the API expects.
func (c *CloudspacesClient) Create(ctx context.Context, req *spot.CloudspaceCreateRequest, org string) (map[string]any, error) {
	orgID, err := c.client.ResolveOrgID(ctx, org)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"apiVersion": "ngpc.rxt.io/v1",
		"kind":       "CloudSpace",
		"metadata": map[string]any{
			"name":        req.Name,
			"namespace":   orgID,
			"annotations": map[string]string{},
		},
		"spec": map[string]any{
			"deploymentType":    req.DeploymentType,
			"cloud":             req.Cloud,
			"region":            req.Region,
			"webhook":           req.PreemptionWebhookURL,
			"cni":               req.CNI,
			"kubernetesVersion": req.KubernetesVersion,
			"HAControlPlane":    req.HAControlPlane,
			"gpuEnabled":        req.GPUEnabled,
		},
	}

	path := fmt.Sprintf("/apis/ngpc.rxt.io/v1/namespaces/%s/cloudspaces", orgID)

	resp, err := c.httpClient.Post(ctx, path, payload)
	if err != nil {
		return nil, fmt.Errorf("creating cloudspace: %w", err)
	}

	return decodeObject(resp.Body)
}

// Delete implements spot.CloudspacesClient.Delete.
func (c *CloudspacesClient) Delete(ctx context.Context, name, org string) (map[string]any, error) {
	orgID, err := c.client.ResolveOrgID(ctx, org)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/apis/ngpc.rxt.io/v1/namespaces/%s/cloudspaces/%s", orgID, name)

	resp, err := c.httpClient.Delete(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("deleting cloudspace: %w", err)
	}

	return decodeObject(resp.Body)
}

// GenerateKubeconfig implements spot.CloudspacesClient.GenerateKubeconfig.
// The auth service builds a kubeconfig that embeds the refresh token,
// so one must be configured.
func (c *CloudspacesClient) GenerateKubeconfig(ctx context.Context, cloudspace, org string) (string, error) {
	orgName, err := c.client.ResolveOrgName(ctx, org)
	if err != nil {
		return "", err
	}

	refreshToken := c.client.RefreshToken()
	if refreshToken == "" {
		return "", spot.ErrRefreshTokenRequired
	}

	payload := map[string]string{
		"organization_name": orgName,
		"cloudspace_name":   cloudspace,
		"refresh_token":     refreshToken,
	}

	resp, err := c.httpClient.Post(ctx, "/apis/auth.ngpc.rxt.io/v1/generate-kubeconfig", payload)
	if err != nil {
		return "", fmt.Errorf("generating kubeconfig: %w", err)
	}

	var result struct {
		Data struct {
			Kubeconfig string `json:"kubeconfig"`
		} `json:"data"`
	}

	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return "", fmt.Errorf("parsing kubeconfig response: %w", err)
	}

	return result.Data.Kubeconfig, nil
}

// decodeObject decodes a raw response into a generic object.
func decodeObject(body json.RawMessage) (map[string]any, error) {
	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	return result, nil
}
