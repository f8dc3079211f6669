package spotclient

import (
	"context"

	"github.com/SparkAIUR/rsspot-sdk/internal/bridge"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

// The facades below adapt each resource client onto the runner: every
// call blocks the caller while the work executes on the client's
// single runner goroutine.

type organizationsFacade struct {
	c *Client
}

func (f *organizationsFacade) List(ctx context.Context) (*spot.OrganizationsResponse, error) {
	return bridge.Do(f.c.runner, ctx, func(ctx context.Context) (*spot.OrganizationsResponse, error) {
		return f.c.direct.Organizations().List(ctx)
	})
}

func (f *organizationsFacade) Get(ctx context.Context, nameOrID string) (*spot.Organization, error) {
	return bridge.Do(f.c.runner, ctx, func(ctx context.Context) (*spot.Organization, error) {
		return f.c.direct.Organizations().Get(ctx, nameOrID)
	})
}

type regionsFacade struct {
	c *Client
}

func (f *regionsFacade) List(ctx context.Context) ([]spot.RegionSummary, error) {
	return bridge.Do(f.c.runner, ctx, func(ctx context.Context) ([]spot.RegionSummary, error) {
		return f.c.direct.Regions().List(ctx)
	})
}

func (f *regionsFacade) Get(ctx context.Context, name string) (*spot.RegionSummary, error) {
	return bridge.Do(f.c.runner, ctx, func(ctx context.Context) (*spot.RegionSummary, error) {
		return f.c.direct.Regions().Get(ctx, name)
	})
}

type serverClassesFacade struct {
	c *Client
}

func (f *serverClassesFacade) List(ctx context.Context, opts *spot.ServerClassListOptions) ([]spot.ServerClassSummary, error) {
	return bridge.Do(f.c.runner, ctx, func(ctx context.Context) ([]spot.ServerClassSummary, error) {
		return f.c.direct.ServerClasses().List(ctx, opts)
	})
}

func (f *serverClassesFacade) Get(ctx context.Context, name string) (*spot.ServerClassSummary, error) {
	return bridge.Do(f.c.runner, ctx, func(ctx context.Context) (*spot.ServerClassSummary, error) {
		return f.c.direct.ServerClasses().Get(ctx, name)
	})
}

type pricingFacade struct {
	c *Client
}

func (f *pricingFacade) List(ctx context.Context, region string) (*spot.PriceDetailsList, error) {
	return bridge.Do(f.c.runner, ctx, func(ctx context.Context) (*spot.PriceDetailsList, error) {
		return f.c.direct.Pricing().List(ctx, region)
	})
}

func (f *pricingFacade) ForServerClass(ctx context.Context, serverClass string) (*spot.PriceDetails, error) {
	return bridge.Do(f.c.runner, ctx, func(ctx context.Context) (*spot.PriceDetails, error) {
		return f.c.direct.Pricing().ForServerClass(ctx, serverClass)
	})
}

type cloudspacesFacade struct {
	c *Client
}

func (f *cloudspacesFacade) List(ctx context.Context, org string) (*spot.CloudspaceListResponse, error) {
	return bridge.Do(f.c.runner, ctx, func(ctx context.Context) (*spot.CloudspaceListResponse, error) {
		return f.c.direct.Cloudspaces().List(ctx, org)
	})
}

func (f *cloudspacesFacade) Get(ctx context.Context, name, org string) (*spot.CloudspaceItem, error) {
	return bridge.Do(f.c.runner, ctx, func(ctx context.Context) (*spot.CloudspaceItem, error) {
		return f.c.direct.Cloudspaces().Get(ctx, name, org)
	})
}

func (f *cloudspacesFacade) Create(ctx context.Context, req *spot.CloudspaceCreateRequest, org string) (map[string]any, error) {
	return bridge.Do(f.c.runner, ctx, func(ctx context.Context) (map[string]any, error) {
		return f.c.direct.Cloudspaces().Create(ctx, req, org)
	})
}

func (f *cloudspacesFacade) Delete(ctx context.Context, name, org string) (map[string]any, error) {
	return bridge.Do(f.c.runner, ctx, func(ctx context.Context) (map[string]any, error) {
		return f.c.direct.Cloudspaces().Delete(ctx, name, org)
	})
}

func (f *cloudspacesFacade) GenerateKubeconfig(ctx context.Context, cloudspace, org string) (string, error) {
	return bridge.Do(f.c.runner, ctx, func(ctx context.Context) (string, error) {
		return f.c.direct.Cloudspaces().GenerateKubeconfig(ctx, cloudspace, org)
	})
}

type spotNodePoolsFacade struct {
	c *Client
}

func (f *spotNodePoolsFacade) List(ctx context.Context, org, cloudspace string) (*spot.SpotNodePoolListResponse, error) {
	return bridge.Do(f.c.runner, ctx, func(ctx context.Context) (*spot.SpotNodePoolListResponse, error) {
		return f.c.direct.SpotNodePools().List(ctx, org, cloudspace)
	})
}

func (f *spotNodePoolsFacade) Get(ctx context.Context, name, org string) (*spot.SpotNodePoolItem, error) {
	return bridge.Do(f.c.runner, ctx, func(ctx context.Context) (*spot.SpotNodePoolItem, error) {
		return f.c.direct.SpotNodePools().Get(ctx, name, org)
	})
}

func (f *spotNodePoolsFacade) Create(ctx context.Context, req *spot.SpotNodePoolUpsert, org string) (map[string]any, error) {
	return bridge.Do(f.c.runner, ctx, func(ctx context.Context) (map[string]any, error) {
		return f.c.direct.SpotNodePools().Create(ctx, req, org)
	})
}

func (f *spotNodePoolsFacade) Update(ctx context.Context, req *spot.SpotNodePoolUpsert, org string) (map[string]any, error) {
	return bridge.Do(f.c.runner, ctx, func(ctx context.Context) (map[string]any, error) {
		return f.c.direct.SpotNodePools().Update(ctx, req, org)
	})
}

func (f *spotNodePoolsFacade) Delete(ctx context.Context, name, org string) (map[string]any, error) {
	return bridge.Do(f.c.runner, ctx, func(ctx context.Context) (map[string]any, error) {
		return f.c.direct.SpotNodePools().Delete(ctx, name, org)
	})
}

type onDemandNodePoolsFacade struct {
	c *Client
}

func (f *onDemandNodePoolsFacade) List(ctx context.Context, org, cloudspace string) (*spot.OnDemandNodePoolListResponse, error) {
	return bridge.Do(f.c.runner, ctx, func(ctx context.Context) (*spot.OnDemandNodePoolListResponse, error) {
		return f.c.direct.OnDemandNodePools().List(ctx, org, cloudspace)
	})
}

func (f *onDemandNodePoolsFacade) Get(ctx context.Context, name, org string) (*spot.OnDemandNodePoolItem, error) {
	return bridge.Do(f.c.runner, ctx, func(ctx context.Context) (*spot.OnDemandNodePoolItem, error) {
		return f.c.direct.OnDemandNodePools().Get(ctx, name, org)
	})
}

func (f *onDemandNodePoolsFacade) Create(ctx context.Context, req *spot.OnDemandNodePoolUpsert, org string) (map[string]any, error) {
	return bridge.Do(f.c.runner, ctx, func(ctx context.Context) (map[string]any, error) {
		return f.c.direct.OnDemandNodePools().Create(ctx, req, org)
	})
}

func (f *onDemandNodePoolsFacade) Update(ctx context.Context, req *spot.OnDemandNodePoolUpsert, org string) (map[string]any, error) {
	return bridge.Do(f.c.runner, ctx, func(ctx context.Context) (map[string]any, error) {
		return f.c.direct.OnDemandNodePools().Update(ctx, req, org)
	})
}

func (f *onDemandNodePoolsFacade) Delete(ctx context.Context, name, org string) (map[string]any, error) {
	return bridge.Do(f.c.runner, ctx, func(ctx context.Context) (map[string]any, error) {
		return f.c.direct.OnDemandNodePools().Delete(ctx, name, org)
	})
}

type inventoryFacade struct {
	c *Client
}

func (f *inventoryFacade) ListVMCloudspaces(ctx context.Context, org string) (*spot.VMCloudSpaceListResponse, error) {
	return bridge.Do(f.c.runner, ctx, func(ctx context.Context) (*spot.VMCloudSpaceListResponse, error) {
		return f.c.direct.Inventory().ListVMCloudspaces(ctx, org)
	})
}

func (f *inventoryFacade) ListVMPools(ctx context.Context, vmcloudspace, org string) (*spot.OnDemandNodePoolListResponse, error) {
	return bridge.Do(f.c.runner, ctx, func(ctx context.Context) (*spot.OnDemandNodePoolListResponse, error) {
		return f.c.direct.Inventory().ListVMPools(ctx, vmcloudspace, org)
	})
}

func (f *inventoryFacade) ListOrganizationEvents(ctx context.Context, limit int) (*spot.OrganizationEventsResponse, error) {
	return bridge.Do(f.c.runner, ctx, func(ctx context.Context) (*spot.OrganizationEventsResponse, error) {
		return f.c.direct.Inventory().ListOrganizationEvents(ctx, limit)
	})
}
