package spot

import (
	"encoding/json"
	"time"
)

// Metadata is the common object metadata carried by Spot API resources.
type Metadata struct {
	Name              string            `json:"name"                        yaml:"name"`
	Namespace         string            `json:"namespace,omitempty"         yaml:"namespace,omitempty"`
	UID               string            `json:"uid,omitempty"               yaml:"uid,omitempty"`
	Labels            map[string]string `json:"labels,omitempty"            yaml:"labels,omitempty"`
	Annotations       map[string]string `json:"annotations,omitempty"       yaml:"annotations,omitempty"`
	CreationTimestamp *time.Time        `json:"creationTimestamp,omitempty" yaml:"creationTimestamp,omitempty"`
}

// Condition is a status condition attached to a resource.
type Condition struct {
	Type               string     `json:"type"                         yaml:"type"`
	Status             string     `json:"status"                       yaml:"status"`
	LastTransitionTime *time.Time `json:"lastTransitionTime,omitempty" yaml:"lastTransitionTime,omitempty"`
}

// Organization is one entry from the organizations endpoint.
type Organization struct {
	Name string `json:"name" yaml:"name"`
	ID   string `json:"id"   yaml:"id"`
}

// OrganizationsResponse is the organizations list payload.
type OrganizationsResponse struct {
	Organizations []Organization `json:"organizations" yaml:"organizations"`

	// Raw preserves the upstream payload for fields this struct does
	// not model.
	Raw json.RawMessage `json:"-" yaml:"-"`
}

// RegionSpec describes a region.
type RegionSpec struct {
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// RegionItem is a region resource as returned by the API.
type RegionItem struct {
	Metadata Metadata   `json:"metadata" yaml:"metadata"`
	Spec     RegionSpec `json:"spec"     yaml:"spec"`
}

// RegionsListResponse is the region list payload.
type RegionsListResponse struct {
	Items []RegionItem `json:"items" yaml:"items"`

	Raw json.RawMessage `json:"-" yaml:"-"`
}

// RegionSummary is the flattened region view returned by the SDK.
type RegionSummary struct {
	Name        string `json:"name"                  yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// ServerClassResources describes per-node hardware resources.
type ServerClassResources struct {
	CPU    string `json:"cpu,omitempty"    yaml:"cpu,omitempty"`
	Memory string `json:"memory,omitempty" yaml:"memory,omitempty"`
	GPU    string `json:"gpu,omitempty"    yaml:"gpu,omitempty"`
}

// ServerClassOnDemandPricing carries the on-demand hourly cost.
type ServerClassOnDemandPricing struct {
	Cost string `json:"cost,omitempty" yaml:"cost,omitempty"`
}

// ServerClassSpotPricing carries the current spot market price.
type ServerClassSpotPricing struct {
	MarketPricePerHour string `json:"marketPricePerHour,omitempty" yaml:"marketPricePerHour,omitempty"`
}

// ServerClassSpec describes a server class.
type ServerClassSpec struct {
	Availability       string                      `json:"availability,omitempty"       yaml:"availability,omitempty"`
	DisplayName        string                      `json:"displayName,omitempty"        yaml:"displayName,omitempty"`
	Category           string                      `json:"category,omitempty"           yaml:"category,omitempty"`
	Region             string                      `json:"region,omitempty"             yaml:"region,omitempty"`
	MinBidPricePerHour string                      `json:"minBidPricePerHour,omitempty" yaml:"minBidPricePerHour,omitempty"`
	OnDemandPricing    *ServerClassOnDemandPricing `json:"onDemandPricing,omitempty"    yaml:"onDemandPricing,omitempty"`
	Resources          ServerClassResources        `json:"resources"                    yaml:"resources"`
}

// ServerClassStatus is the status section of a server class.
type ServerClassStatus struct {
	SpotPricing *ServerClassSpotPricing `json:"spotPricing,omitempty" yaml:"spotPricing,omitempty"`
}

// ServerClassItem is a server class resource.
type ServerClassItem struct {
	Metadata Metadata           `json:"metadata"         yaml:"metadata"`
	Spec     ServerClassSpec    `json:"spec"             yaml:"spec"`
	Status   *ServerClassStatus `json:"status,omitempty" yaml:"status,omitempty"`

	Raw json.RawMessage `json:"-" yaml:"-"`
}

// ServerClassListResponse is the server class list payload.
type ServerClassListResponse struct {
	Items []ServerClassItem `json:"items" yaml:"items"`

	Raw json.RawMessage `json:"-" yaml:"-"`
}

// ServerClassSummary is the flattened server class view returned by
// the SDK, with prices normalized to a "$"-prefixed string.
type ServerClassSummary struct {
	Name                 string `json:"name"                              yaml:"name"`
	DisplayName          string `json:"display_name,omitempty"            yaml:"display_name,omitempty"`
	Category             string `json:"category,omitempty"                yaml:"category,omitempty"`
	Region               string `json:"region,omitempty"                  yaml:"region,omitempty"`
	Availability         string `json:"availability,omitempty"            yaml:"availability,omitempty"`
	MarketPricePerHour   string `json:"market_price_per_hour,omitempty"   yaml:"market_price_per_hour,omitempty"`
	MinBidPricePerHour   string `json:"min_bid_price_per_hour,omitempty"  yaml:"min_bid_price_per_hour,omitempty"`
	OnDemandPricePerHour string `json:"on_demand_price_per_hour,omitempty" yaml:"on_demand_price_per_hour,omitempty"`
	CPU                  string `json:"cpu,omitempty"                     yaml:"cpu,omitempty"`
	Memory               string `json:"memory,omitempty"                  yaml:"memory,omitempty"`
}

// PriceDetails is a pricing projection for one server class.
type PriceDetails struct {
	ServerClassName string `json:"server_class_name"      yaml:"server_class_name"`
	DisplayName     string `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Category        string `json:"category,omitempty"     yaml:"category,omitempty"`
	Region          string `json:"region,omitempty"       yaml:"region,omitempty"`
	MarketPrice     string `json:"market_price,omitempty" yaml:"market_price,omitempty"`
	CPU             string `json:"cpu,omitempty"          yaml:"cpu,omitempty"`
	Memory          string `json:"memory,omitempty"       yaml:"memory,omitempty"`
}

// PriceDetailsList is a list of pricing projections.
type PriceDetailsList struct {
	Items []PriceDetails `json:"items" yaml:"items"`
}

// AssignedServer is one server assigned to a cloudspace.
type AssignedServer struct {
	CPU             string `json:"cpu,omitempty"             yaml:"cpu,omitempty"`
	DisplayName     string `json:"displayName,omitempty"     yaml:"displayName,omitempty"`
	IPAddress       string `json:"ipAddress,omitempty"       yaml:"ipAddress,omitempty"`
	NodePoolName    string `json:"nodePoolName,omitempty"    yaml:"nodePoolName,omitempty"`
	ServerClassName string `json:"serverClassName,omitempty" yaml:"serverClassName,omitempty"`
	ServerName      string `json:"serverName,omitempty"      yaml:"serverName,omitempty"`
	ServerType      string `json:"serverType,omitempty"      yaml:"serverType,omitempty"`
}

// CloudspaceSpec describes a cloudspace.
type CloudspaceSpec struct {
	DeploymentType    string `json:"deploymentType,omitempty"    yaml:"deploymentType,omitempty"`
	Cloud             string `json:"cloud,omitempty"             yaml:"cloud,omitempty"`
	Region            string `json:"region,omitempty"            yaml:"region,omitempty"`
	Webhook           string `json:"webhook,omitempty"           yaml:"webhook,omitempty"`
	CNI               string `json:"cni,omitempty"               yaml:"cni,omitempty"`
	KubernetesVersion string `json:"kubernetesVersion,omitempty" yaml:"kubernetesVersion,omitempty"`
	HAControlPlane    bool   `json:"HAControlPlane,omitempty"    yaml:"HAControlPlane,omitempty"`
	GPUEnabled        bool   `json:"gpuEnabled,omitempty"        yaml:"gpuEnabled,omitempty"`
}

// CloudspaceStatus is the status section of a cloudspace.
type CloudspaceStatus struct {
	APIServerEndpoint   string                    `json:"apiServerEndpoint,omitempty"   yaml:"apiServerEndpoint,omitempty"`
	AssignedServers     map[string]AssignedServer `json:"assignedServers,omitempty"     yaml:"assignedServers,omitempty"`
	Conditions          []Condition               `json:"conditions,omitempty"          yaml:"conditions,omitempty"`
	Health              string                    `json:"health,omitempty"              yaml:"health,omitempty"`
	Phase               string                    `json:"phase,omitempty"               yaml:"phase,omitempty"`
	Reason              string                    `json:"reason,omitempty"              yaml:"reason,omitempty"`
	FirstReadyTimestamp *time.Time                `json:"firstReadyTimestamp,omitempty" yaml:"firstReadyTimestamp,omitempty"`
}

// CloudspaceItem is a cloudspace resource.
type CloudspaceItem struct {
	APIVersion string            `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`
	Kind       string            `json:"kind,omitempty"       yaml:"kind,omitempty"`
	Metadata   Metadata          `json:"metadata"             yaml:"metadata"`
	Spec       CloudspaceSpec    `json:"spec"                 yaml:"spec"`
	Status     *CloudspaceStatus `json:"status,omitempty"     yaml:"status,omitempty"`

	Raw json.RawMessage `json:"-" yaml:"-"`
}

// CloudspaceListResponse is the cloudspace list payload.
type CloudspaceListResponse struct {
	Items []CloudspaceItem `json:"items" yaml:"items"`

	Raw json.RawMessage `json:"-" yaml:"-"`
}

// CloudspaceCreateRequest is the normalized create request for a
// cloudspace.
type CloudspaceCreateRequest struct {
	Name                 string `json:"name"                             yaml:"name"`
	Region               string `json:"region"                           yaml:"region"`
	KubernetesVersion    string `json:"kubernetes_version,omitempty"     yaml:"kubernetes_version,omitempty"`
	DeploymentType       string `json:"deployment_type,omitempty"        yaml:"deployment_type,omitempty"`
	Cloud                string `json:"cloud,omitempty"                  yaml:"cloud,omitempty"`
	CNI                  string `json:"cni,omitempty"                    yaml:"cni,omitempty"`
	PreemptionWebhookURL string `json:"preemption_webhook_url,omitempty" yaml:"preemption_webhook_url,omitempty"`
	HAControlPlane       bool   `json:"ha_control_plane,omitempty"       yaml:"ha_control_plane,omitempty"`
	GPUEnabled           bool   `json:"gpu_enabled,omitempty"            yaml:"gpu_enabled,omitempty"`
}

// Autoscaling configures nodepool autoscaling bounds.
type Autoscaling struct {
	Enabled  bool `json:"enabled"  yaml:"enabled"`
	MinNodes int  `json:"minNodes" yaml:"minNodes"`
	MaxNodes int  `json:"maxNodes" yaml:"maxNodes"`
}

// SpotNodePoolSpec describes a spot nodepool.
type SpotNodePoolSpec struct {
	ServerClass       string              `json:"serverClass,omitempty"       yaml:"serverClass,omitempty"`
	Desired           int                 `json:"desired,omitempty"           yaml:"desired,omitempty"`
	CloudSpace        string              `json:"cloudSpace,omitempty"        yaml:"cloudSpace,omitempty"`
	BidPrice          string              `json:"bidPrice,omitempty"          yaml:"bidPrice,omitempty"`
	CustomAnnotations map[string]string   `json:"customAnnotations,omitempty" yaml:"customAnnotations,omitempty"`
	CustomLabels      map[string]string   `json:"customLabels,omitempty"      yaml:"customLabels,omitempty"`
	CustomTaints      []map[string]string `json:"customTaints,omitempty"      yaml:"customTaints,omitempty"`
	Autoscaling       *Autoscaling        `json:"autoscaling,omitempty"       yaml:"autoscaling,omitempty"`
}

// SpotNodePoolStatus is the status section of a spot nodepool.
type SpotNodePoolStatus struct {
	BidStatus string `json:"bidStatus,omitempty" yaml:"bidStatus,omitempty"`
	WonCount  int    `json:"wonCount,omitempty"  yaml:"wonCount,omitempty"`
}

// SpotNodePoolItem is a spot nodepool resource.
type SpotNodePoolItem struct {
	APIVersion string              `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`
	Kind       string              `json:"kind,omitempty"       yaml:"kind,omitempty"`
	Metadata   Metadata            `json:"metadata"             yaml:"metadata"`
	Spec       SpotNodePoolSpec    `json:"spec"                 yaml:"spec"`
	Status     *SpotNodePoolStatus `json:"status,omitempty"     yaml:"status,omitempty"`

	Raw json.RawMessage `json:"-" yaml:"-"`
}

// SpotNodePoolListResponse is the spot nodepool list payload.
type SpotNodePoolListResponse struct {
	Items []SpotNodePoolItem `json:"items" yaml:"items"`

	Raw json.RawMessage `json:"-" yaml:"-"`
}

// OnDemandNodePoolSpec describes an on-demand nodepool.
type OnDemandNodePoolSpec struct {
	ServerClass       string              `json:"serverClass,omitempty"       yaml:"serverClass,omitempty"`
	Desired           int                 `json:"desired,omitempty"           yaml:"desired,omitempty"`
	CloudSpace        string              `json:"cloudSpace,omitempty"        yaml:"cloudSpace,omitempty"`
	CustomAnnotations map[string]string   `json:"customAnnotations,omitempty" yaml:"customAnnotations,omitempty"`
	CustomLabels      map[string]string   `json:"customLabels,omitempty"      yaml:"customLabels,omitempty"`
	CustomTaints      []map[string]string `json:"customTaints,omitempty"      yaml:"customTaints,omitempty"`
	Autoscaling       *Autoscaling        `json:"autoscaling,omitempty"       yaml:"autoscaling,omitempty"`
}

// OnDemandNodePoolStatus is the status section of an on-demand nodepool.
type OnDemandNodePoolStatus struct {
	ReservedStatus string `json:"reservedStatus,omitempty" yaml:"reservedStatus,omitempty"`
	ReservedCount  int    `json:"reservedCount,omitempty"  yaml:"reservedCount,omitempty"`
}

// OnDemandNodePoolItem is an on-demand nodepool resource.
type OnDemandNodePoolItem struct {
	APIVersion string                  `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`
	Kind       string                  `json:"kind,omitempty"       yaml:"kind,omitempty"`
	Metadata   Metadata                `json:"metadata"             yaml:"metadata"`
	Spec       OnDemandNodePoolSpec    `json:"spec"                 yaml:"spec"`
	Status     *OnDemandNodePoolStatus `json:"status,omitempty"     yaml:"status,omitempty"`

	Raw json.RawMessage `json:"-" yaml:"-"`
}

// OnDemandNodePoolListResponse is the on-demand nodepool list payload.
type OnDemandNodePoolListResponse struct {
	Items []OnDemandNodePoolItem `json:"items" yaml:"items"`

	Raw json.RawMessage `json:"-" yaml:"-"`
}

// SpotNodePoolUpsert is the user-facing request for spot nodepool
// create and update operations.
type SpotNodePoolUpsert struct {
	Name              string              `json:"name"                         yaml:"name"`
	Cloudspace        string              `json:"cloudspace"                   yaml:"cloudspace"`
	ServerClass       string              `json:"server_class"                 yaml:"server_class"`
	Desired           int                 `json:"desired"                      yaml:"desired"`
	BidPrice          string              `json:"bid_price"                    yaml:"bid_price"`
	CustomAnnotations map[string]string   `json:"custom_annotations,omitempty" yaml:"custom_annotations,omitempty"`
	CustomLabels      map[string]string   `json:"custom_labels,omitempty"      yaml:"custom_labels,omitempty"`
	CustomTaints      []map[string]string `json:"custom_taints,omitempty"      yaml:"custom_taints,omitempty"`
	Autoscaling       Autoscaling         `json:"autoscaling"                  yaml:"autoscaling"`
}

// OnDemandNodePoolUpsert is the user-facing request for on-demand
// nodepool create and update operations.
type OnDemandNodePoolUpsert struct {
	Name              string              `json:"name"                         yaml:"name"`
	Cloudspace        string              `json:"cloudspace"                   yaml:"cloudspace"`
	ServerClass       string              `json:"server_class"                 yaml:"server_class"`
	Desired           int                 `json:"desired"                      yaml:"desired"`
	CustomAnnotations map[string]string   `json:"custom_annotations,omitempty" yaml:"custom_annotations,omitempty"`
	CustomLabels      map[string]string   `json:"custom_labels,omitempty"      yaml:"custom_labels,omitempty"`
	CustomTaints      []map[string]string `json:"custom_taints,omitempty"      yaml:"custom_taints,omitempty"`
	Autoscaling       Autoscaling         `json:"autoscaling"                  yaml:"autoscaling"`
}

// VMCloudSpaceSpec describes a VM cloudspace.
type VMCloudSpaceSpec struct {
	BidRequests []string `json:"bidRequests,omitempty" yaml:"bidRequests,omitempty"`
	Region      string   `json:"region,omitempty"      yaml:"region,omitempty"`
}

// VMCloudSpaceStatus is the status section of a VM cloudspace.
type VMCloudSpaceStatus struct {
	AssignedServers     map[string]AssignedServer `json:"assignedServers,omitempty"     yaml:"assignedServers,omitempty"`
	Conditions          []Condition               `json:"conditions,omitempty"          yaml:"conditions,omitempty"`
	FirstReadyTimestamp *time.Time                `json:"firstReadyTimestamp,omitempty" yaml:"firstReadyTimestamp,omitempty"`
	Health              string                    `json:"health,omitempty"              yaml:"health,omitempty"`
	Phase               string                    `json:"phase,omitempty"               yaml:"phase,omitempty"`
}

// VMCloudSpaceItem is a VM cloudspace resource.
type VMCloudSpaceItem struct {
	APIVersion string             `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`
	Kind       string             `json:"kind,omitempty"       yaml:"kind,omitempty"`
	Metadata   Metadata           `json:"metadata"             yaml:"metadata"`
	Spec       VMCloudSpaceSpec   `json:"spec"                 yaml:"spec"`
	Status     VMCloudSpaceStatus `json:"status"               yaml:"status"`
}

// VMCloudSpaceListResponse is the VM cloudspace list payload.
type VMCloudSpaceListResponse struct {
	Items []VMCloudSpaceItem `json:"items" yaml:"items"`

	Raw json.RawMessage `json:"-" yaml:"-"`
}

// OrganizationEventsResponse is the organization events payload.
type OrganizationEventsResponse struct {
	OrgID        string      `json:"org_id"                  yaml:"org_id"`
	CloudspaceID string      `json:"cloudspace_id,omitempty" yaml:"cloudspace_id,omitempty"`
	Type         string      `json:"type,omitempty"          yaml:"type,omitempty"`
	Events       [][2]string `json:"events"                  yaml:"events"`

	Raw json.RawMessage `json:"-" yaml:"-"`
}
