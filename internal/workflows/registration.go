// Package workflows holds multi-step orchestration built on the
// resource clients and the state store. The registration workflow
// tracks VM registration attempts idempotently so external
// orchestrators can resume after a crash.
package workflows

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/SparkAIUR/rsspot-sdk/internal/state"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

// Candidate identifies one VM eligible for registration.
type Candidate struct {
	RegistrationKey string `json:"registration_key"       yaml:"registration_key"`
	VMUID           string `json:"vm_uid"                 yaml:"vm_uid"`
	VMName          string `json:"vm_name"                yaml:"vm_name"`
	OrgID           string `json:"org_id,omitempty"       yaml:"org_id,omitempty"`
	VMCloudspace    string `json:"vmcloudspace"           yaml:"vmcloudspace"`
	VMPool          string `json:"vmpool,omitempty"       yaml:"vmpool,omitempty"`
	OmniCluster     string `json:"omni_cluster,omitempty" yaml:"omni_cluster,omitempty"`
}

// Registration is the workflow over the sqlite-backed ledger.
type Registration struct {
	store *state.Store
}

// NewRegistration creates a registration workflow over the store.
func NewRegistration(store *state.Store) *Registration {
	return &Registration{store: store}
}

// RegistrationKey derives the deterministic ledger key for a VM
// identity tuple. Re-running discovery for the same VM always maps to
// the same row.
func RegistrationKey(vmUID, orgID, vmcloudspace, vmpool, omniCluster string) string {
	raw := strings.Join([]string{vmUID, orgID, vmcloudspace, vmpool, omniCluster}, "|")
	digest := sha256.Sum256([]byte(raw))

	return "vmreg-" + hex.EncodeToString(digest[:])[:32]
}

// ListCandidates derives registration candidates from the assigned
// servers of each VM cloudspace, in stable order.
func ListCandidates(spaces *spot.VMCloudSpaceListResponse, orgID, omniCluster string) []Candidate {
	candidates := []Candidate{}

	for i := range spaces.Items {
		space := &spaces.Items[i]
		cloudspaceName := space.Metadata.Name

		keys := make([]string, 0, len(space.Status.AssignedServers))
		for key := range space.Status.AssignedServers {
			keys = append(keys, key)
		}

		sort.Strings(keys)

		for _, key := range keys {
			assigned := space.Status.AssignedServers[key]

			vmUID := assigned.ServerName
			if vmUID == "" {
				vmUID = key
			}

			vmName := assigned.DisplayName
			if vmName == "" {
				vmName = vmUID
			}

			candidates = append(candidates, Candidate{
				RegistrationKey: RegistrationKey(vmUID, orgID, cloudspaceName, assigned.NodePoolName, omniCluster),
				VMUID:           vmUID,
				VMName:          vmName,
				OrgID:           orgID,
				VMCloudspace:    cloudspaceName,
				VMPool:          assigned.NodePoolName,
				OmniCluster:     omniCluster,
			})
		}
	}

	return candidates
}

func (r *Registration) upsert(ctx context.Context, candidate *Candidate, status string,
	mutate func(*state.Registration),
) error {
	reg := &state.Registration{
		Key:          candidate.RegistrationKey,
		VMUID:        candidate.VMUID,
		VMName:       candidate.VMName,
		OrgID:        candidate.OrgID,
		VMCloudspace: candidate.VMCloudspace,
		VMPool:       candidate.VMPool,
		OmniCluster:  candidate.OmniCluster,
		Status:       status,
	}

	if mutate != nil {
		mutate(reg)
	}

	return r.store.RegistrationUpsert(ctx, reg)
}

// MarkDiscovered records a candidate as seen.
func (r *Registration) MarkDiscovered(ctx context.Context, candidate *Candidate, payload map[string]any) error {
	return r.upsert(ctx, candidate, state.RegistrationDiscovered, func(reg *state.Registration) {
		reg.Payload = payload
	})
}

// MarkTokenIssued records that a join token was issued for the VM.
func (r *Registration) MarkTokenIssued(ctx context.Context, candidate *Candidate, tokenID string,
	tokenExpiresAt time.Time,
) error {
	return r.upsert(ctx, candidate, state.RegistrationTokenIssued, func(reg *state.Registration) {
		reg.TokenID = tokenID
		reg.TokenExpiresAt = tokenExpiresAt
	})
}

// MarkSubmitted records that the registration request was sent.
func (r *Registration) MarkSubmitted(ctx context.Context, candidate *Candidate, payload map[string]any) error {
	return r.upsert(ctx, candidate, state.RegistrationSubmitted, func(reg *state.Registration) {
		reg.Payload = payload
	})
}

// MarkRegistered records a completed registration.
func (r *Registration) MarkRegistered(ctx context.Context, candidate *Candidate, payload map[string]any) error {
	return r.upsert(ctx, candidate, state.RegistrationRegistered, func(reg *state.Registration) {
		reg.Payload = payload
	})
}

// MarkFailed records a failed attempt with its error text.
func (r *Registration) MarkFailed(ctx context.Context, candidate *Candidate, errorText string) error {
	return r.upsert(ctx, candidate, state.RegistrationFailed, func(reg *state.Registration) {
		reg.LastError = errorText
	})
}

// MarkSkipped records a candidate deliberately left unregistered.
func (r *Registration) MarkSkipped(ctx context.Context, candidate *Candidate, payload map[string]any) error {
	return r.upsert(ctx, candidate, state.RegistrationSkipped, func(reg *state.Registration) {
		reg.Payload = payload
	})
}

// Record returns the ledger row for a registration key.
func (r *Registration) Record(ctx context.Context, registrationKey string) (*state.Registration, error) {
	return r.store.RegistrationGet(ctx, registrationKey)
}

// Records lists ledger rows filtered by vmcloudspace and status;
// empty filters match everything.
func (r *Registration) Records(ctx context.Context, vmcloudspace, status string) ([]state.Registration, error) {
	return r.store.RegistrationList(ctx, vmcloudspace, status)
}
