package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SparkAIUR/rsspot-sdk/internal/constants"
)

// Registration statuses, in lifecycle order.
const (
	RegistrationDiscovered  = "discovered"
	RegistrationTokenIssued = "token_issued"
	RegistrationSubmitted   = "submitted"
	RegistrationRegistered  = "registered"
	RegistrationFailed      = "failed"
	RegistrationSkipped     = "skipped"
)

// ErrRegistrationNotFound is returned when no ledger row exists for a
// key. Static error for err113 compliance.
var ErrRegistrationNotFound = errors.New("registration not found")

// Registration is one row of the VM registration ledger.
type Registration struct {
	Key            string         `json:"registration_key"`
	VMUID          string         `json:"vm_uid"`
	VMName         string         `json:"vm_name,omitempty"`
	OrgID          string         `json:"org_id,omitempty"`
	VMCloudspace   string         `json:"vmcloudspace,omitempty"`
	VMPool         string         `json:"vmpool,omitempty"`
	OmniCluster    string         `json:"omni_cluster,omitempty"`
	Status         string         `json:"status"`
	TokenID        string         `json:"token_id,omitempty"`
	TokenExpiresAt time.Time      `json:"token_expires_at,omitempty"`
	LastError      string         `json:"last_error,omitempty"`
	Payload        map[string]any `json:"payload,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// RegistrationUpsert records or replaces the ledger row for a key,
// preserving created_at on updates. Transitions are not validated
// here; the workflow layer decides which status to write.
func (s *Store) RegistrationUpsert(ctx context.Context, reg *Registration) error {
	now := time.Now().Unix()

	var payload any

	if reg.Payload != nil {
		encoded, err := json.Marshal(reg.Payload)
		if err != nil {
			return fmt.Errorf("encoding registration payload: %w", err)
		}

		payload = string(encoded)
	}

	var tokenExpiresAt any
	if !reg.TokenExpiresAt.IsZero() {
		tokenExpiresAt = reg.TokenExpiresAt.Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO registration_ledger (
			registration_key, vm_uid, vm_name, org_id, vmcloudspace, vmpool, omni_cluster,
			status, token_id, token_expires_at, last_error, payload, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(registration_key) DO UPDATE SET
			vm_uid = excluded.vm_uid,
			vm_name = excluded.vm_name,
			org_id = excluded.org_id,
			vmcloudspace = excluded.vmcloudspace,
			vmpool = excluded.vmpool,
			omni_cluster = excluded.omni_cluster,
			status = excluded.status,
			token_id = CASE WHEN excluded.token_id != '' THEN excluded.token_id ELSE registration_ledger.token_id END,
			token_expires_at = COALESCE(excluded.token_expires_at, registration_ledger.token_expires_at),
			last_error = excluded.last_error,
			payload = COALESCE(excluded.payload, registration_ledger.payload),
			updated_at = excluded.updated_at`,
		reg.Key, reg.VMUID, reg.VMName, reg.OrgID, reg.VMCloudspace, reg.VMPool, reg.OmniCluster,
		reg.Status, reg.TokenID, tokenExpiresAt, reg.LastError, payload, now, now)
	if err != nil {
		return fmt.Errorf("writing registration %s: %w", reg.Key, err)
	}

	return nil
}

const registrationColumns = `registration_key, vm_uid, vm_name, org_id, vmcloudspace, vmpool, omni_cluster,
	status, token_id, token_expires_at, last_error, payload, created_at, updated_at`

func scanRegistration(row interface{ Scan(...any) error }) (*Registration, error) {
	var (
		reg            Registration
		tokenExpiresAt sql.NullInt64
		payload        sql.NullString
		createdAt      int64
		updatedAt      int64
	)

	err := row.Scan(&reg.Key, &reg.VMUID, &reg.VMName, &reg.OrgID, &reg.VMCloudspace, &reg.VMPool,
		&reg.OmniCluster, &reg.Status, &reg.TokenID, &tokenExpiresAt, &reg.LastError, &payload,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if tokenExpiresAt.Valid {
		reg.TokenExpiresAt = time.Unix(tokenExpiresAt.Int64, 0)
	}

	if payload.Valid && payload.String != "" {
		if err := json.Unmarshal([]byte(payload.String), &reg.Payload); err != nil {
			return nil, fmt.Errorf("decoding registration payload: %w", err)
		}
	}

	reg.CreatedAt = time.Unix(createdAt, 0)
	reg.UpdatedAt = time.Unix(updatedAt, 0)

	return &reg, nil
}

// RegistrationGet returns the ledger row for key.
func (s *Store) RegistrationGet(ctx context.Context, key string) (*Registration, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registration_ledger WHERE registration_key = ?`, key)

	reg, err := scanRegistration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRegistrationNotFound, key)
	}

	if err != nil {
		return nil, fmt.Errorf("reading registration %s: %w", key, err)
	}

	return reg, nil
}

// RegistrationList returns ledger rows, optionally filtered by
// vmcloudspace and status, most recently updated first.
func (s *Store) RegistrationList(ctx context.Context, vmcloudspace, status string) ([]Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registration_ledger WHERE 1=1`
	args := []any{}

	if vmcloudspace != "" {
		query += ` AND vmcloudspace = ?`
		args = append(args, vmcloudspace)
	}

	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}

	query += ` ORDER BY updated_at DESC LIMIT ?`
	args = append(args, constants.LedgerListLimit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing registrations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var regs []Registration

	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning registration: %w", err)
		}

		regs = append(regs, *reg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing registrations: %w", err)
	}

	return regs, nil
}
