package state

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SparkAIUR/rsspot-sdk/internal/constants"
)

// HistoryEntry is one recorded CLI invocation.
type HistoryEntry struct {
	ID       int64     `json:"id"`
	Command  string    `json:"command"`
	Org      string    `json:"org,omitempty"`
	ExitCode int       `json:"exit_code"`
	RanAt    time.Time `json:"ran_at"`
}

// HistoryAdd records a command invocation and prunes the table to its
// retention limit.
func (s *Store) HistoryAdd(ctx context.Context, command, org string, exitCode int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO command_history (command, org, exit_code, ran_at) VALUES (?, ?, ?, ?)`,
		command, org, exitCode, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("recording command history: %w", err)
	}

	return s.historyPrune(ctx, constants.HistoryMaxEntries)
}

func (s *Store) historyPrune(ctx context.Context, maxEntries int) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM command_history WHERE id IN (
			SELECT id FROM command_history ORDER BY id DESC LIMIT -1 OFFSET ?
		)`, maxEntries)
	if err != nil {
		return fmt.Errorf("pruning command history: %w", err)
	}

	return nil
}

// HistoryList returns the most recent entries, newest first.
func (s *Store) HistoryList(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = constants.HistoryListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, command, org, exit_code, ran_at FROM command_history
		 ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing command history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []HistoryEntry

	for rows.Next() {
		var (
			entry HistoryEntry
			ranAt int64
		)

		if err := rows.Scan(&entry.ID, &entry.Command, &entry.Org, &entry.ExitCode, &ranAt); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}

		entry.RanAt = time.Unix(ranAt, 0)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing command history: %w", err)
	}

	return entries, nil
}

// HistorySuggest returns distinct commands starting with prefix,
// most recently used first.
func (s *Store) HistorySuggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}

	pattern := escapeLike(strings.TrimSpace(prefix)) + "%"

	rows, err := s.db.QueryContext(ctx,
		`SELECT command FROM command_history
		 WHERE command LIKE ? ESCAPE '\'
		 GROUP BY command ORDER BY MAX(id) DESC LIMIT ?`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("suggesting commands: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var commands []string

	for rows.Next() {
		var command string
		if err := rows.Scan(&command); err != nil {
			return nil, fmt.Errorf("scanning command suggestion: %w", err)
		}

		commands = append(commands, command)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("suggesting commands: %w", err)
	}

	return commands, nil
}

// HistoryCount returns the number of recorded invocations.
func (s *Store) HistoryCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM command_history`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting command history: %w", err)
	}

	return count, nil
}

// HistoryClear removes all recorded invocations.
func (s *Store) HistoryClear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM command_history`); err != nil {
		return fmt.Errorf("clearing command history: %w", err)
	}

	return nil
}
