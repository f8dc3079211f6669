package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const redactedPlaceholder = "<redacted>"

// sensitiveMarkers flag argument names and values that must never be
// written to the history table.
var sensitiveMarkers = []string{
	"token", "secret", "password", "passphrase", "key", "cert",
	"auth", "header", "cookie", "signature", "private", "jwt",
}

// NewHistoryCommand creates the command history command group.
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect CLI command history",
		Long:  "List, search, and clear the locally recorded command history",
	}

	cmd.AddCommand(newHistoryListCommand())
	cmd.AddCommand(newHistorySuggestCommand())
	cmd.AddCommand(newHistoryClearCommand())

	return cmd
}

func newHistoryListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryListCommand(limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "max entries to show")

	return cmd
}

func runHistoryListCommand(limit int) error {
	store, err := openStateStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.HistoryList(context.Background(), limit)
	if err != nil {
		return err
	}

	return renderStructured(entries, func() error {
		if len(entries) == 0 {
			_, _ = os.Stdout.WriteString("No history recorded\n")

			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.Header("When", "Exit", "Command")

		for _, entry := range entries {
			_ = table.Append(entry.RanAt.Format("2006-01-02 15:04:05"),
				strconv.Itoa(entry.ExitCode), entry.Command)
		}

		_ = table.Render()

		return nil
	})
}

func newHistorySuggestCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "suggest PREFIX",
		Short: "Suggest past commands by prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStateStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			suggestions, err := store.HistorySuggest(context.Background(), args[0], limit)
			if err != nil {
				return err
			}

			for _, suggestion := range suggestions {
				_, _ = fmt.Fprintln(os.Stdout, suggestion)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "max suggestions")

	return cmd
}

func newHistoryClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the command history",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStateStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.HistoryClear(context.Background()); err != nil {
				return err
			}

			_, _ = os.Stdout.WriteString("History cleared\n")

			return nil
		},
	}
}

// RecordHistory writes a redacted invocation record to the state
// store. Failures are ignored so history can never break a command.
func RecordHistory(ctx context.Context, args []string, exitCode int) {
	if len(args) == 0 {
		return
	}

	store, err := openStateStore()
	if err != nil {
		return
	}
	defer func() { _ = store.Close() }()

	_ = store.HistoryAdd(ctx, RedactedCommand(args), viper.GetString("org"), exitCode)
}

// RedactedCommand joins a redacted argument list into one history
// line.
func RedactedCommand(args []string) string {
	return strings.Join(RedactArgs(args), " ")
}

// RedactArgs masks credential-looking flags and values in a command
// line before it is persisted.
//
//nolint:cyclop // flag/value pairing is a single token-walk state machine
func RedactArgs(args []string) []string {
	redacted := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "--") {
			if flag, value, found := strings.Cut(arg, "="); found {
				if isSensitiveFlag(flag) || looksSensitiveValue(value) {
					redacted = append(redacted, flag+"="+redactedPlaceholder)
				} else {
					redacted = append(redacted, arg)
				}

				continue
			}

			redacted = append(redacted, arg)

			if isSensitiveFlag(arg) && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				redacted = append(redacted, redactedPlaceholder)
				i++
			}

			continue
		}

		if key, value, found := strings.Cut(arg, "="); found {
			if isSensitiveFlag(key) || looksSensitiveValue(value) {
				redacted = append(redacted, key+"="+redactedPlaceholder)
			} else {
				redacted = append(redacted, arg)
			}

			continue
		}

		if looksSensitiveValue(arg) {
			redacted = append(redacted, redactedPlaceholder)
		} else {
			redacted = append(redacted, arg)
		}
	}

	return redacted
}

func isSensitiveFlag(flag string) bool {
	lowered := strings.ToLower(strings.TrimLeft(flag, "-"))

	for _, marker := range sensitiveMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}

	return false
}

func looksSensitiveValue(value string) bool {
	lowered := strings.ToLower(value)

	for _, marker := range sensitiveMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}

	if strings.HasPrefix(lowered, "bearer ") {
		return true
	}

	// Long opaque strings are most likely credentials.
	if len(value) >= 48 && !strings.ContainsAny(value, " /\\") {
		return true
	}

	return false
}
