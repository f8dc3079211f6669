package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/SparkAIUR/rsspot-sdk/cmd/rsspot/commands"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spotclient"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "rsspot",
	Short: "Rackspace Spot CLI",
	Long: `A command-line interface for the Rackspace Spot cloud platform.

Manage organizations, cloudspaces, nodepools, and spot-market pricing
through the Spot API. Credentials and defaults come from named
profiles in ~/.config/rsspot/config.yaml, RSSPOT_* environment
variables, or the global flags below.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringP("profile", "p", "", "profile name (default is the active profile)")
	rootCmd.PersistentFlags().StringP("config-file", "c", "", "profile config file (default is ~/.config/rsspot/config.yaml)")
	rootCmd.PersistentFlags().String("org", "", "organization name or id")
	rootCmd.PersistentFlags().String("region", "", "region override")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "output format (table, json, yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "verbose request/response logging")

	// Bind flags to viper
	_ = viper.BindPFlag("profile", rootCmd.PersistentFlags().Lookup("profile"))
	_ = viper.BindPFlag("config_file", rootCmd.PersistentFlags().Lookup("config-file"))
	_ = viper.BindPFlag("org", rootCmd.PersistentFlags().Lookup("org"))
	_ = viper.BindPFlag("region", rootCmd.PersistentFlags().Lookup("region"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func main() {
	registry := spotclient.NewRegistry(func(ctx context.Context, scope spotclient.Scope) (*spotclient.Client, error) {
		return spotclient.ProfileBuilder(viper.GetString("config_file"))(ctx, scope)
	})

	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewLoginCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(commands.NewOrgsCommand(registry))
	rootCmd.AddCommand(commands.NewRegionsCommand(registry))
	rootCmd.AddCommand(commands.NewServerClassesCommand(registry))
	rootCmd.AddCommand(commands.NewPricingCommand(registry))
	rootCmd.AddCommand(commands.NewCloudspacesCommand(registry))
	rootCmd.AddCommand(commands.NewNodePoolsCommand(registry))
	rootCmd.AddCommand(commands.NewInventoryCommand(registry))
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(commands.NewRawCommand(registry))

	err := rootCmd.Execute()

	exitCode := 0
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)

		exitCode = 1
	}

	commands.RecordHistory(context.Background(), os.Args[1:], exitCode)

	if closeErr := registry.CloseAll(); closeErr != nil {
		fmt.Fprintln(os.Stderr, "warning: closing clients:", closeErr)
	}

	os.Exit(exitCode)
}
