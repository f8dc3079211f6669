package commands

import (
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spotclient"
)

// NewOrgsCommand creates the organizations command group.
func NewOrgsCommand(registry *spotclient.Registry) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "orgs",
		Aliases: []string{"organizations", "org"},
		Short:   "Manage organizations",
		Long:    "List and inspect the organizations your account belongs to",
	}

	cmd.AddCommand(newOrgsListCommand(registry))
	cmd.AddCommand(newOrgsGetCommand(registry))

	return cmd
}

func newOrgsListCommand(registry *spotclient.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List organizations",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient(cmd.Context(), registry)
			if err != nil {
				return err
			}

			orgs, err := client.Organizations().List(cmd.Context())
			if err != nil {
				return err
			}

			return renderStructured(orgs.Organizations, func() error {
				return renderOrganizationTable(orgs.Organizations)
			})
		},
	}
}

func renderOrganizationTable(orgs []spot.Organization) error {
	if len(orgs) == 0 {
		_, _ = os.Stdout.WriteString("No organizations found\n")

		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Name", "ID")

	for _, org := range orgs {
		_ = table.Append(org.Name, org.ID)
	}

	_ = table.Render()

	return nil
}

func newOrgsGetCommand(registry *spotclient.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "get NAME_OR_ID",
		Short: "Get one organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient(cmd.Context(), registry)
			if err != nil {
				return err
			}

			org, err := client.Organizations().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return renderStructured(org, func() error {
				return renderOrganizationTable([]spot.Organization{*org})
			})
		},
	}
}
