package commands

import (
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spotclient"
)

// NewRegionsCommand creates the regions command group.
func NewRegionsCommand(registry *spotclient.Registry) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regions",
		Short: "Inspect Spot regions",
	}

	cmd.AddCommand(newRegionsListCommand(registry))
	cmd.AddCommand(newRegionsGetCommand(registry))

	return cmd
}

func newRegionsListCommand(registry *spotclient.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List regions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient(cmd.Context(), registry)
			if err != nil {
				return err
			}

			regions, err := client.Regions().List(cmd.Context())
			if err != nil {
				return err
			}

			return renderStructured(regions, func() error {
				return renderRegionTable(regions)
			})
		},
	}
}

func renderRegionTable(regions []spot.RegionSummary) error {
	if len(regions) == 0 {
		_, _ = os.Stdout.WriteString("No regions found\n")

		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Name", "Description")

	for _, region := range regions {
		_ = table.Append(region.Name, orNA(region.Description))
	}

	_ = table.Render()

	return nil
}

func newRegionsGetCommand(registry *spotclient.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "get NAME",
		Short: "Get one region",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient(cmd.Context(), registry)
			if err != nil {
				return err
			}

			region, err := client.Regions().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return renderStructured(region, func() error {
				return renderRegionTable([]spot.RegionSummary{*region})
			})
		},
	}
}
