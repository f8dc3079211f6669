package commands

import (
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spotclient"
)

// NewServerClassesCommand creates the server class command group.
func NewServerClassesCommand(registry *spotclient.Registry) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serverclasses",
		Aliases: []string{"server-classes", "sc"},
		Short:   "Inspect Spot server classes",
	}

	cmd.AddCommand(newServerClassesListCommand(registry))
	cmd.AddCommand(newServerClassesGetCommand(registry))

	return cmd
}

func newServerClassesListCommand(registry *spotclient.Registry) *cobra.Command {
	var (
		region string
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List server classes",
		Long:  "List server classes, with current spot market and on-demand pricing",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient(cmd.Context(), registry)
			if err != nil {
				return err
			}

			classes, err := client.ServerClasses().List(cmd.Context(), &spot.ServerClassListOptions{
				Region:             region,
				IncludeUnavailable: all,
			})
			if err != nil {
				return err
			}

			return renderStructured(classes, func() error {
				return renderServerClassTable(classes)
			})
		},
	}

	cmd.Flags().StringVar(&region, "region", "", "filter by region")
	cmd.Flags().BoolVar(&all, "all", false, "include unavailable classes")

	return cmd
}

func renderServerClassTable(classes []spot.ServerClassSummary) error {
	if len(classes) == 0 {
		_, _ = os.Stdout.WriteString("No server classes found\n")

		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Name", "Category", "Region", "CPU", "Memory", "Market/hr", "On-Demand/hr", "Availability")

	for _, class := range classes {
		_ = table.Append(class.Name, orNA(class.Category), orNA(class.Region),
			orNA(class.CPU), orNA(class.Memory),
			orNA(class.MarketPricePerHour), orNA(class.OnDemandPricePerHour),
			orNA(class.Availability))
	}

	_ = table.Render()

	return nil
}

func newServerClassesGetCommand(registry *spotclient.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "get NAME",
		Short: "Get one server class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient(cmd.Context(), registry)
			if err != nil {
				return err
			}

			class, err := client.ServerClasses().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return renderStructured(class, func() error {
				return renderServerClassTable([]spot.ServerClassSummary{*class})
			})
		},
	}
}
