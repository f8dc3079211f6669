package commands

import (
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spotclient"
)

// NewInventoryCommand creates the inventory command group.
func NewInventoryCommand(registry *spotclient.Registry) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Inspect VM cloudspaces, VM pools, and organization events",
	}

	cmd.AddCommand(newInventoryVMCloudspacesCommand(registry))
	cmd.AddCommand(newInventoryVMPoolsCommand(registry))
	cmd.AddCommand(newInventoryEventsCommand(registry))

	return cmd
}

func newInventoryVMCloudspacesCommand(registry *spotclient.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "vmcloudspaces",
		Short: "List VM cloudspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient(cmd.Context(), registry)
			if err != nil {
				return err
			}

			spaces, err := client.Inventory().ListVMCloudspaces(cmd.Context(), viper.GetString("org"))
			if err != nil {
				return err
			}

			return renderStructured(spaces.Items, func() error {
				return renderVMCloudspaceTable(spaces.Items)
			})
		},
	}
}

func renderVMCloudspaceTable(spaces []spot.VMCloudSpaceItem) error {
	if len(spaces) == 0 {
		_, _ = os.Stdout.WriteString("No VM cloudspaces found\n")

		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Name", "Region", "Phase", "Health", "Servers")

	for _, space := range spaces {
		_ = table.Append(space.Metadata.Name, orNA(space.Spec.Region),
			orNA(space.Status.Phase), orNA(space.Status.Health),
			strconv.Itoa(len(space.Status.AssignedServers)))
	}

	_ = table.Render()

	return nil
}

func newInventoryVMPoolsCommand(registry *spotclient.Registry) *cobra.Command {
	var vmcloudspace string

	cmd := &cobra.Command{
		Use:   "vmpools",
		Short: "List VM pools for a VM cloudspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient(cmd.Context(), registry)
			if err != nil {
				return err
			}

			pools, err := client.Inventory().ListVMPools(cmd.Context(), vmcloudspace, viper.GetString("org"))
			if err != nil {
				return err
			}

			return renderStructured(pools.Items, func() error {
				return renderOnDemandPoolTable(pools.Items)
			})
		},
	}

	cmd.Flags().StringVar(&vmcloudspace, "vmcloudspace", "", "VM cloudspace label")
	_ = cmd.MarkFlagRequired("vmcloudspace")

	return cmd
}

func newInventoryEventsCommand(registry *spotclient.Registry) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recent organization events",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient(cmd.Context(), registry)
			if err != nil {
				return err
			}

			events, err := client.Inventory().ListOrganizationEvents(cmd.Context(), limit)
			if err != nil {
				return err
			}

			return renderStructured(events, func() error {
				return renderEventTable(events)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "max events to fetch")

	return cmd
}

func renderEventTable(events *spot.OrganizationEventsResponse) error {
	if len(events.Events) == 0 {
		_, _ = os.Stdout.WriteString("No events found\n")

		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Timestamp", "Event")

	for _, event := range events.Events {
		_ = table.Append(event[0], event[1])
	}

	_ = table.Render()

	return nil
}
