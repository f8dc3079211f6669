package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spotclient"
)

// NewNodePoolsCommand creates the nodepools command group.
func NewNodePoolsCommand(registry *spotclient.Registry) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "nodepools",
		Aliases: []string{"nodepool", "np"},
		Short:   "Manage spot and on-demand nodepools",
	}

	cmd.AddCommand(newSpotPoolsCommand(registry))
	cmd.AddCommand(newOnDemandPoolsCommand(registry))

	return cmd
}

// poolFlags collects the shared create/update flag set for both pool
// kinds. BidPrice only applies to spot pools.
type poolFlags struct {
	Name           string
	Cloudspace     string
	ServerClass    string
	BidPrice       string
	Desired        int
	Autoscaling    bool
	AutoscalingMin int
	AutoscalingMax int
	Labels         []string
	Annotations    []string
}

func (f *poolFlags) register(cmd *cobra.Command, withBid bool) {
	cmd.Flags().StringVar(&f.Name, "name", "", "nodepool name")
	cmd.Flags().StringVar(&f.Cloudspace, "cloudspace", "", "cloudspace name")
	cmd.Flags().StringVar(&f.ServerClass, "server-class", "", "server class")
	cmd.Flags().IntVar(&f.Desired, "desired", 1, "desired node count")
	cmd.Flags().BoolVar(&f.Autoscaling, "autoscaling", false, "enable autoscaling")
	cmd.Flags().IntVar(&f.AutoscalingMin, "autoscaling-min", 0, "autoscaling min nodes")
	cmd.Flags().IntVar(&f.AutoscalingMax, "autoscaling-max", 0, "autoscaling max nodes")
	cmd.Flags().StringArrayVar(&f.Labels, "label", nil, "custom label key=value (repeatable)")
	cmd.Flags().StringArrayVar(&f.Annotations, "annotation", nil, "custom annotation key=value (repeatable)")

	if withBid {
		cmd.Flags().StringVar(&f.BidPrice, "bid-price", "", "bid price per hour, e.g. 0.08")
		_ = cmd.MarkFlagRequired("bid-price")
	}

	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("cloudspace")
	_ = cmd.MarkFlagRequired("server-class")
}

func (f *poolFlags) spotUpsert() (*spot.SpotNodePoolUpsert, error) {
	labels, err := parseKeyValues(f.Labels)
	if err != nil {
		return nil, err
	}

	annotations, err := parseKeyValues(f.Annotations)
	if err != nil {
		return nil, err
	}

	return &spot.SpotNodePoolUpsert{
		Name:              f.Name,
		Cloudspace:        f.Cloudspace,
		ServerClass:       f.ServerClass,
		Desired:           f.Desired,
		BidPrice:          f.BidPrice,
		CustomLabels:      labels,
		CustomAnnotations: annotations,
		Autoscaling: spot.Autoscaling{
			Enabled:  f.Autoscaling,
			MinNodes: f.AutoscalingMin,
			MaxNodes: f.AutoscalingMax,
		},
	}, nil
}

func (f *poolFlags) onDemandUpsert() (*spot.OnDemandNodePoolUpsert, error) {
	labels, err := parseKeyValues(f.Labels)
	if err != nil {
		return nil, err
	}

	annotations, err := parseKeyValues(f.Annotations)
	if err != nil {
		return nil, err
	}

	return &spot.OnDemandNodePoolUpsert{
		Name:              f.Name,
		Cloudspace:        f.Cloudspace,
		ServerClass:       f.ServerClass,
		Desired:           f.Desired,
		CustomLabels:      labels,
		CustomAnnotations: annotations,
		Autoscaling: spot.Autoscaling{
			Enabled:  f.Autoscaling,
			MinNodes: f.AutoscalingMin,
			MaxNodes: f.AutoscalingMax,
		},
	}, nil
}

//nolint:funlen // subcommand wiring dominates the length
func newSpotPoolsCommand(registry *spotclient.Registry) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spot",
		Short: "Manage spot nodepools",
	}

	var cloudspace string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List spot nodepools",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient(cmd.Context(), registry)
			if err != nil {
				return err
			}

			pools, err := client.SpotNodePools().List(cmd.Context(), viper.GetString("org"), cloudspace)
			if err != nil {
				return err
			}

			return renderStructured(pools.Items, func() error {
				return renderSpotPoolTable(pools.Items)
			})
		},
	}
	listCmd.Flags().StringVar(&cloudspace, "cloudspace", "", "filter by cloudspace")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "get NAME",
		Short: "Get one spot nodepool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient(cmd.Context(), registry)
			if err != nil {
				return err
			}

			pool, err := client.SpotNodePools().Get(cmd.Context(), args[0], viper.GetString("org"))
			if err != nil {
				return err
			}

			return renderStructured(pool, func() error {
				return renderSpotPoolTable([]spot.SpotNodePoolItem{*pool})
			})
		},
	})

	createFlags := &poolFlags{}
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a spot nodepool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSpotPoolUpsert(cmd, registry, createFlags, false)
		},
	}
	createFlags.register(createCmd, true)
	cmd.AddCommand(createCmd)

	updateFlags := &poolFlags{}
	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Update a spot nodepool",
		Long:  "Update the mutable fields of a spot nodepool via a merge patch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSpotPoolUpsert(cmd, registry, updateFlags, true)
		},
	}
	updateFlags.register(updateCmd, true)
	cmd.AddCommand(updateCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a spot nodepool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient(cmd.Context(), registry)
			if err != nil {
				return err
			}

			result, err := client.SpotNodePools().Delete(cmd.Context(), args[0], viper.GetString("org"))
			if err != nil {
				return err
			}

			return renderStructured(result, func() error {
				_, _ = fmt.Fprintf(os.Stdout, "Deleted spot nodepool %q\n", args[0])

				return nil
			})
		},
	})

	return cmd
}

func runSpotPoolUpsert(cmd *cobra.Command, registry *spotclient.Registry, flags *poolFlags, update bool) error {
	client, err := getClient(cmd.Context(), registry)
	if err != nil {
		return err
	}

	upsert, err := flags.spotUpsert()
	if err != nil {
		return err
	}

	org := viper.GetString("org")

	var result map[string]any
	if update {
		result, err = client.SpotNodePools().Update(cmd.Context(), upsert, org)
	} else {
		result, err = client.SpotNodePools().Create(cmd.Context(), upsert, org)
	}

	if err != nil {
		return err
	}

	return renderStructured(result, func() error {
		verb := "Created"
		if update {
			verb = "Updated"
		}

		_, _ = fmt.Fprintf(os.Stdout, "%s spot nodepool %q in cloudspace %q\n", verb, flags.Name, flags.Cloudspace)

		return nil
	})
}

func renderSpotPoolTable(pools []spot.SpotNodePoolItem) error {
	if len(pools) == 0 {
		_, _ = os.Stdout.WriteString("No spot nodepools found\n")

		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Name", "Cloudspace", "Server Class", "Desired", "Bid", "Won", "Bid Status")

	for _, pool := range pools {
		won := NotAvailable
		bidStatus := NotAvailable

		if pool.Status != nil {
			won = strconv.Itoa(pool.Status.WonCount)
			bidStatus = orNA(pool.Status.BidStatus)
		}

		_ = table.Append(pool.Metadata.Name, orNA(pool.Spec.CloudSpace),
			orNA(pool.Spec.ServerClass), strconv.Itoa(pool.Spec.Desired),
			orNA(pool.Spec.BidPrice), won, bidStatus)
	}

	_ = table.Render()

	return nil
}

//nolint:funlen // subcommand wiring dominates the length
func newOnDemandPoolsCommand(registry *spotclient.Registry) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ondemand",
		Short: "Manage on-demand nodepools",
	}

	var cloudspace string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List on-demand nodepools",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient(cmd.Context(), registry)
			if err != nil {
				return err
			}

			pools, err := client.OnDemandNodePools().List(cmd.Context(), viper.GetString("org"), cloudspace)
			if err != nil {
				return err
			}

			return renderStructured(pools.Items, func() error {
				return renderOnDemandPoolTable(pools.Items)
			})
		},
	}
	listCmd.Flags().StringVar(&cloudspace, "cloudspace", "", "filter by cloudspace")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "get NAME",
		Short: "Get one on-demand nodepool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient(cmd.Context(), registry)
			if err != nil {
				return err
			}

			pool, err := client.OnDemandNodePools().Get(cmd.Context(), args[0], viper.GetString("org"))
			if err != nil {
				return err
			}

			return renderStructured(pool, func() error {
				return renderOnDemandPoolTable([]spot.OnDemandNodePoolItem{*pool})
			})
		},
	})

	createFlags := &poolFlags{}
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an on-demand nodepool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnDemandPoolUpsert(cmd, registry, createFlags, false)
		},
	}
	createFlags.register(createCmd, false)
	cmd.AddCommand(createCmd)

	updateFlags := &poolFlags{}
	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Update an on-demand nodepool",
		Long:  "Update the mutable fields of an on-demand nodepool via a merge patch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnDemandPoolUpsert(cmd, registry, updateFlags, true)
		},
	}
	updateFlags.register(updateCmd, false)
	cmd.AddCommand(updateCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete NAME",
		Short: "Delete an on-demand nodepool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient(cmd.Context(), registry)
			if err != nil {
				return err
			}

			result, err := client.OnDemandNodePools().Delete(cmd.Context(), args[0], viper.GetString("org"))
			if err != nil {
				return err
			}

			return renderStructured(result, func() error {
				_, _ = fmt.Fprintf(os.Stdout, "Deleted on-demand nodepool %q\n", args[0])

				return nil
			})
		},
	})

	return cmd
}

func runOnDemandPoolUpsert(cmd *cobra.Command, registry *spotclient.Registry, flags *poolFlags, update bool) error {
	client, err := getClient(cmd.Context(), registry)
	if err != nil {
		return err
	}

	upsert, err := flags.onDemandUpsert()
	if err != nil {
		return err
	}

	org := viper.GetString("org")

	var result map[string]any
	if update {
		result, err = client.OnDemandNodePools().Update(cmd.Context(), upsert, org)
	} else {
		result, err = client.OnDemandNodePools().Create(cmd.Context(), upsert, org)
	}

	if err != nil {
		return err
	}

	return renderStructured(result, func() error {
		verb := "Created"
		if update {
			verb = "Updated"
		}

		_, _ = fmt.Fprintf(os.Stdout, "%s on-demand nodepool %q in cloudspace %q\n", verb, flags.Name, flags.Cloudspace)

		return nil
	})
}

func renderOnDemandPoolTable(pools []spot.OnDemandNodePoolItem) error {
	if len(pools) == 0 {
		_, _ = os.Stdout.WriteString("No on-demand nodepools found\n")

		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Name", "Cloudspace", "Server Class", "Desired", "Reserved", "Status")

	for _, pool := range pools {
		reserved := NotAvailable
		status := NotAvailable

		if pool.Status != nil {
			reserved = strconv.Itoa(pool.Status.ReservedCount)
			status = orNA(pool.Status.ReservedStatus)
		}

		_ = table.Append(pool.Metadata.Name, orNA(pool.Spec.CloudSpace),
			orNA(pool.Spec.ServerClass), strconv.Itoa(pool.Spec.Desired),
			reserved, status)
	}

	_ = table.Render()

	return nil
}
