package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/SparkAIUR/rsspot-sdk/internal/pricing"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spotclient"
)

// NewPricingCommand creates the pricing command group.
func NewPricingCommand(registry *spotclient.Registry) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pricing",
		Short: "Spot market pricing and build recommendations",
	}

	cmd.AddCommand(newPricingListCommand(registry))
	cmd.AddCommand(newPricingGetCommand(registry))
	cmd.AddCommand(newPricingRecommendCommand(registry))

	return cmd
}

func newPricingListCommand(registry *spotclient.Registry) *cobra.Command {
	var (
		region  string
		classes []string
		regions []string
		gen     int
		minCPU  float64
		maxCPU  float64
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List current market prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient(cmd.Context(), registry)
			if err != nil {
				return err
			}

			prices, err := client.Pricing().List(cmd.Context(), region)
			if err != nil {
				return err
			}

			rows := pricing.FilterForList(pricing.Normalize(prices.Items), &pricing.ListFilter{
				Classes: classes,
				Regions: regions,
				Gen:     gen,
				MinCPU:  minCPU,
				MaxCPU:  maxCPU,
			})
			pricing.SortForList(rows)

			return renderStructured(rows, func() error {
				return renderPricingTable(rows)
			})
		},
	}

	cmd.Flags().StringVar(&region, "region", "", "fetch prices for one region")
	cmd.Flags().StringSliceVar(&classes, "class", nil, "filter by class prefix (gp, ch, mh, ...)")
	cmd.Flags().StringSliceVar(&regions, "region-filter", nil, "filter rows by region")
	cmd.Flags().IntVar(&gen, "gen", 0, "filter by virtual generation (1 or 2)")
	cmd.Flags().Float64Var(&minCPU, "min-cpu", 0, "minimum vCPU count")
	cmd.Flags().Float64Var(&maxCPU, "max-cpu", 0, "maximum vCPU count")

	return cmd
}

func renderPricingTable(rows []pricing.Item) error {
	if len(rows) == 0 {
		_, _ = os.Stdout.WriteString("No pricing data found\n")

		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Server Class", "Region", "CPU", "Mem GiB", "Hourly", "Monthly", "Value")

	for i := range rows {
		row := &rows[i]

		hourly := NotAvailable
		monthly := NotAvailable

		if row.HourlyPrice > 0 {
			hourly = formatUSD(row.HourlyPrice, 4)
			monthly = formatUSD(row.MonthlyPrice(), 2)
		}

		_ = table.Append(row.Raw.ServerClassName, orNA(row.Raw.Region),
			formatFloat(row.CPU), formatFloat(row.MemoryGB),
			hourly, monthly, formatFloat(row.ValuePerNode()))
	}

	_ = table.Render()

	return nil
}

func newPricingGetCommand(registry *spotclient.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "get SERVER_CLASS",
		Short: "Get the price projection for one server class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient(cmd.Context(), registry)
			if err != nil {
				return err
			}

			details, err := client.Pricing().ForServerClass(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			rows := pricing.Normalize([]spot.PriceDetails{*details})

			return renderStructured(details, func() error {
				return renderPricingTable(rows)
			})
		},
	}
}

//nolint:funlen // flag wiring dominates the length
func newPricingRecommendCommand(registry *spotclient.Registry) *cobra.Command {
	var (
		nodes    int
		gen      int
		risk     string
		region   string
		classes  []string
		regions  []string
		minHour  float64
		maxHour  float64
		minMonth float64
		maxMonth float64
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend nodepool builds for a target node count",
		Long: `Rank virtual server classes by performance, value, and a balanced
mix, and propose nodepool builds with suggested bid prices.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient(cmd.Context(), registry)
			if err != nil {
				return err
			}

			prices, err := client.Pricing().List(cmd.Context(), region)
			if err != nil {
				return err
			}

			recommendation := pricing.BuildRecommendation(pricing.Normalize(prices.Items), pricing.BuildOptions{
				Nodes:    nodes,
				Gen:      gen,
				Risk:     pricing.Risk(risk),
				Regions:  regions,
				Classes:  classes,
				MinHour:  minHour,
				MaxHour:  maxHour,
				MinMonth: minMonth,
				MaxMonth: maxMonth,
			})

			return renderStructured(recommendation, func() error {
				return renderRecommendationTable(recommendation)
			})
		},
	}

	cmd.Flags().IntVar(&nodes, "nodes", 3, "target node count")
	cmd.Flags().IntVar(&gen, "gen", 0, "restrict to one virtual generation")
	cmd.Flags().StringVar(&risk, "risk", "med", "bid risk appetite (low, med, high)")
	cmd.Flags().StringVar(&region, "region", "", "fetch prices for one region")
	cmd.Flags().StringSliceVar(&classes, "class", nil, "restrict to class prefixes")
	cmd.Flags().StringSliceVar(&regions, "region-filter", nil, "restrict to regions")
	cmd.Flags().Float64Var(&minHour, "min-hour", 0, "minimum total hourly spend")
	cmd.Flags().Float64Var(&maxHour, "max-hour", 0, "maximum total hourly spend")
	cmd.Flags().Float64Var(&minMonth, "min-month", 0, "minimum total monthly spend")
	cmd.Flags().Float64Var(&maxMonth, "max-month", 0, "maximum total monthly spend")

	return cmd
}

func renderRecommendationTable(recommendation *pricing.Recommendation) error {
	if recommendation.Warning != "" {
		_, _ = fmt.Fprintf(os.Stdout, "Warning: %s\n\n", recommendation.Warning)
	}

	if len(recommendation.Scenarios) == 0 {
		_, _ = os.Stdout.WriteString("No build scenarios available\n")

		return nil
	}

	for _, scenario := range recommendation.Scenarios {
		_, _ = fmt.Fprintf(os.Stdout, "Strategy: %s (total %s/hr, %s/mo, %s vCPU, %s GiB)\n",
			scenario.Strategy,
			formatUSD(scenario.TotalHourly, 4), formatUSD(scenario.TotalMonthly, 2),
			formatFloat(scenario.TotalCPU), formatFloat(scenario.TotalMemoryGB))

		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Server Class", "Nodes", "CPU/node", "Mem GiB/node", "Hourly/node", "Suggested Bid")

		for _, pool := range scenario.Pools {
			_ = table.Append(pool.ServerClassName, strconv.Itoa(pool.Nodes),
				formatFloat(pool.CPUPerNode), formatFloat(pool.MemoryGBPerNode),
				formatUSD(pool.HourlyPerNode, 4), formatUSD(pool.SuggestedBid, 4))
		}

		_ = table.Render()
		_, _ = os.Stdout.WriteString("\n")
	}

	return nil
}

func formatUSD(value float64, decimals int) string {
	return "$" + strconv.FormatFloat(value, 'f', decimals, 64)
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
