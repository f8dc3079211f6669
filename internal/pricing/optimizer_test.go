package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SparkAIUR/rsspot-sdk/internal/pricing"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

func TestParseMarketPrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"dollar prefix", "$0.011", 0.011},
		{"plain number", "0.5", 0.5},
		{"thousands separator", "$1,024.50", 1024.50},
		{"empty", "", 0},
		{"garbage", "n/a", 0},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, testCase.want, pricing.ParseMarketPrice(testCase.input), 1e-9)
		})
	}
}

func TestParseMemoryGB(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 8.0, pricing.ParseMemoryGB("8GB"), 1e-9)
	assert.InDelta(t, 8.0, pricing.ParseMemoryGB(" 8 gb "), 1e-9)
	assert.InDelta(t, 1536.0, pricing.ParseMemoryGB("1.5TB"), 1e-9)
	assert.InDelta(t, 16.0, pricing.ParseMemoryGB("16"), 1e-9)
	assert.InDelta(t, 0.0, pricing.ParseMemoryGB("lots"), 1e-9)
}

func TestClassNameParsing(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "gp", pricing.ClassPrefix("gp.vs1.large-dfw"))
	assert.Equal(t, "mh", pricing.ClassPrefix("MH.vs2.xlarge"))
	assert.Equal(t, "", pricing.ClassPrefix("bare"))

	assert.Equal(t, 1, pricing.DetectVirtualGeneration("gp.vs1.large-dfw"))
	assert.Equal(t, 2, pricing.DetectVirtualGeneration("ch.vs2-medium"))
	assert.Equal(t, 0, pricing.DetectVirtualGeneration("bm.metal.large"))
}

func TestSplitCSVFlags(t *testing.T) {
	t.Parallel()

	out := pricing.SplitCSVFlags([]string{"gp,CH", " mh ", "gp"})
	assert.Equal(t, []string{"gp", "ch", "mh"}, out)
	assert.Empty(t, pricing.SplitCSVFlags(nil))
}

func priceRow(name, price, cpu, memory, region string) spot.PriceDetails {
	return spot.PriceDetails{
		ServerClassName: name,
		MarketPrice:     price,
		CPU:             cpu,
		Memory:          memory,
		Region:          region,
	}
}

func TestNormalizeAndCapacity(t *testing.T) {
	t.Parallel()

	rows := pricing.Normalize([]spot.PriceDetails{
		priceRow("gp.vs1.large-dfw", "$0.010", "4", "8GB", "us-central-dfw-1"),
		priceRow("gp.vs2.large-dfw", "$0.012", "4", "8GB", "us-central-dfw-1"),
	})
	require.Len(t, rows, 2)

	gen1, gen2 := rows[0], rows[1]
	assert.True(t, gen1.IsVirtual)
	assert.InDelta(t, 12.0, gen1.CapacityPerNode(), 1e-9)
	// Second generation carries the capacity bump.
	assert.InDelta(t, 13.2, gen2.CapacityPerNode(), 1e-9)
	assert.InDelta(t, 0.010*pricing.MonthHours, gen1.MonthlyPrice(), 1e-9)
	assert.InDelta(t, 1200.0, gen1.ValuePerNode(), 1e-9)
}

func TestFilterForList(t *testing.T) {
	t.Parallel()

	rows := pricing.Normalize([]spot.PriceDetails{
		priceRow("gp.vs1.small-dfw", "$0.004", "2", "4GB", "us-central-dfw-1"),
		priceRow("gp.vs2.large-dfw", "$0.012", "4", "8GB", "us-central-dfw-1"),
		priceRow("ch.vs2.large-iad", "$0.014", "8", "8GB", "us-east-iad-1"),
	})

	filtered := pricing.FilterForList(rows, &pricing.ListFilter{Classes: []string{"gp"}, Gen: 2})
	require.Len(t, filtered, 1)
	assert.Equal(t, "gp.vs2.large-dfw", filtered[0].Raw.ServerClassName)

	filtered = pricing.FilterForList(rows, &pricing.ListFilter{Regions: []string{"US-EAST-IAD-1"}})
	require.Len(t, filtered, 1)
	assert.Equal(t, "ch.vs2.large-iad", filtered[0].Raw.ServerClassName)

	filtered = pricing.FilterForList(rows, &pricing.ListFilter{MinCPU: 4, MaxCPU: 4})
	require.Len(t, filtered, 1)
	assert.Equal(t, "gp.vs2.large-dfw", filtered[0].Raw.ServerClassName)
}

func TestSortForList(t *testing.T) {
	t.Parallel()

	rows := pricing.Normalize([]spot.PriceDetails{
		priceRow("gp.vs1.b", "$0.010", "4", "8GB", ""),
		priceRow("gp.vs1.a", "", "2", "4GB", ""),
		priceRow("gp.vs1.c", "$0.004", "2", "4GB", ""),
	})

	pricing.SortForList(rows)

	assert.Equal(t, "gp.vs1.c", rows[0].Raw.ServerClassName)
	assert.Equal(t, "gp.vs1.b", rows[1].Raw.ServerClassName)
	// Unpriced rows sort last.
	assert.Equal(t, "gp.vs1.a", rows[2].Raw.ServerClassName)
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestBuildRecommendation(t *testing.T) {
	t.Parallel()

	rows := pricing.Normalize([]spot.PriceDetails{
		priceRow("gp.vs2.big-dfw", "$0.020", "16", "32GB", "us-central-dfw-1"),
		priceRow("gp.vs1.cheap-dfw", "$0.002", "2", "4GB", "us-central-dfw-1"),
		priceRow("ch.vs2.mid-dfw", "$0.010", "8", "16GB", "us-central-dfw-1"),
		priceRow("bm.metal.huge", "$0.500", "64", "256GB", "us-central-dfw-1"), // not virtual
	})

	t.Run("three scenarios with spread balanced pools", func(t *testing.T) {
		t.Parallel()

		recommendation := pricing.BuildRecommendation(rows, pricing.BuildOptions{
			Nodes:    6,
			Risk:     pricing.RiskLow,
			Balanced: true,
		})
		require.Empty(t, recommendation.Warning)
		require.Len(t, recommendation.Scenarios, 3)

		var performance, balanced *pricing.Scenario

		for i := range recommendation.Scenarios {
			scenario := &recommendation.Scenarios[i]
			switch scenario.Strategy {
			case pricing.StrategyMaxPerformance:
				performance = scenario
			case pricing.StrategyBalanced:
				balanced = scenario
			case pricing.StrategyMaxValue:
			}
		}

		require.NotNil(t, performance)
		require.Len(t, performance.Pools, 1)
		assert.Equal(t, "gp.vs2.big-dfw", performance.Pools[0].ServerClassName)
		assert.Equal(t, 6, performance.Pools[0].Nodes)

		// Low risk spreads across three pools and bids 1.35x market.
		require.NotNil(t, balanced)
		assert.Len(t, balanced.Pools, 3)

		totalNodes := 0
		for _, pool := range balanced.Pools {
			totalNodes += pool.Nodes
			assert.InDelta(t, pool.HourlyPerNode*1.35, pool.SuggestedBid, 1e-9)
		}

		assert.Equal(t, 6, totalNodes)
	})

	t.Run("non-virtual classes are excluded", func(t *testing.T) {
		t.Parallel()

		recommendation := pricing.BuildRecommendation(rows, pricing.BuildOptions{Nodes: 1, Risk: pricing.RiskMed})
		for _, scenario := range recommendation.Scenarios {
			for _, pool := range scenario.Pools {
				assert.NotEqual(t, "bm.metal.huge", pool.ServerClassName)
			}
		}
	})

	t.Run("budget constraints can reject everything", func(t *testing.T) {
		t.Parallel()

		recommendation := pricing.BuildRecommendation(rows, pricing.BuildOptions{
			Nodes:   6,
			Risk:    pricing.RiskMed,
			MaxHour: 0.001,
		})
		assert.Empty(t, recommendation.Scenarios)
		assert.NotEmpty(t, recommendation.Warning)
	})

	t.Run("no candidates yields a warning", func(t *testing.T) {
		t.Parallel()

		recommendation := pricing.BuildRecommendation(rows, pricing.BuildOptions{
			Nodes:   2,
			Risk:    pricing.RiskMed,
			Classes: []string{"xx"},
		})
		assert.Empty(t, recommendation.Scenarios)
		assert.Equal(t, "No pricing candidates matched the provided filters.", recommendation.Warning)
	})
}
