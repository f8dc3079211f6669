// Package pricing derives cost projections and build recommendations
// from server class market data. All computation is in-memory; the
// inputs come from the pricing client.
package pricing

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
)

// MonthHours is the flat hours-per-month assumption used for monthly
// cost projections.
const MonthHours = 730

const (
	cpuWeight      = 1.0
	memoryWeight   = 1.0
	gen2Multiplier = 1.10
)

// Risk selects how aggressive suggested bids are relative to the
// current market price.
type Risk string

// Risk levels.
const (
	RiskLow  Risk = "low"
	RiskMed  Risk = "med"
	RiskHigh Risk = "high"
)

// Strategy names a ranking approach for build scenarios.
type Strategy string

// Strategies.
const (
	StrategyMaxPerformance Strategy = "max_performance"
	StrategyMaxValue       Strategy = "max_value"
	StrategyBalanced       Strategy = "balanced"
)

// DefaultBuildClasses are the class prefixes considered when the
// caller does not restrict them.
var DefaultBuildClasses = []string{"gp", "ch", "mh"}

// riskBidMultiplier maps risk appetite to a bid markup over market
// price. Lower risk bids higher to survive price spikes.
var riskBidMultiplier = map[Risk]float64{
	RiskLow:  1.35,
	RiskMed:  1.20,
	RiskHigh: 1.05,
}

// riskBalancedPoolTarget maps risk appetite to how many pools a
// balanced scenario spreads nodes across.
var riskBalancedPoolTarget = map[Risk]int{
	RiskLow:  3,
	RiskMed:  2,
	RiskHigh: 1,
}

var (
	memoryRe      = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*(GB|TB)?\s*$`)
	virtualGenRe  = regexp.MustCompile(`(?i)\.vs([0-9]+)([.\-]|$)`)
	classPrefixRe = regexp.MustCompile(`^([^.]+)\.`)
)

// Item is a pricing entry with its numeric fields parsed out. A zero
// HourlyPrice, CPU, or MemoryGB means the source field was missing or
// unparseable.
type Item struct {
	Raw         spot.PriceDetails
	ClassPrefix string
	IsVirtual   bool
	Generation  int
	HourlyPrice float64
	CPU         float64
	MemoryGB    float64
}

// MonthlyPrice projects the hourly price over a month.
func (i *Item) MonthlyPrice() float64 {
	return i.HourlyPrice * MonthHours
}

// CapacityPerNode scores a node by weighted cpu+memory, with a bump
// for second-generation virtual classes.
func (i *Item) CapacityPerNode() float64 {
	if i.CPU <= 0 || i.MemoryGB <= 0 {
		return 0
	}

	multiplier := 1.0
	if i.Generation == 2 {
		multiplier = gen2Multiplier
	}

	return (i.CPU*cpuWeight + i.MemoryGB*memoryWeight) * multiplier
}

// ValuePerNode is capacity per dollar-hour.
func (i *Item) ValuePerNode() float64 {
	if i.HourlyPrice <= 0 {
		return 0
	}

	return i.CapacityPerNode() / i.HourlyPrice
}

// ParseMarketPrice parses a "$0.011" style price string. Returns 0
// for empty or unparseable values.
func ParseMarketPrice(value string) float64 {
	normalized := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(value, "$", ""), ",", ""))
	if normalized == "" {
		return 0
	}

	parsed, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0
	}

	return parsed
}

// ParseMemoryGB parses "8GB", "1.5TB", or a bare number into GiB.
func ParseMemoryGB(value string) float64 {
	match := memoryRe.FindStringSubmatch(value)
	if match == nil {
		return 0
	}

	amount, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0
	}

	if strings.EqualFold(match[2], "TB") {
		return amount * 1024
	}

	return amount
}

// ClassPrefix extracts the class family from a server class name,
// e.g. "gp" from "gp.vs1.large-dfw".
func ClassPrefix(name string) string {
	match := classPrefixRe.FindStringSubmatch(strings.ToLower(name))
	if match == nil {
		return ""
	}

	return match[1]
}

// DetectVirtualGeneration extracts N from a ".vsN" name segment.
// Returns 0 when the class is not a virtual server class.
func DetectVirtualGeneration(name string) int {
	match := virtualGenRe.FindStringSubmatch(strings.ToLower(name))
	if match == nil {
		return 0
	}

	generation, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}

	return generation
}

// Normalize parses the numeric fields out of raw pricing entries.
func Normalize(items []spot.PriceDetails) []Item {
	normalized := make([]Item, 0, len(items))

	for _, item := range items {
		generation := DetectVirtualGeneration(item.ServerClassName)

		cpu := 0.0
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(item.CPU), 64); err == nil {
			cpu = parsed
		}

		normalized = append(normalized, Item{
			Raw:         item,
			ClassPrefix: ClassPrefix(item.ServerClassName),
			IsVirtual:   generation > 0,
			Generation:  generation,
			HourlyPrice: ParseMarketPrice(item.MarketPrice),
			CPU:         cpu,
			MemoryGB:    ParseMemoryGB(item.Memory),
		})
	}

	return normalized
}

// SplitCSVFlags flattens repeated comma-separated flag values into a
// deduplicated lowercase list.
func SplitCSVFlags(values []string) []string {
	output := []string{}
	seen := map[string]bool{}

	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			token := strings.ToLower(strings.TrimSpace(part))
			if token == "" || seen[token] {
				continue
			}

			output = append(output, token)
			seen[token] = true
		}
	}

	return output
}

// ListFilter restricts pricing rows for display.
type ListFilter struct {
	Classes []string
	Regions []string
	Gen     int
	MinCPU  float64
	MaxCPU  float64
}

// FilterForList applies a display filter. Zero fields do not filter.
func FilterForList(rows []Item, filter *ListFilter) []Item {
	if filter == nil {
		filter = &ListFilter{}
	}

	classSet := toSet(SplitCSVFlags(filter.Classes))
	regionSet := toSet(SplitCSVFlags(filter.Regions))

	out := []Item{}

	for _, row := range rows {
		if len(regionSet) > 0 && !regionSet[strings.ToLower(row.Raw.Region)] {
			continue
		}

		if len(classSet) > 0 && !classSet[row.ClassPrefix] {
			continue
		}

		if filter.Gen > 0 && row.IsVirtual && row.Generation != filter.Gen {
			continue
		}

		if filter.MinCPU > 0 && row.CPU < filter.MinCPU {
			continue
		}

		if filter.MaxCPU > 0 && row.CPU > filter.MaxCPU {
			continue
		}

		out = append(out, row)
	}

	return out
}

// SortForList orders rows by hourly price ascending, then cpu
// descending, then name.
func SortForList(rows []Item) {
	sort.SliceStable(rows, func(a, b int) bool {
		left, right := rows[a], rows[b]

		leftPrice := left.HourlyPrice
		if leftPrice <= 0 {
			leftPrice = math.Inf(1)
		}

		rightPrice := right.HourlyPrice
		if rightPrice <= 0 {
			rightPrice = math.Inf(1)
		}

		if leftPrice != rightPrice {
			return leftPrice < rightPrice
		}

		if left.CPU != right.CPU {
			return left.CPU > right.CPU
		}

		return left.Raw.ServerClassName < right.Raw.ServerClassName
	})
}

// Pool is one nodepool inside a build scenario.
type Pool struct {
	ServerClassName string  `json:"server_class_name"  yaml:"server_class_name"`
	ClassPrefix     string  `json:"class"              yaml:"class"`
	Region          string  `json:"region,omitempty"   yaml:"region,omitempty"`
	Generation      int     `json:"gen,omitempty"      yaml:"gen,omitempty"`
	Nodes           int     `json:"nodes"              yaml:"nodes"`
	CPUPerNode      float64 `json:"cpu_per_node"       yaml:"cpu_per_node"`
	MemoryGBPerNode float64 `json:"memory_gb_per_node" yaml:"memory_gb_per_node"`
	HourlyPerNode   float64 `json:"hourly_per_node"    yaml:"hourly_per_node"`
	MonthlyPerNode  float64 `json:"monthly_per_node"   yaml:"monthly_per_node"`
	HourlyTotal     float64 `json:"hourly_total"       yaml:"hourly_total"`
	MonthlyTotal    float64 `json:"monthly_total"      yaml:"monthly_total"`
	SuggestedBid    float64 `json:"suggested_bid"      yaml:"suggested_bid"`
	CapacityPerNode float64 `json:"capacity_per_node"  yaml:"capacity_per_node"`
	ValuePerNode    float64 `json:"value_per_node"     yaml:"value_per_node"`
}

// Scenario is one strategy's recommended build.
type Scenario struct {
	Strategy      Strategy `json:"strategy"        yaml:"strategy"`
	Score         float64  `json:"score"           yaml:"score"`
	TotalHourly   float64  `json:"total_hourly"    yaml:"total_hourly"`
	TotalMonthly  float64  `json:"total_monthly"   yaml:"total_monthly"`
	TotalCPU      float64  `json:"total_cpu"       yaml:"total_cpu"`
	TotalMemoryGB float64  `json:"total_memory_gb" yaml:"total_memory_gb"`
	Pools         []Pool   `json:"pools"           yaml:"pools"`
}

// Recommendation is the full output of a build request.
type Recommendation struct {
	Requested   map[string]any `json:"requested"         yaml:"requested"`
	Assumptions map[string]any `json:"assumptions"       yaml:"assumptions"`
	Scenarios   []Scenario     `json:"scenarios"         yaml:"scenarios"`
	Warning     string         `json:"warning,omitempty" yaml:"warning,omitempty"`
}

// BuildOptions parameterize a build recommendation.
type BuildOptions struct {
	Nodes    int
	Gen      int
	Risk     Risk
	Balanced bool
	Regions  []string
	Classes  []string
	MinHour  float64
	MaxHour  float64
	MinMonth float64
	MaxMonth float64
}

// BuildRecommendation ranks virtual server classes under three
// strategies and proposes nodepool builds with suggested bids.
//
//nolint:funlen,cyclop,gocognit // candidate selection and the three ranking passes read best in one sequence
func BuildRecommendation(rows []Item, opts BuildOptions) *Recommendation {
	if opts.Risk == "" {
		opts.Risk = RiskMed
	}

	classFilters := SplitCSVFlags(opts.Classes)
	if len(classFilters) == 0 {
		classFilters = DefaultBuildClasses
	}

	regionFilters := toSet(SplitCSVFlags(opts.Regions))
	classSet := toSet(classFilters)

	candidates := []Item{}

	for _, row := range rows {
		if !row.IsVirtual {
			continue
		}

		if opts.Gen > 0 && row.Generation != opts.Gen {
			continue
		}

		if !classSet[row.ClassPrefix] {
			continue
		}

		if len(regionFilters) > 0 && !regionFilters[strings.ToLower(row.Raw.Region)] {
			continue
		}

		if row.HourlyPrice <= 0 || row.CPU <= 0 || row.MemoryGB <= 0 {
			continue
		}

		candidates = append(candidates, row)
	}

	recommendation := &Recommendation{
		Requested: map[string]any{
			"nodes":    opts.Nodes,
			"gen":      opts.Gen,
			"risk":     opts.Risk,
			"balanced": opts.Balanced,
			"regions":  SplitCSVFlags(opts.Regions),
			"classes":  classFilters,
		},
		Assumptions: map[string]any{
			"month_hours":         MonthHours,
			"cpu_weight":          cpuWeight,
			"memory_weight":       memoryWeight,
			"gen2_multiplier":     gen2Multiplier,
			"risk_bid_multiplier": riskBidMultiplier[opts.Risk],
		},
		Scenarios: []Scenario{},
	}

	if len(candidates) == 0 {
		recommendation.Warning = "No pricing candidates matched the provided filters."

		return recommendation
	}

	capMin, capMax := bounds(candidates, (*Item).CapacityPerNode)
	valueMin, valueMax := bounds(candidates, (*Item).ValuePerNode)

	byCapacity := rankBy(candidates, (*Item).CapacityPerNode)
	byValue := rankBy(candidates, (*Item).ValuePerNode)
	byBalance := rankBy(candidates, func(item *Item) float64 {
		return 0.5*normalizeScore(item.CapacityPerNode(), capMin, capMax) +
			0.5*normalizeScore(item.ValuePerNode(), valueMin, valueMax)
	})

	bidMultiplier := riskBidMultiplier[opts.Risk]

	balancedPoolCount := 1
	if opts.Balanced {
		balancedPoolCount = min(opts.Nodes, len(byBalance), riskBalancedPoolTarget[opts.Risk])
		balancedPoolCount = max(1, balancedPoolCount)
	}

	builds := []struct {
		strategy  Strategy
		ranked    []Item
		poolCount int
	}{
		{StrategyMaxPerformance, byCapacity, 1},
		{StrategyMaxValue, byValue, 1},
		{StrategyBalanced, byBalance, balancedPoolCount},
	}

	for _, build := range builds {
		scenario := buildScenario(build.strategy, build.ranked, opts.Nodes, build.poolCount, bidMultiplier,
			capMin, capMax, valueMin, valueMax)
		if scenario == nil {
			continue
		}

		if !withinCostBounds(scenario, opts) {
			continue
		}

		recommendation.Scenarios = append(recommendation.Scenarios, *scenario)
	}

	if len(recommendation.Scenarios) == 0 {
		recommendation.Warning = "No scenarios matched the provided hourly/monthly budget constraints."
	}

	return recommendation
}

func buildScenario(strategy Strategy, ranked []Item, nodes, poolCount int, bidMultiplier,
	capMin, capMax, valueMin, valueMax float64,
) *Scenario {
	if poolCount > len(ranked) {
		poolCount = len(ranked)
	}

	if poolCount == 0 {
		return nil
	}

	selected := ranked[:poolCount]
	allocations := distributeNodes(nodes, poolCount)
	pools := []Pool{}

	for i := range selected {
		if allocations[i] == 0 {
			continue
		}

		pools = append(pools, buildPool(&selected[i], allocations[i], bidMultiplier))
	}

	if len(pools) == 0 {
		return nil
	}

	scenario := &Scenario{Strategy: strategy, Pools: pools}

	totalCapacity := 0.0

	for _, pool := range pools {
		scenario.TotalHourly += pool.HourlyTotal
		scenario.TotalMonthly += pool.MonthlyTotal
		scenario.TotalCPU += pool.CPUPerNode * float64(pool.Nodes)
		scenario.TotalMemoryGB += pool.MemoryGBPerNode * float64(pool.Nodes)
		totalCapacity += pool.CapacityPerNode * float64(pool.Nodes)
	}

	valueMetric := 0.0
	if scenario.TotalHourly > 0 {
		valueMetric = totalCapacity / scenario.TotalHourly
	}

	switch strategy {
	case StrategyMaxPerformance:
		scenario.Score = totalCapacity
	case StrategyMaxValue:
		scenario.Score = valueMetric
	case StrategyBalanced:
		capScore := normalizeScore(totalCapacity/float64(nodes), capMin, capMax)
		valueScore := normalizeScore(valueMetric, valueMin, valueMax)
		scenario.Score = 0.5*capScore + 0.5*valueScore
	}

	return scenario
}

func buildPool(row *Item, nodes int, bidMultiplier float64) Pool {
	return Pool{
		ServerClassName: row.Raw.ServerClassName,
		ClassPrefix:     row.ClassPrefix,
		Region:          row.Raw.Region,
		Generation:      row.Generation,
		Nodes:           nodes,
		CPUPerNode:      row.CPU,
		MemoryGBPerNode: row.MemoryGB,
		HourlyPerNode:   row.HourlyPrice,
		MonthlyPerNode:  row.MonthlyPrice(),
		HourlyTotal:     row.HourlyPrice * float64(nodes),
		MonthlyTotal:    row.MonthlyPrice() * float64(nodes),
		SuggestedBid:    row.HourlyPrice * bidMultiplier,
		CapacityPerNode: row.CapacityPerNode(),
		ValuePerNode:    row.ValuePerNode(),
	}
}

func withinCostBounds(scenario *Scenario, opts BuildOptions) bool {
	if opts.MinHour > 0 && scenario.TotalHourly < opts.MinHour {
		return false
	}

	if opts.MaxHour > 0 && scenario.TotalHourly > opts.MaxHour {
		return false
	}

	if opts.MinMonth > 0 && scenario.TotalMonthly < opts.MinMonth {
		return false
	}

	if opts.MaxMonth > 0 && scenario.TotalMonthly > opts.MaxMonth {
		return false
	}

	return true
}

// distributeNodes spreads nodes evenly across pools, earlier pools
// taking the remainder.
func distributeNodes(totalNodes, poolCount int) []int {
	base := totalNodes / poolCount
	remainder := totalNodes % poolCount
	allocations := make([]int, poolCount)

	for i := range allocations {
		allocations[i] = base
		if i < remainder {
			allocations[i]++
		}
	}

	return allocations
}

func normalizeScore(value, minValue, maxValue float64) float64 {
	if math.Abs(maxValue-minValue) < 1e-9 {
		return 1.0
	}

	return (value - minValue) / (maxValue - minValue)
}

func rankBy(items []Item, metric func(*Item) float64) []Item {
	ranked := make([]Item, len(items))
	copy(ranked, items)

	sort.SliceStable(ranked, func(a, b int) bool {
		left, right := &ranked[a], &ranked[b]

		leftMetric, rightMetric := metric(left), metric(right)
		if leftMetric != rightMetric {
			return leftMetric > rightMetric
		}

		if left.HourlyPrice != right.HourlyPrice {
			return left.HourlyPrice < right.HourlyPrice
		}

		return left.Raw.ServerClassName < right.Raw.ServerClassName
	})

	return ranked
}

func bounds(items []Item, metric func(*Item) float64) (minValue, maxValue float64) {
	minValue = math.Inf(1)
	maxValue = math.Inf(-1)

	for i := range items {
		value := metric(&items[i])
		minValue = math.Min(minValue, value)
		maxValue = math.Max(maxValue, value)
	}

	return minValue, maxValue
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, value := range values {
		set[value] = true
	}

	return set
}
