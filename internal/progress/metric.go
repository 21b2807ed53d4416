package progress

import "fmt"

// Metric is the closed set of goal metrics. Every member is tagged either
// snapshot or cumulative, and the reconciler's ground-truth switch must cover
// all of them; there is no catch-all defaulting to zero.
type Metric int

const (
	MetricLevel Metric = iota
	MetricMoney
	MetricBlackcoins
	MetricBankBalance
	MetricDaysInGame
	MetricFightsWon
	MetricFightsLost
	MetricTotalFights
	MetricCrimesCommitted
	MetricTimesEliminated
)

// Kind distinguishes how a metric's progress evolves.
type Kind int

const (
	// Snapshot metrics hold the maximum value ever observed for a
	// point-in-time quantity; they never decrease even if the quantity does.
	Snapshot Kind = iota
	// Cumulative metrics accumulate non-negative deltas over time.
	Cumulative
)

var metricNames = map[Metric]string{
	MetricLevel:           "level",
	MetricMoney:           "money",
	MetricBlackcoins:      "blackcoins",
	MetricBankBalance:     "bank_balance",
	MetricDaysInGame:      "days_in_game",
	MetricFightsWon:       "fights_won",
	MetricFightsLost:      "fights_lost",
	MetricTotalFights:     "total_fights",
	MetricCrimesCommitted: "crimes_committed",
	MetricTimesEliminated: "times_eliminated",
}

func (m Metric) String() string { return metricNames[m] }

// Kind returns the metric's progress semantics.
func (m Metric) Kind() Kind {
	switch m {
	case MetricFightsWon, MetricFightsLost, MetricTotalFights, MetricCrimesCommitted, MetricTimesEliminated:
		return Cumulative
	default:
		return Snapshot
	}
}

// ParseMetric maps a catalog metric name to its enum member. Unknown names
// are an error so a typo in the goal catalog cannot silently track nothing.
func ParseMetric(name string) (Metric, error) {
	for m, n := range metricNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown metric %q", name)
}

// Metrics lists every member, for reconciliation sweeps.
func Metrics() []Metric {
	out := make([]Metric, 0, len(metricNames))
	for m := range metricNames {
		out = append(out, m)
	}
	return out
}
