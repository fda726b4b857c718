package playground

import "codeplay/internal/storage"

// recentStats is how many runs a Summary lists individually.
const recentStats = 10

// Summary aggregates a run history.
type Summary struct {
	Count     int                     `json:"count"`
	Successes int                     `json:"successes"`
	AverageMS float64                 `json:"average_ms"`
	Recent    []storage.ExecutionStat `json:"recent"`
}

// Summarize computes a Summary over stats, oldest first.
func Summarize(stats []storage.ExecutionStat) Summary {
	sum := Summary{Count: len(stats), Recent: []storage.ExecutionStat{}}
	if len(stats) == 0 {
		return sum
	}

	var total int64
	for _, st := range stats {
		total += st.DurationMS
		if st.Status == storage.StatSuccess {
			sum.Successes++
		}
	}
	sum.AverageMS = float64(total) / float64(len(stats))

	start := len(stats) - recentStats
	if start < 0 {
		start = 0
	}
	sum.Recent = append(sum.Recent, stats[start:]...)
	return sum
}
