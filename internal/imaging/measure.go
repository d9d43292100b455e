package imaging

import "math"

// Stats summarises a set of samples.
type Stats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// summarize computes min, max and mean over every value in rows.
// The mean is clamped into [Min, Max] so rounding in the running sum can
// never break Min <= Mean <= Max; for constant input all three are equal.
func summarize(rows [][]float64) Stats {
	var (
		sum   float64
		count int
	)
	min, max := math.Inf(1), math.Inf(-1)
	for _, row := range rows {
		for _, v := range row {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
			sum += v
			count++
		}
	}
	if count == 0 {
		return Stats{}
	}

	mean := sum / float64(count)
	mean = math.Max(min, math.Min(max, mean))
	return Stats{Min: min, Max: max, Mean: mean}
}
