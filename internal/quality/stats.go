package quality

import (
	"context"
	"fmt"
	"math"
	"sort"

	"ieso-demand-agent/internal/models"
	"ieso-demand-agent/pkg/logging"
)

// Summarize computes descriptive statistics over a demand series: central
// tendency, spread, ranked percentiles, and hour-of-day averages. The
// series need not be ordered. A series with no usable measurements fails
// with an EmptySeriesError rather than producing a zero-filled report.
//
// MW-valued floats are rounded to 2 decimal places at this boundary;
// min/max and percentiles are truncated to whole megawatts. Internal
// computation runs at full precision.
func (e *Engine) Summarize(ctx context.Context, series []models.DemandReading) (*models.StatisticsReport, error) {
	values := demandValues(series)
	if len(values) == 0 {
		return nil, &models.EmptySeriesError{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean := meanOf(values)
	stdDev := sampleStdDev(values, mean)

	// Hour-of-day averages across all calendar days present. Peak and min
	// hours replace the running extreme only on strict improvement, so the
	// numerically smallest hour wins ties.
	var hourSums [24]float64
	var hourCounts [24]int
	for i := range series {
		if series[i].OntarioDemandMW != nil {
			hourSums[series[i].Hour] += *series[i].OntarioDemandMW
			hourCounts[series[i].Hour]++
		}
	}

	peakHour, minHour := -1, -1
	var peakAvg, minAvg float64
	for hour := 0; hour < 24; hour++ {
		if hourCounts[hour] == 0 {
			continue
		}
		avg := hourSums[hour] / float64(hourCounts[hour])
		if peakHour == -1 || avg > peakAvg {
			peakHour = hour
			peakAvg = avg
		}
		if minHour == -1 || avg < minAvg {
			minHour = hour
			minAvg = avg
		}
	}

	e.logger.Debug(ctx, "[QUALITY_SUMMARIZE] Statistics computed", logging.Fields{
		"reading_count": len(series),
		"value_count":   len(values),
		"mean_mw":       mean,
		"peak_hour":     peakHour,
		"min_hour":      minHour,
	})

	return &models.StatisticsReport{
		Success:        true,
		MeanDemandMW:   round2(mean),
		MedianDemandMW: round2(percentile(sorted, 0.50)),
		StdDevMW:       round2(stdDev),
		MinDemandMW:    int(sorted[0]),
		MaxDemandMW:    int(sorted[len(sorted)-1]),
		Percentiles: models.Percentiles{
			P25: int(percentile(sorted, 0.25)),
			P50: int(percentile(sorted, 0.50)),
			P75: int(percentile(sorted, 0.75)),
			P95: int(percentile(sorted, 0.95)),
		},
		PeakHour:      peakHour,
		PeakHourAvgMW: round2(peakAvg),
		MinHour:       minHour,
		MinHourAvgMW:  round2(minAvg),
		Message:       fmt.Sprintf("Statistics calculated for %d hours of data", len(series)),
	}, nil
}

// meanOf returns the arithmetic mean, or 0 for an empty slice.
func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStdDev returns the sample standard deviation (N-1 denominator),
// or 0 when fewer than two values are present.
func sampleStdDev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}

// percentile computes the q-th quantile (0 <= q <= 1) of an ascending
// slice using linear interpolation between ranked data points. This is
// the conventional "linear" method; nearest-rank would not reproduce the
// expected outputs.
func percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	rank := q * float64(n-1)
	lo := int(math.Floor(rank))
	frac := rank - float64(lo)
	if lo+1 >= n {
		return sorted[n-1]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// round2 rounds to 2 decimal places for presentation.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
