package sim

import (
	"gonum.org/v1/gonum/stat"
)

// defaultAverageDemand is assumed when no demand has been observed yet.
const defaultAverageDemand = 4.0

// AverageDemand returns the running mean of the observed demand history, or
// the default of 4 when the history is empty.
func AverageDemand(history []float64) float64 {
	if len(history) == 0 {
		return defaultAverageDemand
	}
	return stat.Mean(history, nil)
}

// ForecastDemand projects demand over the given horizon from the observed
// history.
//
// With fewer than 4 samples the forecast is a flat repeat of the overall mean
// (default 4 if empty). Otherwise the base is the mean of the last 4 samples,
// and when at least 8 samples exist a linear trend is added: the difference
// between the recent mean and the mean of samples [-8:-4), spread over 4
// weeks. Forecast values never go below zero.
func ForecastDemand(history []float64, horizon int) []float64 {
	if horizon <= 0 {
		return nil
	}

	forecast := make([]float64, horizon)

	if len(history) < 4 {
		avg := AverageDemand(history)
		for i := range forecast {
			forecast[i] = avg
		}
		return forecast
	}

	avg := stat.Mean(history[len(history)-4:], nil)

	trend := 0.0
	if len(history) >= 8 {
		older := stat.Mean(history[len(history)-8:len(history)-4], nil)
		trend = (avg - older) / 4
	}

	for i := range forecast {
		v := avg + trend*float64(i)
		if v < 0 {
			v = 0
		}
		forecast[i] = v
	}
	return forecast
}
