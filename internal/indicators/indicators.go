package indicators

import "math"

// SMA computes the simple moving average of the last period prices.
// The second return is false when there is not enough data, with the
// value holding the 0 sentinel.
func SMA(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period {
		return 0, false
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), true
}

// PriceChange computes the percentage change between the last price and
// the price daysBack bars earlier. Returns (0, false) when the series is
// too short or the reference price is zero, which would otherwise divide
// to infinity.
func PriceChange(prices []float64, daysBack int) (float64, bool) {
	if daysBack <= 0 || len(prices) <= daysBack {
		return 0, false
	}
	last := prices[len(prices)-1]
	ref := prices[len(prices)-1-daysBack]
	if ref == 0 {
		return 0, false
	}
	return (last - ref) / ref * 100, true
}

// Volatility computes the sample standard deviation of the trailing
// period day-over-day simple returns, expressed as a percentage. Not
// annualized. Needs period+1 prices and at least 2 return samples.
func Volatility(prices []float64, period int) (float64, bool) {
	if period < 2 || len(prices) < period+1 {
		return 0, false
	}
	returns := make([]float64, 0, period)
	for i := len(prices) - period; i < len(prices); i++ {
		prev := prices[i-1]
		if prev == 0 {
			return 0, false
		}
		returns = append(returns, (prices[i]-prev)/prev)
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)
	return math.Sqrt(variance) * 100, true
}

// MeanReturn computes the arithmetic mean of the day-over-day simple
// returns across the whole series. Returns (0, false) with fewer than
// two prices or a zero price inside the series.
func MeanReturn(prices []float64) (float64, bool) {
	if len(prices) < 2 {
		return 0, false
	}
	sum := 0.0
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1]
		if prev == 0 {
			return 0, false
		}
		sum += (prices[i] - prev) / prev
	}
	return sum / float64(len(prices)-1), true
}

// AverageVolume computes the arithmetic mean of the last period volumes.
func AverageVolume(volumes []float64, period int) (float64, bool) {
	if period <= 0 || len(volumes) < period {
		return 0, false
	}
	sum := 0.0
	for i := len(volumes) - period; i < len(volumes); i++ {
		sum += volumes[i]
	}
	return sum / float64(period), true
}

// RSI computes the relative strength index from simple average gain and
// average loss over the trailing period price deltas. Needs period+1
// prices; returns the neutral 50 sentinel otherwise. A window with no
// losses reads 100.
func RSI(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period+1 {
		return 50, false
	}
	var avgGain, avgLoss float64
	for i := len(prices) - period; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change // make positive
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// SupportResistance returns the min and max of the trailing 20 closes.
// With fewer than 20 bars both levels fall back to the latest close,
// which is still a usable level. An empty series returns (0, 0, false).
func SupportResistance(prices []float64) (support, resistance float64, ok bool) {
	if len(prices) == 0 {
		return 0, 0, false
	}
	if len(prices) < 20 {
		last := prices[len(prices)-1]
		return last, last, true
	}
	support = math.Inf(1)
	resistance = math.Inf(-1)
	for i := len(prices) - 20; i < len(prices); i++ {
		if prices[i] < support {
			support = prices[i]
		}
		if prices[i] > resistance {
			resistance = prices[i]
		}
	}
	return support, resistance, true
}
