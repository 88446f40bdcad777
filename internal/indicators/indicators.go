// Package indicators holds the technical indicators exposed to strategy
// scripts.
package indicators

const DefaultRSIPeriod = 14

// SMA returns the simple moving average series of prices. The result has
// len(prices)-period+1 values and is empty when the window does not fit.
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || period > len(prices) {
		return []float64{}
	}
	out := make([]float64, 0, len(prices)-period+1)
	var sum float64
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out
}

// RSI returns the relative strength index over a sliding window of period
// price changes. Each value uses the plain average gain and average loss of
// its window. A window with no losses yields 100.
func RSI(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period+1 {
		return []float64{}
	}
	gains := make([]float64, len(prices)-1)
	losses := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		diff := prices[i] - prices[i-1]
		if diff > 0 {
			gains[i-1] = diff
		} else {
			losses[i-1] = -diff
		}
	}

	out := make([]float64, 0, len(gains)-period+1)
	var gainSum, lossSum float64
	for i := range gains {
		gainSum += gains[i]
		lossSum += losses[i]
		if i >= period {
			gainSum -= gains[i-period]
			lossSum -= losses[i-period]
		}
		if i < period-1 {
			continue
		}
		avgGain := gainSum / float64(period)
		avgLoss := lossSum / float64(period)
		// Running sums can drift to tiny negatives.
		if avgLoss <= 1e-12 {
			out = append(out, 100)
			continue
		}
		rs := avgGain / avgLoss
		out = append(out, 100-100/(1+rs))
	}
	return out
}
