// Package indicators provides the rolling-window primitives strategies are built from.
// All functions return slices aligned to the input length, with NaN filling the
// warmup region where the window is not yet complete. Callers treat NaN as
// "not enough history".
package indicators

import "math"

// SMA is the simple moving average over the last p points.
func SMA(x []float64, p int) []float64 {
	out := nanSlice(len(x))
	if p <= 0 {
		return out
	}
	var sum float64
	for i := range x {
		sum += x[i]
		if i >= p {
			sum -= x[i-p]
		}
		if i >= p-1 {
			out[i] = sum / float64(p)
		}
	}
	return out
}

// EMA is the exponential moving average with span smoothing alpha = 2/(p+1),
// seeded with the first value so every bar from index 0 has a defined value.
func EMA(x []float64, p int) []float64 {
	out := nanSlice(len(x))
	if p <= 0 || len(x) == 0 {
		return out
	}
	k := 2.0 / float64(p+1)
	out[0] = x[0]
	for i := 1; i < len(x); i++ {
		out[i] = x[i]*k + out[i-1]*(1-k)
	}
	return out
}

// Std is the rolling sample standard deviation (divisor n-1) over window p.
func Std(x []float64, p int) []float64 {
	out := nanSlice(len(x))
	if p <= 1 {
		return out
	}
	var sum, sum2 float64
	for i := range x {
		sum += x[i]
		sum2 += x[i] * x[i]
		if i >= p {
			sum -= x[i-p]
			sum2 -= x[i-p] * x[i-p]
		}
		if i >= p-1 {
			n := float64(p)
			v := (sum2 - sum*sum/n) / (n - 1)
			if v < 0 {
				v = 0
			}
			out[i] = math.Sqrt(v)
		}
	}
	return out
}

// Max is the rolling maximum over window p.
func Max(x []float64, p int) []float64 {
	out := nanSlice(len(x))
	if p <= 0 {
		return out
	}
	for i := p - 1; i < len(x); i++ {
		m := x[i-p+1]
		for j := i - p + 2; j <= i; j++ {
			if x[j] > m {
				m = x[j]
			}
		}
		out[i] = m
	}
	return out
}

// Min is the rolling minimum over window p.
func Min(x []float64, p int) []float64 {
	out := nanSlice(len(x))
	if p <= 0 {
		return out
	}
	for i := p - 1; i < len(x); i++ {
		m := x[i-p+1]
		for j := i - p + 2; j <= i; j++ {
			if x[j] < m {
				m = x[j]
			}
		}
		out[i] = m
	}
	return out
}

// RSI computes the relative strength index using rolling mean gain/loss over
// period p. 50 is neutral, above ~70 overbought, below ~30 oversold.
func RSI(x []float64, p int) []float64 {
	out := nanSlice(len(x))
	if p <= 0 || len(x) < 2 {
		return out
	}
	gains := make([]float64, len(x))
	losses := make([]float64, len(x))
	for i := 1; i < len(x); i++ {
		d := x[i] - x[i-1]
		if d > 0 {
			gains[i] = d
		} else {
			losses[i] = -d
		}
	}
	avgGain := SMA(gains[1:], p)
	avgLoss := SMA(losses[1:], p)
	for i := range avgGain {
		if math.IsNaN(avgGain[i]) || math.IsNaN(avgLoss[i]) {
			continue
		}
		if avgLoss[i] == 0 {
			out[i+1] = 100
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i+1] = 100 - 100/(1+rs)
	}
	return out
}

// Momentum is the fractional price change over the last p bars.
func Momentum(x []float64, p int) []float64 {
	out := nanSlice(len(x))
	if p <= 0 {
		return out
	}
	for i := p; i < len(x); i++ {
		if x[i-p] != 0 {
			out[i] = (x[i] - x[i-p]) / x[i-p]
		}
	}
	return out
}

// ATR is the rolling mean of the true range over period p.
func ATR(high, low, close []float64, p int) []float64 {
	n := len(close)
	out := nanSlice(n)
	if p <= 0 || n == 0 || len(high) != n || len(low) != n {
		return out
	}
	tr := make([]float64, n)
	tr[0] = high[0] - low[0]
	for i := 1; i < n; i++ {
		hl := high[i] - low[i]
		hc := math.Abs(high[i] - close[i-1])
		lc := math.Abs(low[i] - close[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	return SMA(tr, p)
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
