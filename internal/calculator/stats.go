package calculator

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

func mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}

	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(values))))
}

// sampleVariance uses the n-1 denominator. Series shorter than 2 yield zero.
func sampleVariance(values []decimal.Decimal) decimal.Decimal {
	if len(values) < 2 {
		return decimal.Zero
	}

	avg := mean(values)
	sum := decimal.Zero
	for _, v := range values {
		diff := v.Sub(avg)
		sum = sum.Add(diff.Mul(diff))
	}
	return sum.Div(decimal.NewFromInt(int64(len(values) - 1)))
}

func sampleStdDev(values []decimal.Decimal) decimal.Decimal {
	varianceFloat, _ := sampleVariance(values).Float64()
	return decimal.NewFromFloat(math.Sqrt(varianceFloat))
}

// sampleCovariance assumes both series have the same length.
func sampleCovariance(a, b []decimal.Decimal) decimal.Decimal {
	if len(a) < 2 || len(a) != len(b) {
		return decimal.Zero
	}

	meanA := mean(a)
	meanB := mean(b)
	sum := decimal.Zero
	for i := range a {
		sum = sum.Add(a[i].Sub(meanA).Mul(b[i].Sub(meanB)))
	}
	return sum.Div(decimal.NewFromInt(int64(len(a) - 1)))
}

// percentile returns the value at the given tail probability of the sorted
// historical distribution, e.g. p=0.05 gives the 5th percentile.
func percentile(values []decimal.Decimal, p float64) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}

	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	idx := int(math.Floor(p * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

func sqrtDecimal(d decimal.Decimal) decimal.Decimal {
	f, _ := d.Float64()
	if f <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(math.Sqrt(f))
}
