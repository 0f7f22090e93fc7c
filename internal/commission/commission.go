// Package commission generalizes spec.md's single commission_rate into a pluggable
// fee strategy, grounded on the teacher's commission_fee package.
package commission

import "github.com/shopspring/decimal"

// Fee calculates the commission owed on a fill given its quantity and price.
type Fee interface {
	Calculate(quantity, price float64) float64
}

// ZeroFee charges nothing, useful for frictionless scenario testing (spec.md §8
// scenarios 1 and 4 use commission=0).
type ZeroFee struct{}

func NewZeroFee() Fee { return ZeroFee{} }

func (ZeroFee) Calculate(quantity, price float64) float64 { return 0 }

// PercentageFee is spec.md's default model: a fraction of notional per fill.
type PercentageFee struct {
	Rate float64
}

func NewPercentageFee(rate float64) Fee {
	return PercentageFee{Rate: rate}
}

func (f PercentageFee) Calculate(quantity, price float64) float64 {
	notional := decimal.NewFromFloat(quantity).Abs().Mul(decimal.NewFromFloat(price))
	fee, _ := notional.Mul(decimal.NewFromFloat(f.Rate)).Float64()

	return fee
}

// FlatPerShareFee charges a fixed rate per share with a per-order floor, grounded on
// the teacher's InteractiveBrokerCommissionFee, demonstrating the interface supports
// more than one pricing shape.
type FlatPerShareFee struct {
	RatePerShare float64
	Minimum      float64
}

func NewFlatPerShareFee(ratePerShare, minimum float64) Fee {
	return FlatPerShareFee{RatePerShare: ratePerShare, Minimum: minimum}
}

func (f FlatPerShareFee) Calculate(quantity, price float64) float64 {
	fee, _ := decimal.NewFromFloat(quantity).Abs().Mul(decimal.NewFromFloat(f.RatePerShare)).Float64()
	if fee < f.Minimum {
		return f.Minimum
	}

	return fee
}
