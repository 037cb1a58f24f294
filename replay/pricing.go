package replay

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tier is the pricing of one pack size.
type Tier struct {
	Quantity  int
	Margin    decimal.Decimal
	ListPrice decimal.Decimal
	CostPrice decimal.Decimal
}

// PriceTiers prices pack sizes whose margin compounds: the first tier uses
// margin, every following tier squares the margin of the previous one.
// List prices are rounded half to even to 4 decimal places.
func PriceTiers(listUnit, costUnit decimal.Decimal, quantities []int, margin decimal.Decimal) []Tier {
	tiers := make([]Tier, 0, len(quantities))
	for _, q := range quantities {
		qty := decimal.NewFromInt(int64(q))
		tiers = append(tiers, Tier{
			Quantity:  q,
			Margin:    margin,
			ListPrice: listUnit.Mul(qty).Mul(margin).RoundBank(4),
			CostPrice: costUnit.Mul(qty),
		})
		margin = margin.Mul(margin)
	}
	return tiers
}

// Quantize rounds a percentage down to a multiple of 5 and returns it as
// a fraction.
func Quantize(percent int) float64 {
	return float64(percent/5*5) / 100
}

// QuantizedProgress draws a task progress in 5% steps.
func QuantizedProgress(r *Rand) float64 {
	return Quantize(r.Between(1, 100))
}

// EffortHours draws a task effort of 1 to 5 hours.
func EffortHours(r *Rand) time.Duration {
	return time.Duration(r.Between(1, 5)) * time.Hour
}

// UnitPrice divides a total cost over quantity, rounded to 4 decimal places.
func UnitPrice(cost decimal.Decimal, quantity int) decimal.Decimal {
	if quantity == 0 {
		return decimal.Zero
	}
	return cost.Div(decimal.NewFromInt(int64(quantity))).RoundBank(4)
}
