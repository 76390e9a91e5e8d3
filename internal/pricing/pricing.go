// Package pricing holds the ledger arithmetic. All intermediate math runs on
// shopspring decimals so repeated merges cannot drift the way float math does;
// callers pass and receive float64 at the boundary.
package pricing

import "github.com/shopspring/decimal"

// BillTolerance is the maximum accepted difference between quantity*unitAmount
// and the stated bill amount.
const BillTolerance = 0.01

// Round rounds half away from zero to the given number of decimal places.
func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// BillConsistent reports whether billAmount matches quantity*unitAmount
// within BillTolerance.
func BillConsistent(quantity, unitAmount, billAmount float64) bool {
	expected := decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(unitAmount))
	diff := expected.Sub(decimal.NewFromFloat(billAmount)).Abs()
	return diff.LessThanOrEqual(decimal.NewFromFloat(BillTolerance))
}

// Merge is the result of folding a new purchase into an existing entry.
type Merge struct {
	Quantity   float64
	BillAmount float64
	UnitAmount float64
}

// WeightedMerge combines an existing position with a new receipt. The merged
// unit cost is the bill-weighted average rounded to 4 places; the merged bill
// is rounded to 2.
func WeightedMerge(oldQty, oldBill, addQty, addBill float64) Merge {
	qty := decimal.NewFromFloat(oldQty).Add(decimal.NewFromFloat(addQty))
	bill := decimal.NewFromFloat(oldBill).Add(decimal.NewFromFloat(addBill)).Round(2)

	var unit decimal.Decimal
	if !qty.IsZero() {
		unit = bill.Div(qty).Round(4)
	}

	q, _ := qty.Float64()
	b, _ := bill.Float64()
	u, _ := unit.Float64()
	return Merge{Quantity: q, BillAmount: b, UnitAmount: u}
}

// Economics are the per-line sale figures derived from quantity, unit cost
// and selling price.
type Economics struct {
	TotalAmount  float64
	TotalCost    float64
	Profit       float64
	ProfitMargin float64
}

// LineEconomics computes sale figures for one line. Totals are rounded to 2
// places; margin is profit as a percentage of cost, zero when cost is zero.
func LineEconomics(quantity, unitCost, sellingPrice float64) Economics {
	qty := decimal.NewFromFloat(quantity)
	amount := qty.Mul(decimal.NewFromFloat(sellingPrice)).Round(2)
	cost := qty.Mul(decimal.NewFromFloat(unitCost)).Round(2)
	profit := amount.Sub(cost).Round(2)

	var margin decimal.Decimal
	if !cost.IsZero() {
		margin = profit.Div(cost).Mul(decimal.NewFromInt(100)).Round(2)
	}

	a, _ := amount.Float64()
	c, _ := cost.Float64()
	p, _ := profit.Float64()
	m, _ := margin.Float64()
	return Economics{TotalAmount: a, TotalCost: c, Profit: p, ProfitMargin: m}
}

// UnitProfit is the per-unit spread between selling price and cost, rounded
// to 4 places.
func UnitProfit(unitCost, sellingPrice float64) float64 {
	f, _ := decimal.NewFromFloat(sellingPrice).Sub(decimal.NewFromFloat(unitCost)).Round(4).Float64()
	return f
}

// UnitMargin is the per-unit profit as a percentage of the unit cost,
// rounded to 2 places. Zero when the cost is zero.
func UnitMargin(unitCost, sellingPrice float64) float64 {
	cost := decimal.NewFromFloat(unitCost)
	if cost.IsZero() {
		return 0
	}
	profit := decimal.NewFromFloat(sellingPrice).Sub(cost)
	f, _ := profit.Div(cost).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return f
}

// MarginPct is the transaction-level margin: profit over cost as a
// percentage, rounded to 2 places.
func MarginPct(profit, cost float64) float64 {
	c := decimal.NewFromFloat(cost)
	if c.IsZero() {
		return 0
	}
	f, _ := decimal.NewFromFloat(profit).Div(c).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return f
}

// Mul2 multiplies two values and rounds the product to 2 places. Used for
// total stock value and potential revenue figures.
func Mul2(a, b float64) float64 {
	f, _ := decimal.NewFromFloat(a).Mul(decimal.NewFromFloat(b)).Round(2).Float64()
	return f
}
