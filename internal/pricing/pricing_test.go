package pricing

import "testing"

func TestWeightedMerge(t *testing.T) {
	cases := []struct {
		name                       string
		oldQty, oldBill            float64
		addQty, addBill            float64
		wantQty, wantBill, wantUnit float64
	}{
		{"even merge", 50, 2500, 30, 1800, 80, 4300, 53.75},
		{"repeating decimal rounds to 4dp", 3, 10, 3, 10, 6, 20, 3.3333},
		{"bill rounds to 2dp", 1, 10.004, 1, 10.004, 2, 20.01, 10.005},
		{"first receipt from zero", 0, 0, 12, 54, 12, 54, 4.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := WeightedMerge(tc.oldQty, tc.oldBill, tc.addQty, tc.addBill)
			if got.Quantity != tc.wantQty {
				t.Fatalf("quantity = %v, want %v", got.Quantity, tc.wantQty)
			}
			if got.BillAmount != tc.wantBill {
				t.Fatalf("bill = %v, want %v", got.BillAmount, tc.wantBill)
			}
			if got.UnitAmount != tc.wantUnit {
				t.Fatalf("unit = %v, want %v", got.UnitAmount, tc.wantUnit)
			}
		})
	}
}

func TestWeightedMergeNoFloatDrift(t *testing.T) {
	// 0.1 increments are not representable in binary floats; the decimal
	// path must keep the bill exact across many merges.
	m := Merge{}
	for i := 0; i < 1000; i++ {
		m = WeightedMerge(m.Quantity, m.BillAmount, 1, 0.1)
	}
	if m.BillAmount != 100 {
		t.Fatalf("bill after 1000 merges = %v, want 100", m.BillAmount)
	}
	if m.UnitAmount != 0.1 {
		t.Fatalf("unit after 1000 merges = %v, want 0.1", m.UnitAmount)
	}
}

func TestBillConsistent(t *testing.T) {
	cases := []struct {
		name      string
		qty, unit float64
		bill      float64
		want      bool
	}{
		{"exact", 50, 50.0, 2500, true},
		{"within tolerance", 50, 50.0, 2500.01, true},
		{"just outside tolerance", 50, 50.0, 2500.02, false},
		{"way off", 10, 5, 100, false},
		{"float product", 3, 0.1, 0.3, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BillConsistent(tc.qty, tc.unit, tc.bill); got != tc.want {
				t.Fatalf("BillConsistent(%v, %v, %v) = %v, want %v", tc.qty, tc.unit, tc.bill, got, tc.want)
			}
		})
	}
}

func TestLineEconomics(t *testing.T) {
	got := LineEconomics(1, 50, 65)
	if got.TotalAmount != 65 || got.TotalCost != 50 {
		t.Fatalf("totals = %v/%v, want 65/50", got.TotalAmount, got.TotalCost)
	}
	if got.Profit != 15 {
		t.Fatalf("profit = %v, want 15", got.Profit)
	}
	if got.ProfitMargin != 30 {
		t.Fatalf("margin = %v, want 30", got.ProfitMargin)
	}
}

func TestLineEconomicsZeroRevenue(t *testing.T) {
	got := LineEconomics(5, 2, 0)
	if got.Profit != -10 {
		t.Fatalf("profit = %v, want -10", got.Profit)
	}
	if got.ProfitMargin != -100 {
		t.Fatalf("margin = %v, want -100 (loss of the full cost)", got.ProfitMargin)
	}
}

func TestLineEconomicsZeroCost(t *testing.T) {
	got := LineEconomics(4, 0, 5)
	if got.Profit != 20 {
		t.Fatalf("profit = %v, want 20", got.Profit)
	}
	if got.ProfitMargin != 0 {
		t.Fatalf("margin = %v, want 0 when the cost basis is zero", got.ProfitMargin)
	}
}

func TestLineEconomicsRounding(t *testing.T) {
	got := LineEconomics(3, 3.3333, 5.5555)
	if got.TotalAmount != 16.67 {
		t.Fatalf("amount = %v, want 16.67", got.TotalAmount)
	}
	if got.TotalCost != 10 {
		t.Fatalf("cost = %v, want 10", got.TotalCost)
	}
	if got.Profit != 6.67 {
		t.Fatalf("profit = %v, want 6.67", got.Profit)
	}
	if got.ProfitMargin != 66.7 {
		t.Fatalf("margin = %v, want 66.7", got.ProfitMargin)
	}
}

func TestUnitProfitAndMargin(t *testing.T) {
	if got := UnitProfit(50, 65); got != 15 {
		t.Fatalf("UnitProfit = %v, want 15", got)
	}
	if got := UnitProfit(53.75, 60); got != 6.25 {
		t.Fatalf("UnitProfit = %v, want 6.25", got)
	}
	if got := UnitMargin(50, 65); got != 30 {
		t.Fatalf("UnitMargin = %v, want 30 (profit over cost)", got)
	}
	if got := UnitMargin(0, 10); got != 0 {
		t.Fatalf("UnitMargin with zero cost = %v, want 0", got)
	}
}

func TestRoundHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		v      float64
		places int32
		want   float64
	}{
		{2.345, 2, 2.35},
		{-2.345, 2, -2.35},
		{53.74999, 4, 53.75},
		{0.00005, 4, 0.0001},
	}
	for _, tc := range cases {
		if got := Round(tc.v, tc.places); got != tc.want {
			t.Fatalf("Round(%v, %d) = %v, want %v", tc.v, tc.places, got, tc.want)
		}
	}
}
