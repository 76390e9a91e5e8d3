package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"tokoku/backend/internal/domain"
)

func TestStockWorkbook(t *testing.T) {
	price := 65.0
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	entries := []domain.StockListItem{
		{
			StockEntry: domain.StockEntry{
				ProductName: "Basmati Rice", Quantity: 50, Unit: "kg",
				UnitAmount: 50, BillAmount: 2500, SellingPrice: &price, UpdatedAt: now,
			},
			Status: domain.StockStatusAdequate,
		},
		{
			StockEntry: domain.StockEntry{
				ProductName: "Wheat Flour", Quantity: 8, Unit: "kg",
				UnitAmount: 35, BillAmount: 280, UpdatedAt: now,
			},
			Status: domain.StockStatusLowStock,
		},
	}

	payload, err := StockWorkbook("Toko Utama", entries)
	if err != nil {
		t.Fatalf("StockWorkbook: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Stock")
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want header + 2 entries + total", len(rows))
	}
	if rows[1][0] != "Basmati Rice" {
		t.Fatalf("first product = %q", rows[1][0])
	}
	if rows[2][7] != domain.StockStatusLowStock {
		t.Fatalf("second status = %q", rows[2][7])
	}
	if rows[3][6] != "2780" {
		t.Fatalf("total value = %q, want 2780", rows[3][6])
	}
}
