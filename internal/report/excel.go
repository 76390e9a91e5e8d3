// Package report renders stock data into downloadable xlsx workbooks.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"tokoku/backend/internal/domain"
	"tokoku/backend/internal/pricing"
)

var stockHeaders = []string{
	"Product", "Quantity", "Unit", "Unit Cost", "Bill Amount",
	"Selling Price", "Stock Value", "Status", "Updated At",
}

// StockWorkbook builds an xlsx with one row per stock entry plus a totals
// row.
func StockWorkbook(storeName string, entries []domain.StockListItem) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Stock"
	f.SetSheetName("Sheet1", sheet)

	for col, header := range stockHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}

	totalValue := 0.0
	for i, entry := range entries {
		row := i + 2
		value := pricing.Mul2(entry.Quantity, entry.UnitAmount)
		totalValue += value

		values := []any{
			entry.ProductName,
			entry.Quantity,
			entry.Unit,
			entry.UnitAmount,
			entry.BillAmount,
			nil,
			value,
			entry.Status,
			entry.UpdatedAt.Format("2006-01-02 15:04:05"),
		}
		if entry.SellingPrice != nil {
			values[5] = *entry.SellingPrice
		}
		for col, v := range values {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	totalRow := len(entries) + 2
	if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("TOTAL (%s)", storeName)); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheet, fmt.Sprintf("G%d", totalRow), pricing.Round(totalValue, 2)); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
