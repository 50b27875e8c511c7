package service

import (
	"github.com/shopspring/decimal"

	"github.com/rl1809/stock-keeper/internal/core/domain"
)

// TotalValue is the exact sum of quantity * price over records.
func TotalValue(records []domain.ProductRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Value())
	}
	return total
}

// LowStockAlert returns the records with quantity below threshold, in input order.
func LowStockAlert(records []domain.ProductRecord, threshold int) []domain.ProductRecord {
	low := make([]domain.ProductRecord, 0)
	for _, r := range records {
		if r.Quantity < threshold {
			low = append(low, r)
		}
	}
	return low
}
