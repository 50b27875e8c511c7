package domain

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

type ProductRecord struct {
	ID       string
	Name     string
	Quantity int
	Price    decimal.Decimal
}

// Validate checks the invariants every stored record must satisfy.
func (p ProductRecord) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: product id cannot be empty", ErrInvalidField)
	}
	if strings.TrimSpace(p.ID) != p.ID {
		return fmt.Errorf("%w: product id cannot start or end with whitespace", ErrInvalidField)
	}
	if hasControl(p.ID) {
		return fmt.Errorf("%w: product id cannot contain control characters", ErrInvalidField)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: product name cannot be empty", ErrInvalidField)
	}
	if hasControl(p.Name) {
		return fmt.Errorf("%w: product name cannot contain control characters", ErrInvalidField)
	}
	if p.Quantity < 0 {
		return fmt.Errorf("%w: quantity cannot be negative", ErrInvalidField)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidField)
	}
	return nil
}

// audit and log sinks are line based
func hasControl(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}

// Value is quantity * price for a single record.
func (p ProductRecord) Value() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

// Equal compares all fields; prices compare numerically so 2.5 equals 2.50.
func (p ProductRecord) Equal(other ProductRecord) bool {
	return p.ID == other.ID &&
		p.Name == other.Name &&
		p.Quantity == other.Quantity &&
		p.Price.Equal(other.Price)
}
