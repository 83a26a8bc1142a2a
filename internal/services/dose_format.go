package services

import (
	"strings"

	"github.com/shopspring/decimal"
)

const doseDecimalPlaces = 2

// FormatDose renders an amount with at most two decimals followed by its unit.
func FormatDose(amount decimal.NullDecimal, unit *string) string {
	parts := make([]string, 0, 2)
	if amount.Valid {
		parts = append(parts, amount.Decimal.Round(doseDecimalPlaces).String())
	}
	if unit != nil && strings.TrimSpace(*unit) != "" {
		parts = append(parts, strings.TrimSpace(*unit))
	}
	return strings.Join(parts, " ")
}
