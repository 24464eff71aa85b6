// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"strings"
)

// FormatCurrency formats a number with thousands separators and 2 decimals.
func FormatCurrency(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	// Format with 2 decimal places
	str := fmt.Sprintf("%.2f", amount)
	parts := strings.Split(str, ".")
	intPart := parts[0]
	decPart := parts[1]

	result := "$" + formatGroupedNumber(intPart) + "." + decPart
	if negative {
		result = "-" + result
	}
	return result
}

// formatGroupedNumber inserts comma separators every 3 digits from the right.
func formatGroupedNumber(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	result := s[n-3:]
	s = s[:n-3]

	for len(s) > 0 {
		if len(s) >= 3 {
			result = s[len(s)-3:] + "," + result
			s = s[:len(s)-3]
		} else {
			result = s + "," + result
			s = ""
		}
	}

	return result
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatPnL formats P&L with a leading sign.
func FormatPnL(pnl float64) string {
	formatted := FormatCurrency(pnl)
	if pnl > 0 {
		return "+" + formatted
	}
	return formatted
}

// FormatQuantity formats a quantity with commas.
func FormatQuantity(qty int64) string {
	return formatGroupedNumber(fmt.Sprintf("%d", qty))
}

// FormatThousands formats a number in thousands.
func FormatThousands(amount float64) string {
	return fmt.Sprintf("%.2fK", amount/1000)
}

// FormatMillions formats a number in millions.
func FormatMillions(amount float64) string {
	return fmt.Sprintf("%.2fM", amount/1000000)
}

// FormatCompact formats a number in compact form (K/M).
func FormatCompact(amount float64) string {
	absAmount := amount
	if absAmount < 0 {
		absAmount = -absAmount
	}

	if absAmount >= 1000000 {
		return FormatMillions(amount)
	} else if absAmount >= 10000 {
		return FormatThousands(amount)
	}
	return FormatCurrency(amount)
}

// FormatRatio formats a dimensionless ratio such as Sharpe.
func FormatRatio(value float64) string {
	return fmt.Sprintf("%.2f", value)
}
