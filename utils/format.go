// utils/format.go
package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CurrencySymbol   = "₹"
	DisplayDayLayout = "2 Jan 2006"
)

// RoundMoney rounds to paise.
func RoundMoney(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// FormatCurrency renders an amount as "₹1999.00".
func FormatCurrency(v float64) string {
	return CurrencySymbol + decimal.NewFromFloat(v).StringFixed(2)
}

// ApplyDiscount returns amount less percent, rounded to paise. Percentages
// outside 0..100 are clamped.
func ApplyDiscount(amount, percent float64) float64 {
	if percent <= 0 {
		return RoundMoney(amount)
	}
	if percent > 100 {
		percent = 100
	}
	a := decimal.NewFromFloat(amount)
	off := a.Mul(decimal.NewFromFloat(percent)).Div(decimal.NewFromInt(100))
	f, _ := a.Sub(off).Round(2).Float64()
	return f
}

// FormatDay renders a calendar day as "2 Jan 2006".
func FormatDay(t time.Time) string {
	return t.Format(DisplayDayLayout)
}

// Weekday returns the full English weekday name.
func Weekday(t time.Time) string {
	return t.Weekday().String()
}
