package domain

import (
	"fmt"
	"strings"
)

// Money is an amount in minor currency units (pence for gbp).
type Money int64

func Pounds(major int64) Money {
	return Money(major * 100)
}

func (m Money) MinorUnits() int64 {
	return int64(m)
}

// Format renders the amount with the symbol for currency, e.g. "£40.00".
// Unknown currencies fall back to an upper-cased ISO code suffix.
func (m Money) Format(currency string) string {
	sign, amount := m.split()
	switch strings.ToLower(currency) {
	case "gbp":
		return sign + "£" + amount
	case "eur":
		return sign + "€" + amount
	case "usd":
		return sign + "$" + amount
	default:
		return sign + amount + " " + strings.ToUpper(currency)
	}
}

func (m Money) String() string {
	sign, amount := m.split()
	return sign + amount
}

func (m Money) split() (string, string) {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign, fmt.Sprintf("%d.%02d", v/100, v%100)
}
