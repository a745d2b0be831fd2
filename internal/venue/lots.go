package venue

import "github.com/shopspring/decimal"

// RoundToLot rounds size to the nearest multiple of lot, never below one lot.
func RoundToLot(size, lot float64) float64 {
	if lot <= 0 {
		return size
	}
	l := decimal.NewFromFloat(lot)
	n := decimal.NewFromFloat(size).Div(l).Round(0)
	if n.LessThan(decimal.NewFromInt(1)) {
		n = decimal.NewFromInt(1)
	}
	out, _ := n.Mul(l).Float64()
	return out
}

// CeilToLot rounds size up to the next multiple of lot. Close orders use it
// so the buffered size never lands under the open size.
func CeilToLot(size, lot float64) float64 {
	if lot <= 0 {
		return size
	}
	l := decimal.NewFromFloat(lot)
	n := decimal.NewFromFloat(size).Div(l).Ceil()
	if n.LessThan(decimal.NewFromInt(1)) {
		n = decimal.NewFromInt(1)
	}
	out, _ := n.Mul(l).Float64()
	return out
}

// FormatSize renders a size as a plain decimal string without exponent.
func FormatSize(size float64) string {
	return decimal.NewFromFloat(size).String()
}
