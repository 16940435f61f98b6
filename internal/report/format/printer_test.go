package format

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPrinterGrouping(t *testing.T) {
	p := NewPrinter("en")

	require.Equal(t, "1,234,567.89", p.Format(decimal.RequireFromString("1234567.89"), ""))
	require.Equal(t, "-42.50", p.Format(decimal.RequireFromString("-42.5"), ""))
	require.Equal(t, "0.00", p.Format(decimal.Zero, ""))
}

func TestPrinterCurrencySuffix(t *testing.T) {
	p := NewPrinter("en")
	require.Equal(t, "18.00 EUR", p.Format(decimal.RequireFromString("18"), "EUR"))
}

func TestPrinterLocale(t *testing.T) {
	p := NewPrinter("de")
	require.Equal(t, "1.234,50", p.Format(decimal.RequireFromString("1234.5"), ""))
}

func TestPrinterBadLocaleFallsBack(t *testing.T) {
	p := NewPrinter("not-a-locale")
	require.Equal(t, "10.00", p.Format(decimal.NewFromInt(10), ""))
}
