// Package format renders report amounts with locale-correct grouping and
// decimals using x/text. Arithmetic stays decimal throughout the engine; the
// float conversion here is display only.
package format

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Printer formats amounts for a single locale. Safe for concurrent use.
type Printer struct {
	printer  *message.Printer
	decimals int32
}

// NewPrinter builds a printer for the given BCP 47 locale tag, falling back
// to English when the tag cannot be parsed.
func NewPrinter(locale string) *Printer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Printer{printer: message.NewPrinter(tag), decimals: 2}
}

// Format renders a value with thousand separators and two decimals, suffixed
// with the currency name when one is given.
func (p *Printer) Format(value decimal.Decimal, currency string) string {
	f, _ := value.Round(p.decimals).Float64()
	s := p.printer.Sprintf("%v", number.Decimal(f,
		number.MinFractionDigits(int(p.decimals)),
		number.MaxFractionDigits(int(p.decimals)),
	))
	if currency != "" {
		s += " " + currency
	}
	return s
}
