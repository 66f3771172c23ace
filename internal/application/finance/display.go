package finance

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// AmountFormatter renders money in the configured locale and currency,
// e.g. "R$ 1.234,56" for pt-BR/BRL.
type AmountFormatter struct {
	printer *message.Printer
	unit    currency.Unit
}

// NewAmountFormatter parses a BCP 47 locale and an ISO 4217 currency code
func NewAmountFormatter(locale, code string) (*AmountFormatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("invalid currency %q: %w", code, err)
	}
	return &AmountFormatter{printer: message.NewPrinter(tag), unit: unit}, nil
}

// DefaultAmountFormatter formats Brazilian reais
func DefaultAmountFormatter() *AmountFormatter {
	return &AmountFormatter{
		printer: message.NewPrinter(language.BrazilianPortuguese),
		unit:    currency.BRL,
	}
}

// Format renders amount with the currency symbol
func (f *AmountFormatter) Format(amount decimal.Decimal) string {
	return f.printer.Sprint(currency.Symbol(f.unit.Amount(amount.Round(2).InexactFloat64())))
}

// Remaining renders the outstanding balance label shown after an abatement
func (f *AmountFormatter) Remaining(amount decimal.Decimal) string {
	return "Restante: " + f.Format(amount)
}
