// Package money форматирует цены и суммы с учётом локали витрины.
package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency символ валюты витрины. Мультивалютность не поддерживается.
const Currency = "€"

// Formatter печатает суммы с двумя знаками после запятой в нужной локали.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
}

// NewFormatter создаёт форматтер; неизвестная локаль заменяется английской.
func NewFormatter(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil || locale == "" {
		tag = language.English
	}
	return &Formatter{tag: tag, printer: message.NewPrinter(tag)}
}

// Locale возвращает используемую локаль.
func (f *Formatter) Locale() string {
	return f.tag.String()
}

// Amount печатает число с двумя знаками без символа валюты.
func (f *Formatter) Amount(d decimal.Decimal) string {
	return f.printer.Sprintf("%.2f", d.Round(2).InexactFloat64())
}

// Format печатает сумму: «2.50 €».
func (f *Formatter) Format(d decimal.Decimal) string {
	return f.Amount(d) + " " + Currency
}

// PerUnit печатает цену за единицу: «2.50 €/kg».
func (f *Formatter) PerUnit(d decimal.Decimal, unit string) string {
	return f.Format(d) + "/" + unit
}

// Sprintf форматирует строку принтером локали.
func (f *Formatter) Sprintf(format string, args ...any) string {
	return f.printer.Sprintf(format, args...)
}
