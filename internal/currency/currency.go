package currency

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrUnknownCurrency = errors.New("unknown currency")

type Code string

const (
	UAH Code = "UAH"
	EUR Code = "EUR"
	USD Code = "USD"

	Default = UAH
)

type Option struct {
	Code   Code   `json:"code"`
	Label  string `json:"label"`
	Symbol string `json:"symbol"`
}

// Options lists the display currencies in menu order
var Options = []Option{
	{Code: UAH, Label: "Ukrainian Hryvnia", Symbol: "₴"},
	{Code: EUR, Label: "Euro", Symbol: "€"},
	{Code: USD, Label: "US Dollar", Symbol: "$"},
}

func Parse(s string) (Code, error) {
	code := Code(strings.ToUpper(strings.TrimSpace(s)))
	for _, o := range Options {
		if o.Code == code {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, s)
}

func (c Code) Valid() bool {
	_, err := Parse(string(c))
	return err == nil
}

// Symbol falls back to the hryvnia sign for unknown codes
func (c Code) Symbol() string {
	for _, o := range Options {
		if o.Code == c {
			return o.Symbol
		}
	}
	return "₴"
}

// Format renders amount with the currency symbol, two decimals and thousands separators, e.g. "₴1,234.50"
func Format(amount decimal.Decimal, c Code) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}

	fixed := amount.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	return sign + c.Symbol() + group(whole) + "." + frac
}

func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
