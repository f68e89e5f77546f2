// Package money handles amount parsing and display for the investment flows.
// The platform deals in whole US dollars: minimums are integer dollars and
// every figure is shown without cents.
package money

import (
	"errors"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// usd renders whole-dollar figures, e.g. 10000 -> "$10,000".
var usd = gomoney.NewFormatter(0, ".", ",", "$", "$1")

// FormatUSD renders an amount as whole US dollars with thousands separators.
func FormatUSD(amount float64) string {
	return usd.Format(decimal.NewFromFloat(amount).Round(0).IntPart())
}

// FormatUSDInt renders a whole-dollar amount, typically a fund minimum.
func FormatUSDInt(amount int64) string {
	return usd.Format(amount)
}

// ErrNotANumber reports input that does not parse as a number at all.
var ErrNotANumber = errors.New("amount is not a number")

// ParseAmount converts raw user input into an exact decimal amount.
// A leading dollar sign and thousands separators are tolerated so pasted
// figures like "$10,000" round-trip through the form.
func ParseAmount(input string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(input)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return decimal.Decimal{}, ErrNotANumber
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, ErrNotANumber
	}
	return d, nil
}
