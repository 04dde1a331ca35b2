package paypal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnsupportedCurrency = errors.New("currency not supported by paypal")
	ErrAmountTooLong       = errors.New("formatted amount exceeds 32 characters")
)

// maxAmountLength is the hard limit PayPal places on the rendered amount
// string, independent of currency.
const maxAmountLength = 32

// currencyInfo holds per-currency formatting rules. places is the number
// of decimal places PayPal expects in the rendered value.
type currencyInfo struct {
	places int
}

// supportedCurrencies is the fixed table of currencies PayPal accepts.
// HUF, JPY and TWD are zero-decimal: PayPal rejects fractional amounts
// for them.
var supportedCurrencies = map[string]currencyInfo{
	"AUD": {places: 2},
	"BRL": {places: 2},
	"CAD": {places: 2},
	"CHF": {places: 2},
	"CNY": {places: 2},
	"CZK": {places: 2},
	"DKK": {places: 2},
	"EUR": {places: 2},
	"GBP": {places: 2},
	"HKD": {places: 2},
	"HUF": {places: 0},
	"ILS": {places: 2},
	"JPY": {places: 0},
	"MXN": {places: 2},
	"MYR": {places: 2},
	"NOK": {places: 2},
	"NZD": {places: 2},
	"PHP": {places: 2},
	"PLN": {places: 2},
	"SEK": {places: 2},
	"SGD": {places: 2},
	"THB": {places: 2},
	"TWD": {places: 0},
	"USD": {places: 2},
}

// FormatAmount renders a numeric amount as the Money representation the
// Orders API expects, applying per-currency decimal precision. The input
// currency code is case-insensitive. Pure and deterministic.
func FormatAmount(amount float64, currencyCode string) (Money, error) {
	code := strings.ToUpper(currencyCode)
	info, ok := supportedCurrencies[code]
	if !ok {
		return Money{}, fmt.Errorf("%q: %w", currencyCode, ErrUnsupportedCurrency)
	}

	value := strconv.FormatFloat(amount, 'f', info.places, 64)
	if len(value) > maxAmountLength {
		return Money{}, fmt.Errorf("%q: %w", value, ErrAmountTooLong)
	}

	return Money{CurrencyCode: code, Value: value}, nil
}
