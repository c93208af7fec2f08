package accounting

import (
	"strings"

	"github.com/shopspring/decimal"
)

var zeroDecimalCurrencies = map[string]bool{
	"JPY": true,
	"KRW": true,
	"VND": true,
	"CLP": true,
	"ISK": true,
}

func currencyExponent(currency string) int32 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return 0
	}
	return 2
}

// ToMajor converts integer minor units into the decimal amount the API expects.
func ToMajor(minor int64, currency string) decimal.Decimal {
	return decimal.New(minor, -currencyExponent(currency))
}

// ToMinor rounds a decimal amount back into integer minor units.
func ToMinor(amount decimal.Decimal, currency string) int64 {
	return amount.Shift(currencyExponent(currency)).Round(0).IntPart()
}
