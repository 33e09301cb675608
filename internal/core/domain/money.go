package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// The gateway speaks integer minor units ("10050" for 100.50), the ledger
// speaks fixed-point decimals. These helpers are the only conversion point so
// repeated round trips cannot accumulate error.

// MinorUnits converts a ledger amount to integer minor units, rounding halves
// away from zero. The tie-break is our explicit choice, the gateway does not
// document one.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// ToMinorUnits renders a ledger amount as the gateway's minor-unit string,
// base-10 with no separators.
func ToMinorUnits(amount decimal.Decimal) string {
	return strconv.FormatInt(MinorUnits(amount), 10)
}

// FromMinorUnits parses a gateway minor-unit string back into a ledger amount.
// Non-numeric input fails with ErrMalformedAmount; callers must treat that as
// a verification failure, never as a zero amount.
func FromMinorUnits(s string) (decimal.Decimal, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	return decimal.New(n, -2), nil
}

// amountTolerance is the accepted absolute drift between the stored amount and
// the gateway-reported one, covering minor-unit rounding.
var amountTolerance = decimal.New(1, -2) // 0.01

// AmountsMatch reports whether a gateway-reported amount reconciles with the
// stored ledger amount.
func AmountsMatch(stored, reported decimal.Decimal) bool {
	return stored.Sub(reported).Abs().LessThanOrEqual(amountTolerance)
}
