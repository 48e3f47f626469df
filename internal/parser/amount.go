package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	amountPattern      = regexp.MustCompile(`^-?\(?\$?-?[\d,]+(\.\d+)?\)?$`)
	amountTokenPattern = regexp.MustCompile(`^-?\(?\$?-?\d[\d,]*\.\d{2}\)?$`)
)

// parseAmountToken parses a numeric token lifted out of a free-text
// statement line. Unlike the CSV amount column, position alone does not
// make a token an amount: it must carry cents, or check numbers and
// reference codes ("CHECK 1234") would import as money.
func parseAmountToken(s string) (decimal.Decimal, bool) {
	if !amountTokenPattern.MatchString(strings.TrimSpace(s)) {
		return decimal.Zero, false
	}
	return parseAmount(s)
}

// parseAmount parses a monetary token into a fixed-point decimal.
// Currency symbols and thousands separators are stripped; a value in
// parentheses is negative, per the usual accounting convention.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" || !amountPattern.MatchString(s) {
		return decimal.Zero, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}
