package dataset

// convert.go classifies cell text for display, sorting and aggregation.
//
// Supplier exports carry the usual spreadsheet noise: currency symbols,
// thousands separators, accounting negatives "(12.50)", and a handful of date
// layouts. These helpers recognise that noise without ever rewriting the
// stored text. All To* functions return pgtype values with Valid=false for
// empty or unrecognised input.

import (
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex matches integers and decimals after cleanup. Exponents are not
// accepted; pgtype.Numeric cannot scan them from text.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// Decimal-comma forms used in Brazilian exports: "1.234,56" and "10,5".
// "1.234.567" is dot-grouped thousands with no decimals, "1,234.56" is
// comma-grouped thousands.
var (
	decimalCommaRegex   = regexp.MustCompile(`^[+-]?(\d{1,3}(\.\d{3})*|\d+),\d+$`)
	dotThousandsRegex   = regexp.MustCompile(`^[+-]?\d{1,3}(\.\d{3}){2,}$`)
	commaThousandsRegex = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d*)?$`)
)

// TwoDigitYearPivot decides the century of two-digit years: a year more than
// this many years in the future is moved back one century.
var TwoDigitYearPivot = 20

var (
	twoDigitYearLayouts = []string{
		"2/1/06", "02/01/06", "2-1-06", "2.1.06", "02.01.06",
		"1/2/06", "01/02/06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"2/1/2006", "02/01/2006", "2-1-2006", "02-01-2006", "2.1.2006", "02.01.2006",
		"1/2/2006", "01/02/2006",
		"Jan 2, 2006", "2 Jan 2006",
		"2006-01-02 15:04:05", "2006-01-02T15:04:05Z07:00",
	}
)

// ToNumeric parses s as a number, tolerating currency symbols, thousands
// separators and accounting-style negatives. A single comma followed by
// digits and no dot after it is a decimal comma ("10,5", "1.234,56"); commas
// grouping three digits before an optional dot are thousands separators
// ("1,234.56"). Any other comma makes s non-numeric.
func ToNumeric(s string) pgtype.Numeric {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Numeric{}
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.NewReplacer("R$", "", "$", "", "€", "", "£", "").Replace(s)
	s = strings.TrimSpace(s)
	switch {
	case decimalCommaRegex.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case dotThousandsRegex.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	case commaThousandsRegex.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
	}
	if negative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return pgtype.Numeric{}
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{}
	}
	return n
}

// ToDate parses s using the supported date layouts. European day-first
// layouts are tried before US month-first ones.
func ToDate(s string) pgtype.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{}
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return pgtype.Date{Time: t, Valid: true}
		}
	}

	pivot := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivot {
				t = t.AddDate(-100, 0, 0)
			}
			return pgtype.Date{Time: t, Valid: true}
		}
	}

	return pgtype.Date{}
}

// numericFloat returns s as a float64 when it parses as a number.
func numericFloat(s string) (float64, bool) {
	return numericToFloat(ToNumeric(s))
}

func numericToFloat(n pgtype.Numeric) (float64, bool) {
	if !n.Valid {
		return 0, false
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid {
		return 0, false
	}
	return f.Float64, true
}

// addNumeric returns a+b in decimal, aligning both to the smaller exponent.
// Both must be valid finite numbers.
func addNumeric(a, b pgtype.Numeric) pgtype.Numeric {
	exp := min(a.Exp, b.Exp)
	sum := new(big.Int).Add(scaleNumeric(a, exp), scaleNumeric(b, exp))
	return pgtype.Numeric{Int: sum, Exp: exp, Valid: true}
}

// scaleNumeric returns the coefficient of n rewritten for exponent exp,
// which must not exceed n.Exp.
func scaleNumeric(n pgtype.Numeric, exp int32) *big.Int {
	out := new(big.Int)
	if n.Int != nil {
		out.Set(n.Int)
	}
	if d := n.Exp - exp; d > 0 {
		out.Mul(out, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d)), nil))
	}
	return out
}

// compareValues orders cells numerically when both are numbers,
// chronologically when both are dates, and by text otherwise. Numbers sort
// before dates, dates before text. Reports ok=false when either side is empty.
func compareValues(a, b Value) (c int, ok bool) {
	if a.IsEmpty() || b.IsEmpty() {
		return 0, false
	}

	af, aNum := a.Float64()
	bf, bNum := b.Float64()
	switch {
	case aNum && bNum:
		return cmpOrdered(af, bf), true
	case aNum:
		return -1, true
	case bNum:
		return 1, true
	}

	ad, bd := ToDate(string(a)), ToDate(string(b))
	switch {
	case ad.Valid && bd.Valid:
		return ad.Time.Compare(bd.Time), true
	case ad.Valid:
		return -1, true
	case bd.Valid:
		return 1, true
	}

	return strings.Compare(strings.ToLower(string(a)), strings.ToLower(string(b))), true
}

func cmpOrdered(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
