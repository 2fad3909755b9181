package calculator

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"PolicyScan/internal/model"
)

var printer = message.NewPrinter(language.English)

// TotalPremium sums the annual premium of all policies.
func TotalPremium(policies []model.PolicyRecord) decimal.Decimal {
	total := decimal.Zero
	for _, p := range policies {
		total = total.Add(p.Premium)
	}
	return total
}

// PremiumByCategory sums premiums per category.
func PremiumByCategory(policies []model.PolicyRecord) map[model.Category]decimal.Decimal {
	out := make(map[model.Category]decimal.Decimal)
	for _, p := range policies {
		c := p.Category()
		out[c] = out[c].Add(p.Premium)
	}
	return out
}

// FormatAmount renders an amount with en-US digit grouping and at most three
// fraction digits, dropping trailing zeros: 12500 -> "12,500", 1234.5 -> "1,234.5".
func FormatAmount(d decimal.Decimal) string {
	d = d.Round(3)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	whole := d.Truncate(0)
	out := sign + groupWhole(whole)

	frac := d.Sub(whole)
	if !frac.IsZero() {
		// frac.String() is "0.xyz" without trailing zeros
		out += strings.TrimPrefix(frac.String(), "0")
	}
	return out
}

// groupWhole groups a non-negative integral decimal in thousands.
// Values past int64 are grouped on their digit string.
func groupWhole(whole decimal.Decimal) string {
	if bi := whole.BigInt(); bi.IsInt64() {
		return printer.Sprintf("%d", bi.Int64())
	}
	digits := whole.String()
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
