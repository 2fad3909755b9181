package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"PolicyScan/internal/calculator"
	"PolicyScan/internal/model"
	"PolicyScan/internal/recorder"
)

var ratingIcon = map[model.Rating]string{
	model.RatingGood:    "🟢",
	model.RatingAverage: "🟡",
	model.RatingBad:     "🔴",
}

// usd renders an amount as a dollar figure, e.g. "$12,500.00".
func usd(d decimal.Decimal) string {
	f, _ := d.Float64()
	return money.NewFromFloat(f, money.USD).Display()
}

// FormatScanReport formats a portfolio analysis into a Telegram message.
func FormatScanReport(a *model.PortfolioAnalysis, policies []model.PolicyRecord, source string) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("🛡 <b>PolicyScan report</b> | %s\n", a.EvaluatedAt.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Source: %s, %d policies\n\n", html.EscapeString(source), len(policies)))

	b.WriteString(fmt.Sprintf("%s <b>Rating:</b> %s (score %d/100)\n",
		ratingIcon[a.OverallRating], a.OverallRating, a.Score))
	if len(policies) > 0 {
		b.WriteString(fmt.Sprintf("Annual premium: %s\n", usd(calculator.TotalPremium(policies))))
	}

	writeSection(&b, "⚠️ <b>Coverage gaps:</b>", a.CoverageGaps)
	writeSection(&b, "💡 <b>Suggestions:</b>", a.Suggestions)
	writeSection(&b, "✅ <b>Strengths:</b>", a.Strengths)

	if len(a.Rules) > 0 {
		b.WriteString("\n📈 <b>Rule breakdown:</b>\n")
		for _, r := range a.Rules {
			b.WriteString(fmt.Sprintf("  %s: %+d\n", r.Rule, r.ScoreDelta))
		}
	}
	return b.String()
}

func writeSection(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n" + title + "\n")
	for _, item := range items {
		b.WriteString("• " + html.EscapeString(item) + "\n")
	}
}

// FormatExpiryAlert lists expired and soon-expiring policies. It returns "" when there is nothing to report.
func FormatExpiryAlert(policies []model.PolicyRecord, now time.Time, windowDays int) string {
	var expired, expiring []model.PolicyRecord
	for _, p := range policies {
		switch calculator.ExpiryStatus(p.ExpiryDate, now, windowDays) {
		case calculator.StatusExpired:
			expired = append(expired, p)
		case calculator.StatusExpiring:
			expiring = append(expiring, p)
		}
	}
	if len(expired) == 0 && len(expiring) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("⏰ <b>Policy expiry alert</b> | %s\n", now.Format("2006-01-02")))

	if len(expired) > 0 {
		b.WriteString("\n🔴 <b>Expired:</b>\n")
		for _, p := range expired {
			b.WriteString(fmt.Sprintf("• %s (%s) expired %s\n",
				policyName(p), p.Category().Label(), p.ExpiryDate.Format(model.DateLayout)))
		}
	}
	if len(expiring) > 0 {
		b.WriteString(fmt.Sprintf("\n🟡 <b>Expiring within %d days:</b>\n", windowDays))
		for _, p := range expiring {
			days := calculator.DaysRemaining(*p.ExpiryDate, now)
			b.WriteString(fmt.Sprintf("• %s (%s) expires %s, %d days left\n",
				policyName(p), p.Category().Label(), p.ExpiryDate.Format(model.DateLayout), days))
		}
	}
	return b.String()
}

func policyName(p model.PolicyRecord) string {
	if p.Name != "" {
		return html.EscapeString(p.Name)
	}
	return html.EscapeString(p.ID)
}

// FormatHistory formats recent scan summaries, newest first.
func FormatHistory(scans []recorder.ScanSummary) string {
	if len(scans) == 0 {
		return "No scans recorded yet."
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Recent scans</b>\n\n")
	for _, s := range scans {
		premium, err := decimal.NewFromString(s.TotalPremium)
		amount := s.TotalPremium
		if err == nil {
			amount = usd(premium)
		}
		b.WriteString(fmt.Sprintf("%s %s  %s %d (%d gaps, %d policies, %s)\n",
			ratingIcon[s.Rating], s.Timestamp.Format("2006-01-02 15:04"),
			s.Rating, s.Score, s.GapCount, s.PolicyCount, amount))
	}
	return b.String()
}
