package analysis

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"PolicyScan/internal/calculator"
	"PolicyScan/internal/model"
)

// Rule is one independent check over a portfolio. Rules never mutate the portfolio.
type Rule struct {
	Name     string
	Evaluate func(p *Portfolio) model.RuleResult
}

// Portfolio is the read-only view every rule evaluates against.
type Portfolio struct {
	Policies []model.PolicyRecord
	Now      time.Time

	present map[model.Category]bool
	types   map[string]struct{}
}

// NewPortfolio indexes policies once so rules do not rescan for category membership.
func NewPortfolio(policies []model.PolicyRecord, now time.Time) *Portfolio {
	p := &Portfolio{
		Policies: policies,
		Now:      now,
		present:  make(map[model.Category]bool),
		types:    make(map[string]struct{}),
	}
	for _, rec := range policies {
		p.present[rec.Category()] = true
		p.types[model.NormalizeType(rec.Type)] = struct{}{}
	}
	return p
}

// Has reports whether at least one policy belongs to c.
func (p *Portfolio) Has(c model.Category) bool { return p.present[c] }

// First returns the first policy of category c in input order.
func (p *Portfolio) First(c model.Category) (model.PolicyRecord, bool) {
	for _, rec := range p.Policies {
		if rec.Category() == c {
			return rec, true
		}
	}
	return model.PolicyRecord{}, false
}

// DistinctTypes counts distinct normalized type labels, not limited to tracked categories.
func (p *Portfolio) DistinctTypes() int { return len(p.types) }

// DefaultRules builds the ordered rule set for the given thresholds.
func DefaultRules(t Thresholds) []Rule {
	return []Rule{
		coverageRule(coverageSpec{
			name:      "health-coverage",
			category:  model.CategoryHealth,
			missing:   "Health Insurance policy is missing from your portfolio. Consider adding comprehensive health coverage.",
			low:       "Health insurance coverage is low. Consider increasing coverage to at least $%s.",
			strength:  "Good health insurance coverage",
			threshold: decimal.NewFromFloat(t.HealthMinCoverage),
			weight:    t.CoverageWeight,
		}),
		coverageRule(coverageSpec{
			name:      "life-coverage",
			category:  model.CategoryLife,
			missing:   "Life Insurance policy is missing from your portfolio. Life insurance is essential for financial security.",
			low:       "Life insurance coverage might be insufficient. Consider coverage of at least $%s.",
			strength:  "Adequate life insurance coverage",
			threshold: decimal.NewFromFloat(t.LifeMinCoverage),
			weight:    t.CoverageWeight,
		}),
		presenceRule("auto-presence", model.CategoryAuto,
			"Consider adding Auto Insurance if you own a vehicle.",
			"Auto insurance coverage in place", t.PresenceWeight),
		presenceRule("home-presence", model.CategoryHome,
			"Consider adding Home/Property Insurance if you own property.",
			"Property insurance coverage in place", t.PresenceWeight),
		expiredRule(t.ExpiredPenalty),
		upcomingRule(t.UpcomingWindowDays),
		diversityRule(t.DiversityMinCategories, t.DiversityBonus),
		premiumRule(t.PremiumBonus),
	}
}

type coverageSpec struct {
	name      string
	category  model.Category
	missing   string
	low       string // format with the grouped threshold
	strength  string
	threshold decimal.Decimal
	weight    int
}

// coverageRule: absent category is a hard gap; otherwise the first policy's sum
// insured is checked against an exclusive minimum.
func coverageRule(s coverageSpec) Rule {
	return Rule{
		Name: s.name,
		Evaluate: func(p *Portfolio) model.RuleResult {
			res := model.RuleResult{Rule: s.name}
			rec, ok := p.First(s.category)
			if !ok {
				res.Gaps = append(res.Gaps, s.category.Label())
				res.Suggestions = append(res.Suggestions, s.missing)
				return res
			}
			if rec.HasCoverage() && rec.Coverage.Decimal.LessThan(s.threshold) {
				res.Suggestions = append(res.Suggestions, fmt.Sprintf(s.low, calculator.FormatAmount(s.threshold)))
				return res
			}
			res.Strengths = append(res.Strengths, s.strength)
			res.ScoreDelta = s.weight
			return res
		},
	}
}

// presenceRule is advisory only: a missing category never becomes a coverage gap.
func presenceRule(name string, c model.Category, missing, strength string, weight int) Rule {
	return Rule{
		Name: name,
		Evaluate: func(p *Portfolio) model.RuleResult {
			res := model.RuleResult{Rule: name}
			if !p.Has(c) {
				res.Suggestions = append(res.Suggestions, missing)
				return res
			}
			res.Strengths = append(res.Strengths, strength)
			res.ScoreDelta = weight
			return res
		},
	}
}

func expiredRule(penalty int) Rule {
	const name = "expired-policies"
	return Rule{
		Name: name,
		Evaluate: func(p *Portfolio) model.RuleResult {
			res := model.RuleResult{Rule: name}
			n := 0
			for _, rec := range p.Policies {
				if calculator.IsExpired(rec.ExpiryDate, p.Now) {
					n++
				}
			}
			if n == 0 {
				return res
			}
			noun := "policies"
			if n == 1 {
				noun = "policy"
			}
			res.Suggestions = append(res.Suggestions,
				fmt.Sprintf("You have %d expired %s. Renew them immediately.", n, noun))
			res.ScoreDelta = -penalty
			return res
		},
	}
}

func upcomingRule(days int) Rule {
	const name = "upcoming-expirations"
	return Rule{
		Name: name,
		Evaluate: func(p *Portfolio) model.RuleResult {
			res := model.RuleResult{Rule: name}
			n := 0
			for _, rec := range p.Policies {
				if calculator.ExpiresWithin(rec.ExpiryDate, p.Now, days) {
					n++
				}
			}
			if n == 0 {
				return res
			}
			verb := "policies expire"
			if n == 1 {
				verb = "policy expires"
			}
			res.Suggestions = append(res.Suggestions,
				fmt.Sprintf("%d %s within %d days. Plan for renewal.", n, verb, days))
			return res
		},
	}
}

func diversityRule(minTypes, bonus int) Rule {
	const name = "diversity"
	return Rule{
		Name: name,
		Evaluate: func(p *Portfolio) model.RuleResult {
			res := model.RuleResult{Rule: name}
			if p.DistinctTypes() >= minTypes {
				res.Strengths = append(res.Strengths, "Good portfolio diversity")
				res.ScoreDelta = bonus
			}
			return res
		},
	}
}

// premiumRule is informational: it fires whenever total premium is positive.
func premiumRule(bonus int) Rule {
	const name = "premium-summary"
	return Rule{
		Name: name,
		Evaluate: func(p *Portfolio) model.RuleResult {
			res := model.RuleResult{Rule: name}
			total := calculator.TotalPremium(p.Policies)
			if total.IsPositive() {
				res.Strengths = append(res.Strengths,
					fmt.Sprintf("Total annual premium: $%s", calculator.FormatAmount(total)))
				res.ScoreDelta = bonus
			}
			return res
		},
	}
}
