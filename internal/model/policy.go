package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category is the canonical insurance category of a policy.
type Category string

const (
	CategoryHealth Category = "health"
	CategoryLife   Category = "life"
	CategoryAuto   Category = "auto"
	CategoryHome   Category = "home"
	CategoryTravel Category = "travel"
	CategoryOther  Category = "other"
)

// TrackedCategories are the categories with dedicated analysis rules, in evaluation order.
var TrackedCategories = []Category{CategoryHealth, CategoryLife, CategoryAuto, CategoryHome}

var categoryLabels = map[Category]string{
	CategoryHealth: "Health Insurance",
	CategoryLife:   "Life Insurance",
	CategoryAuto:   "Auto Insurance",
	CategoryHome:   "Home Insurance",
	CategoryTravel: "Travel Insurance",
	CategoryOther:  "Other Insurance",
}

// Label returns the human-readable name of the category.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return categoryLabels[CategoryOther]
}

// Tracked reports whether c has its own analysis rule.
func (c Category) Tracked() bool {
	for _, t := range TrackedCategories {
		if t == c {
			return true
		}
	}
	return false
}

// NormalizeType lower-cases and trims a raw policy type label.
func NormalizeType(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// CategoryOf maps a raw type label to its Category. Unknown labels map to CategoryOther.
func CategoryOf(raw string) Category {
	switch c := Category(NormalizeType(raw)); c {
	case CategoryHealth, CategoryLife, CategoryAuto, CategoryHome, CategoryTravel:
		return c
	default:
		return CategoryOther
	}
}

// PolicyRecord is one insurance contract as seen by the analysis engine.
type PolicyRecord struct {
	ID         string
	Name       string
	Type       string
	Premium    decimal.Decimal     // annual cost
	Coverage   decimal.NullDecimal // sum insured, Valid=false when unknown
	StartDate  *time.Time
	ExpiryDate *time.Time
	Term       int // years; when ExpiryDate was not given explicitly it is StartDate plus Term
}

// Category returns the canonical category of the policy.
func (p PolicyRecord) Category() Category {
	return CategoryOf(p.Type)
}

// HasCoverage reports whether a positive sum insured is known.
// A zero coverage is treated the same as an absent one.
func (p PolicyRecord) HasCoverage() bool {
	return p.Coverage.Valid && p.Coverage.Decimal.IsPositive()
}

// PolicyBook is the persisted set of policies owned by one user.
type PolicyBook struct {
	Owner     string          `yaml:"owner,omitempty"`
	Policies  []PolicyPayload `yaml:"policies"`
	UpdatedAt time.Time       `yaml:"updated_at"`
}
