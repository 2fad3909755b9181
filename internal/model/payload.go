package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// ErrInvalidPayload is returned when a wire payload cannot be turned into a PolicyRecord.
var ErrInvalidPayload = eris.New("invalid policy payload")

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// PolicyPayload is the JSON/YAML shape used by the insurance backend.
type PolicyPayload struct {
	ID       string   `json:"insuranceId" yaml:"id"`
	Name     string   `json:"insuranceName" yaml:"name"`
	Type     string   `json:"insuranceType" yaml:"type"`
	Price    float64  `json:"insurancePrice" yaml:"premium"`
	Coverage *float64 `json:"insuranceCoverage,omitempty" yaml:"coverage,omitempty"`
	FromDate string   `json:"insuranceFromDate,omitempty" yaml:"start,omitempty"`
	ToDate   string   `json:"insuranceToDate,omitempty" yaml:"expiry,omitempty"`
	Term     int      `json:"insuranceTerm,omitempty" yaml:"term,omitempty"`
}

// ToRecord converts the payload into a PolicyRecord.
// When ToDate is empty but FromDate and Term are set, expiry is FromDate plus Term years.
func (p PolicyPayload) ToRecord() (PolicyRecord, error) {
	rec := PolicyRecord{
		ID:      p.ID,
		Name:    p.Name,
		Type:    p.Type,
		Premium: decimal.NewFromFloat(p.Price),
		Term:    p.Term,
	}
	if p.Coverage != nil {
		rec.Coverage = decimal.NewNullDecimal(decimal.NewFromFloat(*p.Coverage))
	}

	start, err := ParseDate(p.FromDate)
	if err != nil {
		return PolicyRecord{}, eris.Wrapf(ErrInvalidPayload, "policy %q: start date %q", p.ID, p.FromDate)
	}
	rec.StartDate = start

	expiry, err := ParseDate(p.ToDate)
	if err != nil {
		return PolicyRecord{}, eris.Wrapf(ErrInvalidPayload, "policy %q: expiry date %q", p.ID, p.ToDate)
	}
	if expiry == nil && start != nil && p.Term > 0 {
		e := start.AddDate(p.Term, 0, 0)
		expiry = &e
	}
	rec.ExpiryDate = expiry

	return rec, nil
}

// PayloadFromRecord converts a PolicyRecord back into its wire shape.
// An expiry derived from StartDate plus Term is left out of ToDate so that
// ToRecord derives it again after either input changes.
func PayloadFromRecord(r PolicyRecord) PolicyPayload {
	price, _ := r.Premium.Float64()
	p := PolicyPayload{
		ID:    r.ID,
		Name:  r.Name,
		Type:  r.Type,
		Price: price,
		Term:  r.Term,
	}
	if r.Coverage.Valid {
		c, _ := r.Coverage.Decimal.Float64()
		p.Coverage = &c
	}
	if r.StartDate != nil {
		p.FromDate = FormatDate(*r.StartDate)
	}
	if r.ExpiryDate != nil && !r.expiryFromTerm() {
		p.ToDate = FormatDate(*r.ExpiryDate)
	}
	return p
}

func (r PolicyRecord) expiryFromTerm() bool {
	if r.StartDate == nil || r.ExpiryDate == nil || r.Term <= 0 {
		return false
	}
	return r.StartDate.AddDate(r.Term, 0, 0).Equal(*r.ExpiryDate)
}

// FormatDate is the inverse of ParseDate: UTC midnight prints as a calendar
// date, anything else keeps its full RFC3339 timestamp.
func FormatDate(t time.Time) string {
	if t.Location() == time.UTC && t.Equal(t.Truncate(24*time.Hour)) {
		return t.Format(DateLayout)
	}
	return t.Format(time.RFC3339)
}

// RecordsFromPayloads converts a list of payloads, stopping at the first bad one.
func RecordsFromPayloads(payloads []PolicyPayload) ([]PolicyRecord, error) {
	out := make([]PolicyRecord, 0, len(payloads))
	for _, p := range payloads {
		r, err := p.ToRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// ParseDate parses a calendar date (YYYY-MM-DD, interpreted as UTC midnight) or an RFC3339 timestamp.
// An empty string yields nil.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, eris.Wrapf(err, "model: parse date %q", s)
	}
	return &t, nil
}
