package recorder

import (
	"time"

	"github.com/shopspring/decimal"

	"PolicyScan/internal/model"
)

// ScanRecord holds everything persisted for one portfolio scan.
type ScanRecord struct {
	Source       string
	Owner        string
	PolicyCount  int
	TotalPremium decimal.Decimal
	Analysis     *model.PortfolioAnalysis
}

// ExpiryAlert records a policy that was reported as expired or expiring.
type ExpiryAlert struct {
	PolicyID      string
	PolicyName    string
	PolicyType    string
	ExpiryDate    time.Time
	Status        string // "expired" or "expiring"
	DaysRemaining int
}

// ScanSummary is one row of scan history, newest first.
type ScanSummary struct {
	ID           string       `json:"id"`
	Timestamp    time.Time    `json:"timestamp"`
	Source       string       `json:"source"`
	Owner        string       `json:"owner,omitempty"`
	PolicyCount  int          `json:"policyCount"`
	Score        int          `json:"score"`
	Rating       model.Rating `json:"rating"`
	GapCount     int          `json:"gapCount"`
	TotalPremium string       `json:"totalPremium"`
}

// Recorder persists scan history for later review.
type Recorder interface {
	RecordScan(rec *ScanRecord) (string, error)
	RecordExpiryAlert(alert *ExpiryAlert) error
	RecentScans(limit int) ([]ScanSummary, error)
	Close() error
}
