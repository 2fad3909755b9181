package calculator

import (
	"math"
	"time"
)

// Status classifies a policy by its expiry date relative to a reference time.
type Status string

const (
	StatusUnknown  Status = "unknown"
	StatusActive   Status = "active"
	StatusExpiring Status = "expiring"
	StatusExpired  Status = "expired"
)

// IsExpired reports whether expiry is strictly before now. A nil expiry never expires.
func IsExpired(expiry *time.Time, now time.Time) bool {
	return expiry != nil && expiry.Before(now)
}

// ExpiresWithin reports whether expiry falls in the inclusive window [now, now+days].
func ExpiresWithin(expiry *time.Time, now time.Time, days int) bool {
	if expiry == nil {
		return false
	}
	limit := now.AddDate(0, 0, days)
	return !expiry.Before(now) && !expiry.After(limit)
}

// ExpiryStatus returns the status of a policy expiring at expiry, using a window of days.
func ExpiryStatus(expiry *time.Time, now time.Time, days int) Status {
	switch {
	case expiry == nil:
		return StatusUnknown
	case IsExpired(expiry, now):
		return StatusExpired
	case ExpiresWithin(expiry, now, days):
		return StatusExpiring
	default:
		return StatusActive
	}
}

// DaysRemaining returns the number of days until expiry, rounded up and floored at 0.
func DaysRemaining(expiry time.Time, now time.Time) int {
	diff := expiry.Sub(now)
	if diff <= 0 {
		return 0
	}
	return int(math.Ceil(diff.Hours() / 24))
}
