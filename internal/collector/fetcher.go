package collector

import (
	"context"

	"PolicyScan/internal/model"
)

// Fetcher defines the interface for reading a user's policies.
type Fetcher interface {
	FetchPolicies(ctx context.Context) ([]model.PolicyRecord, error)
	Name() string
}
