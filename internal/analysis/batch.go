package analysis

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"PolicyScan/internal/model"
)

// Owned is one owner's portfolio submitted for batch scoring.
type Owned struct {
	Owner    string
	Policies []model.PolicyRecord
}

// BatchResult is the outcome for one owner. Err is set when the portfolio failed validation.
type BatchResult struct {
	Owner    string                   `json:"owner"`
	Analysis *model.PortfolioAnalysis `json:"analysis,omitempty"`
	Err      error                    `json:"-"`
	Error    string                   `json:"error,omitempty"`
}

// AnalyzeBatch scores portfolios concurrently with at most limit workers.
// clock is read once per portfolio. Results keep the input order; an invalid
// portfolio only fails its own entry.
func AnalyzeBatch(ctx context.Context, e *Engine, portfolios []Owned, clock func() time.Time, limit int) ([]BatchResult, error) {
	if limit < 1 {
		limit = 1
	}
	results := make([]BatchResult, len(portfolios))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, o := range portfolios {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return eris.Wrap(err, "analysis: batch cancelled")
			}
			res := BatchResult{Owner: o.Owner}
			a, err := e.Evaluate(o.Policies, clock())
			if err != nil {
				res.Err = err
				res.Error = err.Error()
			} else {
				res.Analysis = a
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
