package collector

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"PolicyScan/internal/book"
	"PolicyScan/internal/calculator"
	"PolicyScan/internal/config"
	"PolicyScan/internal/model"
)

// MockFetcher returns fixed policies for development and testing.
type MockFetcher struct {
	Policies []model.PolicyRecord
	Err      error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchPolicies(_ context.Context) ([]model.PolicyRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]model.PolicyRecord(nil), m.Policies...), nil
}

// Collector reads policies from a Fetcher and logs a short summary of what it got.
type Collector struct {
	Fetcher Fetcher
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher) *Collector {
	return &Collector{Fetcher: fetcher}
}

// Collect fetches the current policy list.
func (c *Collector) Collect(ctx context.Context) ([]model.PolicyRecord, error) {
	start := time.Now()
	policies, err := c.Fetcher.FetchPolicies(ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "collector: fetch from %s", c.Fetcher.Name())
	}

	missingExpiry := 0
	for _, p := range policies {
		if p.ExpiryDate == nil {
			missingExpiry++
		}
	}
	zap.L().Info("collector: policies fetched",
		zap.String("source", c.Fetcher.Name()),
		zap.Int("policies", len(policies)),
		zap.Int("missing_expiry", missingExpiry),
		zap.String("total_premium", calculator.TotalPremium(policies).String()),
		zap.Duration("elapsed", time.Since(start)),
	)
	if missingExpiry > 0 {
		zap.L().Warn("collector: policies without expiry date are excluded from expiry checks",
			zap.Int("count", missingExpiry))
	}
	return policies, nil
}

// NewFetcher builds the Fetcher selected by cfg.Source.Kind.
func NewFetcher(cfg *config.Config) (Fetcher, error) {
	switch cfg.Source.Kind {
	case "rest":
		timeout := time.Duration(cfg.Source.TimeoutSecs) * time.Second
		return NewRESTFetcher(cfg.Source.BaseURL, cfg.Source.Token, cfg.Proxy, timeout), nil
	case "book":
		m, err := book.NewManager(cfg.Book.Path, cfg.Book.Owner)
		if err != nil {
			return nil, err
		}
		return NewBookFetcher(m), nil
	case "xlsx":
		return NewXLSXFetcher(cfg.Source.Path), nil
	default:
		return nil, eris.Errorf("collector: unknown source kind %q", cfg.Source.Kind)
	}
}

// BookFetcher reads policies from the local policy book.
type BookFetcher struct {
	Book *book.Manager
}

// NewBookFetcher creates a fetcher over a book manager.
func NewBookFetcher(m *book.Manager) *BookFetcher {
	return &BookFetcher{Book: m}
}

func (f *BookFetcher) Name() string { return "book" }

func (f *BookFetcher) FetchPolicies(_ context.Context) ([]model.PolicyRecord, error) {
	return f.Book.List()
}
