package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PolicyScan/internal/analysis"
	"PolicyScan/internal/collector"
	"PolicyScan/internal/model"
	"PolicyScan/internal/recorder"
)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeNotifier) Send(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	return f.Send(text)
}

func (f *fakeNotifier) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

var testNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func at(s string) *time.Time {
	t, _ := model.ParseDate(s)
	return t
}

func cov(v int64) decimal.NullDecimal { return decimal.NewNullDecimal(decimal.NewFromInt(v)) }

func samplePolicies() []model.PolicyRecord {
	return []model.PolicyRecord{
		{ID: "h1", Name: "Family Health", Type: "health", Premium: decimal.NewFromInt(1200), Coverage: cov(500000), ExpiryDate: at("2027-01-01")},
		{ID: "a1", Name: "Car", Type: "auto", Premium: decimal.NewFromInt(600), ExpiryDate: at("2026-05-01")},
		{ID: "t1", Name: "Trip", Type: "travel", Premium: decimal.NewFromInt(90), ExpiryDate: at("2026-06-15")},
	}
}

func newTestScheduler(t *testing.T, fetcher collector.Fetcher) (*Scheduler, *fakeNotifier, *recorder.SQLiteRecorder) {
	t.Helper()
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "scans.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Close() })

	n := &fakeNotifier{}
	s := NewScheduler(context.Background(), collector.NewCollector(fetcher),
		analysis.NewEngine(analysis.DefaultThresholds()), n, rec)
	s.Now = func() time.Time { return testNow }
	return s, n, rec
}

func TestRegisterAll(t *testing.T) {
	s, _, _ := newTestScheduler(t, &collector.MockFetcher{})
	require.NoError(t, s.RegisterAll("0 0 8 * * 1", "0 0 9 * * *"))
	assert.Len(t, s.Cron.Entries(), 2)

	s2, _, _ := newTestScheduler(t, &collector.MockFetcher{})
	assert.Error(t, s2.RegisterAll("not a cron", "0 0 9 * * *"))
}

func TestScanTask_SendsAndRecords(t *testing.T) {
	s, n, rec := newTestScheduler(t, &collector.MockFetcher{Policies: samplePolicies()})

	s.RunScanNow()

	msgs := n.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "PolicyScan report")
	assert.Contains(t, msgs[0], "• Life Insurance")

	scans, err := rec.RecentScans(5)
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, "mock", scans[0].Source)
	assert.Equal(t, 3, scans[0].PolicyCount)
	assert.Equal(t, "1890", scans[0].TotalPremium)
}

func TestScanTask_CollectFailure(t *testing.T) {
	s, n, rec := newTestScheduler(t, &collector.MockFetcher{Err: errors.New("backend down")})

	s.RunScanNow()

	msgs := n.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Portfolio scan failed")
	assert.Contains(t, msgs[0], "backend down")

	scans, err := rec.RecentScans(5)
	require.NoError(t, err)
	assert.Empty(t, scans)
}

func TestScan_InvalidPortfolio(t *testing.T) {
	policies := []model.PolicyRecord{{ID: "x", Type: "auto"}, {ID: "x", Type: "home"}}
	s, _, _ := newTestScheduler(t, &collector.MockFetcher{Policies: policies})

	_, err := s.Scan()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate id")
}

func TestExpiryTask_AlertsAndRecords(t *testing.T) {
	s, n, rec := newTestScheduler(t, &collector.MockFetcher{Policies: samplePolicies()})

	s.expiryTask()

	msgs := n.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Car (Auto Insurance) expired 2026-05-01")
	assert.Contains(t, msgs[0], "Trip (Travel Insurance) expires 2026-06-15")
	assert.NotContains(t, msgs[0], "Family Health")

	for _, id := range []string{"a1", "t1"} {
		count, err := rec.ExpiryAlertCount(id)
		require.NoError(t, err)
		assert.Equal(t, 1, count, id)
	}
}

func TestExpiryCheck_NothingDue(t *testing.T) {
	s, n, _ := newTestScheduler(t, &collector.MockFetcher{Policies: samplePolicies()[:1]})

	msg, alerts, err := s.ExpiryCheck()
	require.NoError(t, err)
	assert.Empty(t, msg)
	assert.Empty(t, alerts)

	s.expiryTask()
	assert.Empty(t, n.messages())
}

func TestHandleCommand(t *testing.T) {
	s, n, _ := newTestScheduler(t, &collector.MockFetcher{Policies: samplePolicies()})

	assert.Equal(t, "No scans recorded yet.", s.HandleCommand("/history"))

	reply := s.HandleCommand("/scan@PolicyScanBot")
	assert.Contains(t, reply, "PolicyScan report")
	assert.Empty(t, n.messages(), "command replies are returned, not sent")

	assert.Contains(t, s.HandleCommand("/history"), "Recent scans")
	assert.Contains(t, s.HandleCommand(" /EXPIRING "), "Expiring within 30 days")
	assert.Contains(t, s.HandleCommand("hello"), "Available commands")
}

func TestHandleCommand_ExpiringNothingDue(t *testing.T) {
	s, _, _ := newTestScheduler(t, &collector.MockFetcher{Policies: samplePolicies()[:1]})
	assert.Contains(t, s.HandleCommand("/expiring"), "No policies expired or expiring within 30 days")
}
