package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"PolicyScan/internal/analysis"
	"PolicyScan/internal/calculator"
	"PolicyScan/internal/collector"
	"PolicyScan/internal/notifier"
	"PolicyScan/internal/recorder"
)

// HistoryLimit is how many scans /history shows.
const HistoryLimit = 5

// Scheduler manages the periodic scan and expiry jobs.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Engine    *analysis.Engine
	Notifier  notifier.Notifier
	Recorder  recorder.Recorder
	Ctx       context.Context
	Owner     string
	Now       func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, col *collector.Collector, engine *analysis.Engine, n notifier.Notifier, rec recorder.Recorder) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Engine:    engine,
		Notifier:  n,
		Recorder:  rec,
		Ctx:       ctx,
		Now:       time.Now,
	}
}

// RegisterAll registers the scan and expiry tasks.
func (s *Scheduler) RegisterAll(scanCron, expiryCron string) error {
	if _, err := s.Cron.AddFunc(scanCron, s.scanTask); err != nil {
		return eris.Wrapf(err, "scheduler: register scan task %q", scanCron)
	}
	if _, err := s.Cron.AddFunc(expiryCron, s.expiryTask); err != nil {
		return eris.Wrapf(err, "scheduler: register expiry task %q", expiryCron)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	zap.L().Info("scheduler: started", zap.Int("jobs", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	zap.L().Info("scheduler: stopped")
}

// RunScanNow executes the scan task immediately (manual trigger or run-on-start).
func (s *Scheduler) RunScanNow() {
	s.scanTask()
}

func (s *Scheduler) scanTask() {
	zap.L().Info("scheduler: running scan task")
	report, err := s.Scan()
	if err != nil {
		zap.L().Error("scheduler: scan failed", zap.Error(err))
		s.trySend(fmt.Sprintf("❌ Portfolio scan failed: %v", err))
		return
	}
	s.trySend(report)
}

// Scan collects, analyzes and records one portfolio scan, returning the formatted report.
func (s *Scheduler) Scan() (string, error) {
	policies, err := s.Collector.Collect(s.Ctx)
	if err != nil {
		return "", err
	}

	result, err := s.Engine.Evaluate(policies, s.Now())
	if err != nil {
		return "", eris.Wrap(err, "scheduler: evaluate portfolio")
	}

	id, err := s.Recorder.RecordScan(&recorder.ScanRecord{
		Source:       s.Collector.Fetcher.Name(),
		Owner:        s.Owner,
		PolicyCount:  len(policies),
		TotalPremium: calculator.TotalPremium(policies),
		Analysis:     result,
	})
	if err != nil {
		zap.L().Error("scheduler: record scan", zap.Error(err))
	}

	zap.L().Info("scheduler: scan complete",
		zap.String("scan_id", id),
		zap.Int("score", result.Score),
		zap.String("rating", string(result.OverallRating)),
		zap.Int("gaps", len(result.CoverageGaps)),
	)
	return notifier.FormatScanReport(result, policies, s.Collector.Fetcher.Name()), nil
}

func (s *Scheduler) expiryTask() {
	zap.L().Info("scheduler: running expiry check")
	msg, alerts, err := s.ExpiryCheck()
	if err != nil {
		zap.L().Error("scheduler: expiry check failed", zap.Error(err))
		return
	}
	if msg == "" {
		zap.L().Info("scheduler: no expired or expiring policies")
		return
	}
	s.trySend(msg)

	for i := range alerts {
		if err := s.Recorder.RecordExpiryAlert(&alerts[i]); err != nil {
			zap.L().Error("scheduler: record expiry alert", zap.String("policy_id", alerts[i].PolicyID), zap.Error(err))
		}
	}
}

// ExpiryCheck returns the alert message and the alerts it covers. The message is empty when nothing is due.
func (s *Scheduler) ExpiryCheck() (string, []recorder.ExpiryAlert, error) {
	policies, err := s.Collector.Collect(s.Ctx)
	if err != nil {
		return "", nil, err
	}
	now := s.Now()
	window := s.Engine.Thresholds.UpcomingWindowDays

	var alerts []recorder.ExpiryAlert
	for _, p := range policies {
		status := calculator.ExpiryStatus(p.ExpiryDate, now, window)
		if status != calculator.StatusExpired && status != calculator.StatusExpiring {
			continue
		}
		alerts = append(alerts, recorder.ExpiryAlert{
			PolicyID:      p.ID,
			PolicyName:    p.Name,
			PolicyType:    string(p.Category()),
			ExpiryDate:    *p.ExpiryDate,
			Status:        string(status),
			DaysRemaining: calculator.DaysRemaining(*p.ExpiryDate, now),
		})
	}
	return notifier.FormatExpiryAlert(policies, now, window), alerts, nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	// Telegram group commands arrive as "/scan@botname".
	cmd, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(command)), "@")

	switch cmd {
	case "/scan":
		report, err := s.Scan()
		if err != nil {
			return fmt.Sprintf("❌ Portfolio scan failed: %v", err)
		}
		return report
	case "/expiring":
		msg, _, err := s.ExpiryCheck()
		if err != nil {
			return fmt.Sprintf("❌ Expiry check failed: %v", err)
		}
		if msg == "" {
			return fmt.Sprintf("✅ No policies expired or expiring within %d days.", s.Engine.Thresholds.UpcomingWindowDays)
		}
		return msg
	case "/history":
		scans, err := s.Recorder.RecentScans(HistoryLimit)
		if err != nil {
			return fmt.Sprintf("❌ Could not load history: %v", err)
		}
		return notifier.FormatHistory(scans)
	default:
		return "Available commands:\n• /scan: analyze the portfolio now\n• /expiring: list expired and soon-expiring policies\n• /history: recent scan results"
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		zap.L().Error("scheduler: send notification", zap.Error(err))
	}
}
