package recorder

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"PolicyScan/internal/model"
)

// SQLiteRecorder persists scan history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "recorder: create dir %s", dir)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, eris.Wrap(err, "recorder: open sqlite")
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", "PRAGMA foreign_keys=ON"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "recorder: %s", pragma)
		}
	}

	r := &SQLiteRecorder{db: db, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "recorder: migrate")
	}

	zap.L().Info("recorder: sqlite opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scans (
			id            TEXT PRIMARY KEY,
			timestamp     INTEGER NOT NULL,
			source        TEXT,
			owner         TEXT,
			policy_count  INTEGER,
			score         INTEGER,
			rating        TEXT,
			gaps          TEXT,
			suggestions   TEXT,
			strengths     TEXT,
			total_premium TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_ts ON scans(timestamp)`,

		`CREATE TABLE IF NOT EXISTS rule_results (
			scan_id     TEXT NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
			position    INTEGER NOT NULL,
			rule        TEXT NOT NULL,
			score_delta INTEGER,
			PRIMARY KEY (scan_id, position)
		)`,

		`CREATE TABLE IF NOT EXISTS expiry_alerts (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp      INTEGER NOT NULL,
			policy_id      TEXT,
			policy_name    TEXT,
			policy_type    TEXT,
			expiry_date    TEXT,
			status         TEXT,
			days_remaining INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_ts ON expiry_alerts(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return eris.Wrapf(err, "exec %q", s[:40])
		}
	}
	return nil
}

// RecordScan stores a scan and its per-rule breakdown, returning the new scan id.
func (r *SQLiteRecorder) RecordScan(rec *ScanRecord) (string, error) {
	if rec == nil || rec.Analysis == nil {
		return "", eris.New("recorder: scan record has no analysis")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	a := rec.Analysis
	gaps, err := json.Marshal(a.CoverageGaps)
	if err != nil {
		return "", eris.Wrap(err, "recorder: encode gaps")
	}
	suggestions, err := json.Marshal(a.Suggestions)
	if err != nil {
		return "", eris.Wrap(err, "recorder: encode suggestions")
	}
	strengths, err := json.Marshal(a.Strengths)
	if err != nil {
		return "", eris.Wrap(err, "recorder: encode strengths")
	}

	tx, err := r.db.Begin()
	if err != nil {
		return "", eris.Wrap(err, "recorder: begin")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	id := uuid.NewString()
	if _, err := tx.Exec(`INSERT INTO scans
		(id, timestamp, source, owner, policy_count, score, rating, gaps, suggestions, strengths, total_premium)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		id, r.now().UnixNano(), rec.Source, rec.Owner, rec.PolicyCount,
		a.Score, string(a.OverallRating), string(gaps), string(suggestions), string(strengths),
		rec.TotalPremium.String(),
	); err != nil {
		return "", eris.Wrap(err, "recorder: insert scan")
	}

	for i, rr := range a.Rules {
		if _, err := tx.Exec(`INSERT INTO rule_results (scan_id, position, rule, score_delta) VALUES (?,?,?,?)`,
			id, i, rr.Rule, rr.ScoreDelta); err != nil {
			return "", eris.Wrapf(err, "recorder: insert rule %s", rr.Rule)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", eris.Wrap(err, "recorder: commit scan")
	}
	return id, nil
}

func (r *SQLiteRecorder) RecordExpiryAlert(alert *ExpiryAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO expiry_alerts
		(timestamp, policy_id, policy_name, policy_type, expiry_date, status, days_remaining)
		VALUES (?,?,?,?,?,?,?)`,
		r.now().UnixNano(), alert.PolicyID, alert.PolicyName, alert.PolicyType,
		alert.ExpiryDate.Format(model.DateLayout), alert.Status, alert.DaysRemaining,
	)
	return eris.Wrap(err, "recorder: insert expiry alert")
}

// RecentScans returns up to limit scans, newest first.
func (r *SQLiteRecorder) RecentScans(limit int) ([]ScanSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT id, timestamp, source, owner, policy_count, score, rating, gaps, total_premium
		FROM scans ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "recorder: query scans")
	}
	defer rows.Close()

	var out []ScanSummary
	for rows.Next() {
		var (
			s      ScanSummary
			ts     int64
			rating string
			gaps   string
		)
		if err := rows.Scan(&s.ID, &ts, &s.Source, &s.Owner, &s.PolicyCount, &s.Score, &rating, &gaps, &s.TotalPremium); err != nil {
			return nil, eris.Wrap(err, "recorder: scan row")
		}
		s.Timestamp = time.Unix(0, ts).UTC()
		s.Rating = model.Rating(rating)
		var gapList []string
		if err := json.Unmarshal([]byte(gaps), &gapList); err != nil {
			return nil, eris.Wrapf(err, "recorder: decode gaps for %s", s.ID)
		}
		s.GapCount = len(gapList)
		out = append(out, s)
	}
	return out, eris.Wrap(rows.Err(), "recorder: iterate scans")
}

// ExpiryAlertCount returns how many alerts have been recorded for a policy.
func (r *SQLiteRecorder) ExpiryAlertCount(policyID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM expiry_alerts WHERE policy_id = ?`, policyID).Scan(&n)
	return n, eris.Wrap(err, "recorder: count alerts")
}

func (r *SQLiteRecorder) Close() error {
	zap.L().Info("recorder: closing sqlite")
	return r.db.Close()
}
