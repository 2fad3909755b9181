package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"PolicyScan/internal/analysis"
	"PolicyScan/internal/calculator"
	"PolicyScan/internal/collector"
	"PolicyScan/internal/model"
	"PolicyScan/internal/recorder"
	"PolicyScan/internal/report"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Analyze the configured portfolio once",
	Long:  "Reads policies from the configured source, scores them and prints the analysis.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("scan"); err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		width, _ := cmd.Flags().GetInt("width")
		record, _ := cmd.Flags().GetBool("record")
		if !validFormat(format) {
			return eris.Errorf("scan: unknown format %q (want markdown, json or plain)", format)
		}

		fetcher, err := collector.NewFetcher(cfg)
		if err != nil {
			return err
		}
		col := collector.NewCollector(fetcher)
		policies, err := col.Collect(cmd.Context())
		if err != nil {
			return err
		}

		now := time.Now()
		engine := analysis.NewEngine(cfg.Analysis)
		result, err := engine.Evaluate(policies, now)
		if err != nil {
			return eris.Wrap(err, "scan")
		}

		if record {
			rec := openRecorder(cfg.Database.SQLitePath)
			defer rec.Close() //nolint:errcheck
			if _, err := rec.RecordScan(&recorder.ScanRecord{
				Source:       fetcher.Name(),
				Owner:        cfg.Book.Owner,
				PolicyCount:  len(policies),
				TotalPremium: calculator.TotalPremium(policies),
				Analysis:     result,
			}); err != nil {
				zap.L().Error("scan: record", zap.Error(err))
			}
		}

		return writeScan(os.Stdout, format, width, result, policies, now, cfg.Analysis.UpcomingWindowDays)
	},
}

func validFormat(format string) bool {
	switch format {
	case "markdown", "json", "plain":
		return true
	}
	return false
}

func writeScan(w io.Writer, format string, width int, a *model.PortfolioAnalysis, policies []model.PolicyRecord, now time.Time, windowDays int) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(a, "", "  ")
		if err != nil {
			return eris.Wrap(err, "scan: encode json")
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "plain":
		formatPlain(w, a)
		return nil
	default:
		md, err := report.Markdown(a, policies, now, windowDays)
		if err != nil {
			return err
		}
		out, err := report.Render(md, width)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	}
}

func formatPlain(w io.Writer, a *model.PortfolioAnalysis) {
	fmt.Fprintf(w, "Rating: %s\nScore:  %d/100\n", a.OverallRating, a.Score)
	sections := []struct {
		title string
		items []string
	}{
		{"Coverage gaps", a.CoverageGaps},
		{"Suggestions", a.Suggestions},
		{"Strengths", a.Strengths},
	}
	for _, s := range sections {
		if len(s.items) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s:\n", s.title)
		for _, item := range s.items {
			fmt.Fprintf(w, "  - %s\n", item)
		}
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RULE\tDELTA")
	fmt.Fprintln(tw, strings.Repeat("-", 20)+"\t"+strings.Repeat("-", 5))
	for _, r := range a.Rules {
		fmt.Fprintf(tw, "%s\t%+d\n", r.Rule, r.ScoreDelta)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	scanCmd.Flags().String("format", "markdown", "output format: markdown, json or plain")
	scanCmd.Flags().Int("width", 100, "wrap width for markdown output")
	scanCmd.Flags().Bool("record", true, "store the scan in the history database")
	rootCmd.AddCommand(scanCmd)
}
