package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"PolicyScan/internal/calculator"
	"PolicyScan/internal/collector"
	"PolicyScan/internal/model"
)

var expiryCmd = &cobra.Command{
	Use:   "expiry",
	Short: "List expired and soon-expiring policies",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("scan"); err != nil {
			return err
		}
		window, _ := cmd.Flags().GetInt("window")
		if window <= 0 {
			window = cfg.Analysis.UpcomingWindowDays
		}

		fetcher, err := collector.NewFetcher(cfg)
		if err != nil {
			return err
		}
		policies, err := collector.NewCollector(fetcher).Collect(cmd.Context())
		if err != nil {
			return err
		}

		if n := formatExpiry(os.Stdout, policies, time.Now(), window); n == 0 {
			fmt.Fprintf(os.Stderr, "No policies expired or expiring within %d days.\n", window)
		}
		return nil
	},
}

// formatExpiry writes expired and expiring policies, soonest first, and returns how many were listed.
func formatExpiry(w io.Writer, policies []model.PolicyRecord, now time.Time, window int) int {
	type row struct {
		p      model.PolicyRecord
		status calculator.Status
	}
	var rows []row
	for _, p := range policies {
		st := calculator.ExpiryStatus(p.ExpiryDate, now, window)
		if st == calculator.StatusExpired || st == calculator.StatusExpiring {
			rows = append(rows, row{p: p, status: st})
		}
	}
	if len(rows) == 0 {
		return 0
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].p.ExpiryDate.Before(*rows[j].p.ExpiryDate)
	})

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tEXPIRY\tSTATUS\tDAYS LEFT")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			r.p.ID, r.p.Name, r.p.Category().Label(), r.p.ExpiryDate.Format(model.DateLayout),
			r.status, calculator.DaysRemaining(*r.p.ExpiryDate, now))
	}
	tw.Flush() //nolint:errcheck
	return len(rows)
}

func init() {
	expiryCmd.Flags().Int("window", 0, "days ahead to look (defaults to analysis.upcoming_window_days)")
	rootCmd.AddCommand(expiryCmd)
}
