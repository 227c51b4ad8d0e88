package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/market-scan/internal/model"
)

var (
	scanSampleSize   int
	scanSkipReviews  bool
	scanForceRefresh bool
	scanPrintBrief   bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <keyword>",
	Short: "Run a market scan for a keyword",
	Long:  "Fetches listings, computes market signals, and generates a differentiation brief. Progress is printed to stderr; the final scan record to stdout.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		orch, err := newOrchestrator(st)
		if err != nil {
			return err
		}

		sampleSize := scanSampleSize
		if sampleSize == 0 {
			sampleSize = cfg.Scan.SampleSize
		}

		sc, err := st.CreateScan(ctx, args[0], model.ScanOptions{
			SampleSize:     sampleSize,
			IncludeReviews: !scanSkipReviews,
			ForceRefresh:   scanForceRefresh,
		})
		if err != nil {
			return eris.Wrap(err, "create scan")
		}

		events, cancel := orch.Broadcaster().Subscribe(sc.ID)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for ev := range events {
				if ev.Progress >= 0 {
					fmt.Fprintf(os.Stderr, "[%s] %s (%d%%)\n", ev.Phase, ev.Message, ev.Progress)
				} else {
					fmt.Fprintf(os.Stderr, "[%s] %s\n", ev.Phase, ev.Message)
				}
				for _, w := range ev.Warnings {
					fmt.Fprintf(os.Stderr, "  warning: %s\n", w)
				}
			}
		}()

		runErr := orch.Run(ctx, sc)
		cancel()
		<-done

		if runErr != nil {
			return eris.Wrap(runErr, "scan run")
		}

		final, err := st.GetScan(ctx, sc.ID)
		if err != nil {
			return eris.Wrap(err, "load scan")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if !scanPrintBrief {
			return enc.Encode(final)
		}

		rec, err := st.GetLatestBrief(ctx, sc.ID)
		if err != nil {
			return eris.Wrap(err, "load brief")
		}
		return enc.Encode(struct {
			Scan  *model.Scan                 `json:"scan"`
			Brief *model.DifferentiationBrief `json:"brief,omitempty"`
			QA    *model.QAResult             `json:"qa,omitempty"`
		}{Scan: final, Brief: briefOf(rec), QA: qaOf(rec)})
	},
}

func init() {
	scanCmd.Flags().IntVar(&scanSampleSize, "sample-size", 0, "listings to sample (default from config)")
	scanCmd.Flags().BoolVar(&scanSkipReviews, "skip-reviews", false, "skip review fetching for the Buyer Frictions section")
	scanCmd.Flags().BoolVar(&scanForceRefresh, "force-refresh", false, "bypass the listing cache")
	scanCmd.Flags().BoolVar(&scanPrintBrief, "brief", false, "include the generated brief in the output")
	rootCmd.AddCommand(scanCmd)
}
