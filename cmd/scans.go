package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/market-scan/internal/model"
	"github.com/sells-group/market-scan/internal/store"
)

var scansCmd = &cobra.Command{
	Use:   "scans",
	Short: "Inspect scan history",
	Long:  "Commands for listing and viewing past scans and their artifacts.",
}

// -- scans list --

var scansListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scans",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		keyword, _ := cmd.Flags().GetString("keyword")
		limit, _ := cmd.Flags().GetInt("limit")

		scans, err := st.ListScans(ctx, store.ScanFilter{
			Status:  model.ScanStatus(status),
			Keyword: keyword,
			Limit:   limit,
		})
		if err != nil {
			return eris.Wrap(err, "scans list")
		}

		if len(scans) == 0 {
			fmt.Fprintln(os.Stderr, "No scans found.")
			return nil
		}

		formatScansList(os.Stdout, scans)
		return nil
	},
}

// -- scans show --

var scansShowCmd = &cobra.Command{
	Use:   "show <scan-id>",
	Short: "Show a scan with its signals, brief, and decision",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		detail, err := loadScanDetail(cmd.Context(), st, args[0])
		if err != nil {
			return eris.Wrap(err, "scans show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(detail)
	},
}

// scanDetail is the combined view of a scan and everything persisted
// for it. Absent artifacts are omitted, not errors.
type scanDetail struct {
	Scan     *model.Scan                 `json:"scan"`
	Signals  *model.SignalsResult        `json:"signals,omitempty"`
	Brief    *model.DifferentiationBrief `json:"brief,omitempty"`
	QA       *model.QAResult             `json:"qa,omitempty"`
	Decision *model.Decision             `json:"decision,omitempty"`
}

func loadScanDetail(ctx context.Context, st store.Store, scanID string) (*scanDetail, error) {
	sc, err := st.GetScan(ctx, scanID)
	if err != nil {
		return nil, err
	}

	signals, err := st.GetSignals(ctx, scanID)
	if err != nil {
		return nil, err
	}
	rec, err := st.GetLatestBrief(ctx, scanID)
	if err != nil {
		return nil, err
	}
	decision, err := st.GetDecision(ctx, scanID)
	if err != nil {
		return nil, err
	}

	return &scanDetail{
		Scan:     sc,
		Signals:  signals,
		Brief:    briefOf(rec),
		QA:       qaOf(rec),
		Decision: decision,
	}, nil
}

func briefOf(rec *store.BriefRecord) *model.DifferentiationBrief {
	if rec == nil {
		return nil
	}
	return rec.Brief
}

func qaOf(rec *store.BriefRecord) *model.QAResult {
	if rec == nil {
		return nil
	}
	return rec.QA
}

func formatScansList(w io.Writer, scans []model.Scan) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKEYWORD\tSTATUS\tCREATED\tERROR")
	for _, s := range scans {
		errMsg := s.ErrorMessage
		if len(errMsg) > 40 {
			errMsg = errMsg[:37] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Keyword, s.Status, s.CreatedAt.Format(time.RFC3339), errMsg)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	scansListCmd.Flags().String("status", "", "filter by status")
	scansListCmd.Flags().String("keyword", "", "filter by keyword")
	scansListCmd.Flags().Int("limit", 50, "max scans to list")
	scansCmd.AddCommand(scansListCmd, scansShowCmd)
	rootCmd.AddCommand(scansCmd)
}
