package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/market-scan/internal/model"
)

var decisionNotes string

var decisionCmd = &cobra.Command{
	Use:   "decision <scan-id> <build|kill|hold>",
	Short: "Record a build/kill/hold verdict on a finished scan",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		verdict := model.DecisionValue(args[1])
		switch verdict {
		case model.DecisionBuild, model.DecisionKill, model.DecisionHold:
		default:
			return eris.Errorf("invalid decision %q: must be build, kill, or hold", args[1])
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sc, err := st.GetScan(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "decision")
		}
		if !sc.Status.Terminal() {
			return eris.Errorf("scan %s is still %s; decide once it finishes", sc.ID, sc.Status)
		}

		d := model.Decision{
			ScanID:    sc.ID,
			Decision:  verdict,
			Notes:     decisionNotes,
			DecidedAt: time.Now().UTC(),
		}
		if err := st.SaveDecision(ctx, d); err != nil {
			return eris.Wrap(err, "save decision")
		}

		fmt.Printf("Recorded %s for scan %s (%s)\n", verdict, sc.ID, sc.Keyword)
		return nil
	},
}

func init() {
	decisionCmd.Flags().StringVar(&decisionNotes, "notes", "", "free-form reviewer notes")
	rootCmd.AddCommand(decisionCmd)
}
