package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/market-scan/internal/scorer"
	"github.com/sells-group/market-scan/internal/signals"
	"github.com/sells-group/market-scan/pkg/etsy"
)

var (
	scoreSeedFile   string
	scoreSampleSize int
	scoreLimit      int
	scoreJSON       bool
)

var scoreCmd = &cobra.Command{
	Use:   "score [keyword...]",
	Short: "Score keyword candidates by market opportunity",
	Long:  "Expands seed keywords into candidates, samples listings for each, and ranks them by a composite opportunity score. Keywords may be given as arguments or expanded from a seed file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		candidates := args
		if scoreSeedFile != "" {
			seeds, err := scorer.LoadSeeds(scoreSeedFile)
			if err != nil {
				return err
			}
			candidates = scorer.ExpandSeeds(seeds)
		}
		if len(candidates) == 0 {
			return eris.New("no keywords to score: pass keywords or --seeds")
		}
		if scoreLimit > 0 && len(candidates) > scoreLimit {
			candidates = candidates[:scoreLimit]
		}

		scores, err := scoreCandidates(ctx, initEtsy(), candidates, scoreSampleSize)
		if err != nil {
			return err
		}

		sort.Slice(scores, func(i, j int) bool {
			return scores[i].Composite > scores[j].Composite
		})

		if scoreJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(scores)
		}

		formatScores(os.Stdout, scores)
		return nil
	},
}

func scoreCandidates(ctx context.Context, client etsy.Client, candidates []string, sampleSize int) ([]scorer.CandidateScore, error) {
	weights := scorer.DefaultWeights()
	scores := make([]scorer.CandidateScore, 0, len(candidates))

	for _, kw := range candidates {
		result, err := client.SearchListings(ctx, kw, sampleSize, 0)
		if err != nil {
			return nil, eris.Wrapf(err, "score: search %q", kw)
		}
		if len(result.Listings) == 0 {
			zap.L().Debug("score: no listings, skipping", zap.String("keyword", kw))
			continue
		}

		snapshot, err := signals.Compute(ctx, result.Listings, kw, signals.Options{BucketWidth: cfg.Signals.BucketWidth})
		if err != nil {
			return nil, eris.Wrapf(err, "score: compute signals %q", kw)
		}

		scores = append(scores, scorer.ScoreCandidate(snapshot, weights))
	}

	return scores, nil
}

func formatScores(w io.Writer, scores []scorer.CandidateScore) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEYWORD\tSCORE\tTIER\tLISTINGS\tSIMILARITY\tTOP3\tSPREAD")
	for _, s := range scores {
		fmt.Fprintf(tw, "%s\t%.1f\t%s\t%d\t%.0f\t%.0f\t%.0f\n",
			s.Keyword, s.Composite, s.Tier, s.ListingCount,
			s.Subscores.TitleSameness, s.Subscores.Dominance, s.Subscores.PriceBands)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	scoreCmd.Flags().StringVar(&scoreSeedFile, "seeds", "", "YAML seed-keyword file to expand")
	scoreCmd.Flags().IntVar(&scoreSampleSize, "sample-size", 25, "listings to sample per candidate")
	scoreCmd.Flags().IntVar(&scoreLimit, "limit", 0, "max candidates to score (0 = all)")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "print scores as JSON")
	rootCmd.AddCommand(scoreCmd)
}
