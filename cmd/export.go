package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/market-scan/internal/export"
)

var (
	exportFormat string
	exportDir    string
)

var exportCmd = &cobra.Command{
	Use:   "export <scan-id>",
	Short: "Export a scan's brief as markdown or its listings as xlsx",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sc, err := st.GetScan(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "export")
		}

		signals, err := st.GetSignals(ctx, sc.ID)
		if err != nil {
			return eris.Wrap(err, "load signals")
		}
		if signals == nil {
			return eris.Errorf("no signals recorded for scan %s", sc.ID)
		}

		now := time.Now().UTC()

		switch exportFormat {
		case "md", "markdown":
			rec, err := st.GetLatestBrief(ctx, sc.ID)
			if err != nil {
				return eris.Wrap(err, "load brief")
			}
			if rec == nil || rec.Brief == nil {
				return eris.Errorf("no brief found for scan %s", sc.ID)
			}

			path := filepath.Join(exportDir, export.MarkdownFilename(sc.Keyword, now))
			md := export.BriefMarkdown(rec.Brief, signals)
			if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
				return eris.Wrap(err, "write markdown")
			}
			fmt.Println(path)
			return nil

		case "xlsx":
			listings, err := st.GetScanListings(ctx, sc.ID)
			if err != nil {
				return eris.Wrap(err, "load listings")
			}
			if len(listings) == 0 {
				return eris.Errorf("no listings recorded for scan %s", sc.ID)
			}

			path := filepath.Join(exportDir, export.XLSXFilename(sc.Keyword, now))
			f, err := os.Create(path)
			if err != nil {
				return eris.Wrap(err, "create workbook file")
			}
			defer f.Close() //nolint:errcheck

			if err := export.ListingWorkbook(f, listings, signals); err != nil {
				return err
			}
			fmt.Println(path)
			return nil

		default:
			return eris.Errorf("unsupported format %q: use md or xlsx", exportFormat)
		}
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "md", "export format: md or xlsx")
	exportCmd.Flags().StringVar(&exportDir, "out", ".", "output directory")
	rootCmd.AddCommand(exportCmd)
}
