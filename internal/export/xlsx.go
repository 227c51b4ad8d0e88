package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/market-scan/internal/model"
)

// ListingWorkbook writes an xlsx workbook with the sampled listings and
// a signal summary sheet.
func ListingWorkbook(w io.Writer, listings []model.Listing, signals *model.SignalsResult) error {
	f := xlsx.NewFile()

	if err := addListingSheet(f, listings); err != nil {
		return err
	}
	if signals != nil {
		if err := addSignalSheet(f, signals); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}

func addListingSheet(f *xlsx.File, listings []model.Listing) error {
	sheet, err := f.AddSheet("Listings")
	if err != nil {
		return eris.Wrap(err, "export: add listings sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Listing ID", "Shop ID", "Title", "Price", "Currency", "Quantity", "Favorers", "State", "Tags", "URL"} {
		header.AddCell().Value = h
	}

	for _, l := range listings {
		row := sheet.AddRow()
		row.AddCell().SetInt64(l.ListingID)
		row.AddCell().SetInt64(l.ShopID)
		row.AddCell().Value = l.Title
		row.AddCell().SetFloat(l.Price.Value())
		row.AddCell().Value = l.Price.CurrencyCode
		row.AddCell().SetInt(l.Quantity)
		row.AddCell().SetInt(l.Favorers)
		row.AddCell().Value = string(l.State)
		row.AddCell().Value = strings.Join(l.Tags, ", ")
		row.AddCell().Value = l.URL
	}
	return nil
}

func addSignalSheet(f *xlsx.File, signals *model.SignalsResult) error {
	sheet, err := f.AddSheet("Signals")
	if err != nil {
		return eris.Wrap(err, "export: add signals sheet")
	}

	add := func(name, value string) {
		row := sheet.AddRow()
		row.AddCell().Value = name
		row.AddCell().Value = value
	}

	add("Keyword", signals.Keyword)
	add("Listing count", fmt.Sprintf("%d", signals.ListingCount))
	add("Avg title similarity", fmt.Sprintf("%.3f", signals.TitleSameness.AverageSimilarity))
	add("Title clusters", fmt.Sprintf("%d", signals.TitleSameness.ClusterCount))
	add("Top-3 shop share", fmt.Sprintf("%.1f%%", signals.Dominance.Top3SharePercent))
	add("Concentrated", fmt.Sprintf("%t", signals.Dominance.IsConcentrated))
	add("Price min", fmt.Sprintf("%.2f", signals.PriceBands.Min))
	add("Price p25", fmt.Sprintf("%.2f", signals.PriceBands.P25))
	add("Price median", fmt.Sprintf("%.2f", signals.PriceBands.Median))
	add("Price p75", fmt.Sprintf("%.2f", signals.PriceBands.P75))
	add("Price max", fmt.Sprintf("%.2f", signals.PriceBands.Max))
	add("Mode price bucket", signals.PriceBands.ModeBucket)
	add("Distinct format types", fmt.Sprintf("%d", signals.FormatSignals.DistinctTypeCount))
	add("Instant download count", fmt.Sprintf("%d", signals.FormatSignals.InstantDownload))
	add("Avg bundle depth", fmt.Sprintf("%.1f", signals.BundleDepth.AvgIncludesCount))
	add("Max bundle depth", fmt.Sprintf("%d", signals.BundleDepth.MaxIncludesCount))
	return nil
}
