package signals

import (
	"regexp"
	"strings"

	"github.com/sells-group/market-scan/internal/model"
)

// Format category patterns run against the concatenated title + tags of
// each listing. Word-boundary anchored, case-insensitive.
var (
	reEditable        = regexp.MustCompile(`(?i)\beditable\b`)
	reCanva           = regexp.MustCompile(`(?i)\bcanva\b`)
	reGoogleSheets    = regexp.MustCompile(`(?i)google\s+sheets?\b`)
	reNotion          = regexp.MustCompile(`(?i)\bnotion\b`)
	rePDF             = regexp.MustCompile(`(?i)\bpdf\b`)
	reBundleKit       = regexp.MustCompile(`(?i)\b(bundle|kit|system|collection|set)\b`)
	reInstantDownload = regexp.MustCompile(`(?i)instant\s+download`)
)

// ComputeFormatSignals tallies how many listings advertise each delivery
// format and how many distinct format categories appear at all.
func ComputeFormatSignals(listings []model.Listing) model.FormatSignals {
	var fs model.FormatSignals
	for _, l := range listings {
		text := l.Title
		if len(l.Tags) > 0 {
			text += " " + strings.Join(l.Tags, " ")
		}
		if reEditable.MatchString(text) {
			fs.Editable++
		}
		if reCanva.MatchString(text) {
			fs.Canva++
		}
		if reGoogleSheets.MatchString(text) {
			fs.GoogleSheets++
		}
		if reNotion.MatchString(text) {
			fs.Notion++
		}
		if rePDF.MatchString(text) {
			fs.PDF++
		}
		if reBundleKit.MatchString(text) {
			fs.BundleKitSystem++
		}
		if reInstantDownload.MatchString(text) {
			fs.InstantDownload++
		}
	}

	for _, n := range []int{fs.Editable, fs.Canva, fs.GoogleSheets, fs.Notion, fs.PDF, fs.BundleKitSystem, fs.InstantDownload} {
		if n > 0 {
			fs.DistinctTypeCount++
		}
	}
	return fs
}
