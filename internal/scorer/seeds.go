package scorer

import (
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// seedExpansionCap bounds the total candidate list regardless of seed
// file size.
const seedExpansionCap = 400

// SeedFile is the YAML shape of a seed-keyword list.
type SeedFile struct {
	Seeds []string `yaml:"seeds"`
}

// LoadSeeds reads seed keywords from a YAML file.
func LoadSeeds(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "scorer: read seed file %s", path)
	}

	var file SeedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, eris.Wrapf(err, "scorer: parse seed file %s", path)
	}
	if len(file.Seeds) == 0 {
		return nil, eris.Errorf("scorer: seed file %s contains no seeds", path)
	}
	return file.Seeds, nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeKeyword lowercases and collapses whitespace.
func NormalizeKeyword(kw string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(kw)), " ")
}

// suffix/prefix variants applied to each seed keyword.
var expansionPatterns = []func(string) string{
	func(kw string) string { return kw },
	func(kw string) string { return kw + " printable" },
	func(kw string) string { return "printable " + kw },
	func(kw string) string { return kw + " template" },
	func(kw string) string { return kw + " instant download" },
	func(kw string) string { return "digital " + kw },
	func(kw string) string { return kw + " pdf" },
	func(kw string) string { return kw + " svg" },
	func(kw string) string { return kw + " editable" },
	func(kw string) string { return "canva " + kw },
	func(kw string) string { return kw + " planner" },
	func(kw string) string { return kw + " tracker" },
	func(kw string) string { return kw + " journal" },
	func(kw string) string { return kw + " checklist" },
	func(kw string) string { return kw + " bundle" },
	func(kw string) string { return kw + " pack" },
	func(kw string) string { return kw + " kit" },
	func(kw string) string { return kw + " set" },
	func(kw string) string { return kw + " worksheet" },
	func(kw string) string { return "digital download " + kw },
}

// ExpandSeeds generates deduplicated keyword variants from seed
// keywords, capped at seedExpansionCap candidates.
func ExpandSeeds(seeds []string) []string {
	seen := make(map[string]struct{})
	var out []string

	for _, seed := range seeds {
		kw := NormalizeKeyword(seed)
		if kw == "" {
			continue
		}
		for _, pattern := range expansionPatterns {
			candidate := pattern(kw)
			if _, dup := seen[candidate]; dup {
				continue
			}
			seen[candidate] = struct{}{}
			out = append(out, candidate)
			if len(out) >= seedExpansionCap {
				return out
			}
		}
	}
	return out
}
