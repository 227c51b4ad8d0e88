package qa

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/sells-group/market-scan/internal/model"
)

// stringField is one string-valued field found in a brief, addressed by a
// dotted/indexed path such as "differentiators[2].claim".
type stringField struct {
	Path  string
	Value string
}

// collectStrings walks every string-valued field of the brief. The brief is
// flattened through its JSON form so gates see the same field names the
// generator was prompted with.
func collectStrings(brief *model.DifferentiationBrief) []stringField {
	raw, err := json.Marshal(brief)
	if err != nil {
		return nil
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil
	}

	var fields []stringField
	walkValue(tree, "", &fields)
	sort.Slice(fields, func(i, j int) bool { return fields[i].Path < fields[j].Path })
	return fields
}

func walkValue(v any, path string, out *[]stringField) {
	switch val := v.(type) {
	case string:
		*out = append(*out, stringField{Path: path, Value: val})
	case []any:
		for i, item := range val {
			walkValue(item, fmt.Sprintf("%s[%d]", path, i), out)
		}
	case map[string]any:
		for key, item := range val {
			child := key
			if path != "" {
				child = path + "." + key
			}
			walkValue(item, child, out)
		}
	}
}
