package benchmarks

import (
	"encoding/json"
	"fmt"
)

// CatalogSchema is the schema the generated documents conform to
const CatalogSchema = "../internal/loader/testdata/catalog.yaml"

// GenerateCatalog generates a catalog document with the given number of
// controls. Every control has an id matching the id-shape pattern, so a
// generated document passes validation without findings.
func GenerateCatalog(controls int) []byte {
	list := make([]map[string]any, controls)
	refs := make([]string, 0, controls/10+1)
	for i := range list {
		id := fmt.Sprintf("ac-%d", i+1)
		list[i] = map[string]any{
			"id":     id,
			"status": "draft",
			"title":  fmt.Sprintf("Control %d", i+1),
			"weight": i%5 + 1,
		}
		if i%10 == 0 {
			refs = append(refs, id)
		}
	}

	doc := map[string]any{
		"catalog": map[string]any{
			"id":       "ct-1",
			"title":    "Generated",
			"refs":     refs,
			"controls": list,
		},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return data
}

// Expressions are representative Metapath expressions, keyed by name
var Expressions = map[string]string{
	"path":       "/catalog/control/@id",
	"predicate":  "/catalog/control[@status = 'draft' and weight > 2]",
	"arithmetic": "sum(/catalog/control/weight) div count(/catalog/control)",
	"strings":    "count(/catalog/control[matches(@id, '^ac-[0-9]+$') and string-length(title) > 8])",
	"descendant": "count(//title)",
}
