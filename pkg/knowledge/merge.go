package knowledge

import (
	"slices"
	"strings"

	"github.com/agext/levenshtein"
)

// similarityThreshold is the Levenshtein similarity above which two names are
// treated as the same knowledge point.
const similarityThreshold = 0.9

// Merge combines the knowledge points of several documents. Points whose
// names match (see sameName) are collapsed into the first occurrence, which
// inherits missing descriptions and parents and accumulates sources.
func Merge(docs []DocumentResult) []KnowledgePoint {
	merged := []KnowledgePoint{}
	for _, doc := range docs {
		for _, kp := range doc.KnowledgePoints {
			idx := slices.IndexFunc(merged, func(m KnowledgePoint) bool {
				return sameName(m.Name, kp.Name)
			})
			if idx < 0 {
				kp.Sources = []string{doc.FilePath}
				merged = append(merged, kp)
				continue
			}

			m := &merged[idx]
			if m.Description == "" {
				m.Description = kp.Description
			}
			if m.Parent == "" {
				m.Parent = kp.Parent
			}
			if !slices.Contains(m.Sources, doc.FilePath) {
				m.Sources = append(m.Sources, doc.FilePath)
			}
		}
	}
	return merged
}

func sameName(a, b string) bool {
	a, b = canonicalName(a), canonicalName(b)
	if a == b {
		return true
	}
	return levenshtein.Similarity(a, b, nil) >= similarityThreshold
}

func canonicalName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
