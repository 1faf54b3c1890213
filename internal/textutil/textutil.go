// Package textutil holds the small set of helpers shared by every
// search/repository backend — tokenization and vector similarity —
// so backends share utilities rather than implementation (spec.md
// §9: "share no implementation between backends except helper
// utilities").
package textutil

import (
	"math"
	"regexp"
	"strings"
)

var tokenRe = regexp.MustCompile(`[a-zA-Z0-9]+`)

// Tokenize lowercases and splits text into alphanumeric tokens, the
// same coarse tokenization the teacher's Qdrant client uses when
// deriving a stable collection name from free text
// (internal/mcp/storage/qdrant_client.go's GenerateCollectionName).
func Tokenize(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(text), -1)
}

// TextBoostScore returns a lexical relevance boost in [0,1]: the
// fraction of query tokens present in the document text. The search
// module's hybrid ranking does not call it; it uses its own weighted
// per-field boost (search.computeTextBoost).
func TextBoostScore(queryTokens []string, docText string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	docTokens := make(map[string]bool)
	for _, tok := range Tokenize(docText) {
		docTokens[tok] = true
	}
	hits := 0
	for _, tok := range queryTokens {
		if docTokens[tok] {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTokens))
}

// CosineSimilarity computes the cosine of the angle between a and b,
// used by the client-side vector-search fallback (spec.md §4.1:
// DocumentDB/MongoDB-CE backends without native $vectorSearch).
// Returns 0 for mismatched or zero-length vectors rather than erroring,
// since a malformed stored embedding should degrade a ranking, not
// abort a search.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// EuclideanDistance is available for mongodb_vector_similarity_metric
// = "euclidean" fallback ranking.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// DotProduct is available for mongodb_vector_similarity_metric =
// "dotProduct" fallback ranking.
func DotProduct(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
