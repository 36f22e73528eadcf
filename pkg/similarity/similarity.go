// Package similarity implements cosine similarity and brute-force top-K ranking
// over in-memory candidate vectors.
package similarity

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"suvidha-go/pkg/apperr"
)

// DefaultTopK is used when a caller asks for a non-positive number of results.
const DefaultTopK = 5

// Cosine returns the cosine similarity of a and b in [-1, 1].
// A zero-norm vector yields 0 rather than NaN.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, apperr.New(apperr.CodeDimensionMismatch,
			fmt.Sprintf("vector dimensions do not match: %d != %d", len(a), len(b)))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// 浮点误差可能让结果略微越界
	return math.Max(-1, math.Min(1, score)), nil
}

// Candidate is an item paired with its embedding. A nil Vector marks the item
// as unusable; it is skipped during ranking.
type Candidate[T any] struct {
	Item   T
	Vector []float64
}

// Scored is a ranked item and its similarity to the query.
type Scored[T any] struct {
	Item  T
	Score float64
}

// Rank scores every usable candidate against query and returns at most topK
// results, highest score first. Candidates whose vector is missing or whose
// dimension differs from the query are excluded. Equal scores keep input order.
func Rank[T any](query []float64, candidates []Candidate[T], topK int) []Scored[T] {
	if topK <= 0 {
		topK = DefaultTopK
	}

	scored := make([]Scored[T], 0, len(candidates))
	for _, c := range candidates {
		if len(c.Vector) == 0 || len(c.Vector) != len(query) {
			continue
		}
		score, err := Cosine(query, c.Vector)
		if err != nil || math.IsNaN(score) {
			continue
		}
		scored = append(scored, Scored[T]{Item: c.Item, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

// Encode serialises a vector as a JSON array of numbers.
func Encode(v []float64) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode vector: %w", err)
	}
	return string(b), nil
}

// Decode parses a JSON array of numbers. Empty input decodes to nil.
func Decode(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	var v []float64
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("decode vector: %w", err)
	}
	return v, nil
}
