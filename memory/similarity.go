package memory

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// termVector counts lower-cased word tokens.
func termVector(text string) map[string]float64 {
	vec := make(map[string]float64)
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		vec[tok]++
	}
	return vec
}

// cosineSimilarity 计算两个词频向量的余弦相似度
func cosineSimilarity(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for term, va := range a {
		normA += va * va
		if vb, ok := b[term]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		normB += vb * vb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// rank scores entries against query and keeps the top k. Ties and empty
// queries fall back to newest first.
func rank(entries []Entry, query string, k int) []Match {
	if k <= 0 || len(entries) == 0 {
		return []Match{}
	}
	qv := termVector(query)
	matches := make([]Match, 0, len(entries))
	for _, e := range entries {
		m := Match{Entry: e}
		if len(qv) > 0 {
			m.Score = cosineSimilarity(qv, termVector(e.Text))
		}
		matches = append(matches, m)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Timestamp.After(matches[j].Timestamp)
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
