package catalog

import (
	"crypto/md5"
	"math"
	"sort"
	"strconv"
	"strings"
)

// DefaultEmbeddingDim is the vector size of the built-in hash embedding.
const DefaultEmbeddingDim = 8

// SimilarityOracle scores how related two texts are. Higher is more similar.
type SimilarityOracle interface {
	Similarity(query, text string) float64
}

// HashEmbedding is a deterministic stand-in for a learned embedding model.
// Texts are embedded from the MD5 digest of their lowercase form and compared
// with cosine similarity.
type HashEmbedding struct {
	Dim int
}

// Embed returns the vector for text.
func (h HashEmbedding) Embed(text string) []float64 {
	dim := h.Dim
	if dim <= 0 {
		dim = DefaultEmbeddingDim
	}
	sum := md5.Sum([]byte(strings.ToLower(text)))
	vec := make([]float64, dim)
	for i := range vec {
		vec[i] = float64(sum[i%len(sum)]) / 255.0
	}
	return vec
}

func (h HashEmbedding) Similarity(query, text string) float64 {
	return cosine(h.Embed(query), h.Embed(text))
}

func cosine(a, b []float64) float64 {
	var dot, magA, magB float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// Match is an item ranked by free-text similarity.
type Match struct {
	Item       Item    `json:"item"`
	Similarity float64 `json:"similarity"`
}

// SearchSimilar ranks every item against query and returns the best topK.
// Ties keep catalog order.
func (c *Catalog) SearchSimilar(query string, topK int) []Match {
	if topK <= 0 {
		return nil
	}

	matches := make([]Match, 0, len(c.items))
	for _, item := range c.items {
		matches = append(matches, Match{
			Item:       item,
			Similarity: c.oracle.Similarity(query, describe(item)),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// describe renders the text an item is embedded from. Spec keys are sorted so
// the text is stable.
func describe(item Item) string {
	var b strings.Builder
	b.WriteString(item.Component)
	b.WriteByte(' ')
	b.WriteString(item.Vendor)
	b.WriteByte(' ')
	b.WriteString(item.ID)

	keys := make([]string, 0, len(item.Specs))
	for k := range item.Specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(item.Specs[k], 'f', -1, 64))
	}
	return b.String()
}
