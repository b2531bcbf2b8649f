package featurizer

import (
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// EmbeddingDims is the number of leading embedding dimensions emitted as
// features. Both extraction paths produce the same text_emb_* names, so
// downstream consumers are agnostic to which one ran.
const EmbeddingDims = 10

// Embedder turns free text into a fixed-length dense vector.
type Embedder interface {
	Embed(text string) []float64
}

// HashingEmbedder is a deterministic token-hashing embedder: every token is
// hashed into a fixed-size vector with alternating sign, and the result is
// L2-normalized. No model download, stable across runs.
type HashingEmbedder struct {
	dims int
}

func NewHashingEmbedder() *HashingEmbedder {
	return &HashingEmbedder{dims: 64}
}

func (h *HashingEmbedder) Embed(text string) []float64 {
	vector := make([]float64, h.dims)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		hasher := fnv.New64a()
		hasher.Write([]byte(token))
		sum := hasher.Sum64()
		idx := int(sum % uint64(h.dims))
		sign := 1.0
		if (sum>>32)&1 == 1 {
			sign = -1.0
		}
		vector[idx] += sign
	}

	var norm float64
	for _, v := range vector {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vector {
			vector[i] /= norm
		}
	}
	return vector
}

// NoopEmbedder is the fallback when no text model is configured: it emits a
// zero vector of the same shape, keeping feature names identical.
type NoopEmbedder struct{}

func (NoopEmbedder) Embed(text string) []float64 {
	return make([]float64, 64)
}

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

func (x *Extractor) extractText(reports []map[string]interface{}) map[string]interface{} {
	var builder strings.Builder
	for _, report := range reports {
		if conclusion := getString(report["conclusion"]); conclusion != "" {
			builder.WriteString(" ")
			builder.WriteString(conclusion)
		}
	}
	text := builder.String()
	if strings.TrimSpace(text) == "" {
		return nil
	}

	features := make(map[string]interface{})

	for category, count := range x.catalog.CategoryHits(text) {
		features["concept_"+category] = count
	}

	embedding := x.embedder.Embed(text)
	for i := 0; i < EmbeddingDims; i++ {
		value := 0.0
		if i < len(embedding) {
			value = embedding[i]
		}
		features[fmt.Sprintf("text_emb_%d", i)] = value
	}

	features["text_length"] = len(text)
	features["word_count"] = len(strings.Fields(text))
	features["sentence_count"] = len(sentenceSplit.Split(text, -1))

	return features
}
