package method

import (
	"math"
)

// Embedder turns an image file into a fixed-length embedding vector. The
// model behind it is opaque to the engine; vectors are consumed as-is.
type Embedder interface {
	Embed(path string) ([]float32, error)
}

// EmbeddingVector is an L2-normalized embedding, so cosine similarity
// reduces to a dot product.
type EmbeddingVector []float32

func (EmbeddingVector) signature() {}

// siameseMethod matches images whose embedding cosine similarity reaches
// minCosine. Catches semantic duplicates the pixel methods miss.
type siameseMethod struct {
	embedder  Embedder
	minCosine float64
}

func (siameseMethod) Name() string { return Siamese }

func (m siameseMethod) Extract(path string) (Signature, error) {
	vec, err := m.embedder.Embed(path)
	if err != nil {
		return nil, err
	}
	return EmbeddingVector(normalize(vec)), nil
}

func (m siameseMethod) Matches(a, b Signature) bool {
	return dot(a.(EmbeddingVector), b.(EmbeddingVector)) >= m.minCosine
}

func dot(a, b EmbeddingVector) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
