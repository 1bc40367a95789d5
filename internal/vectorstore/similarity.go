package vectorstore

import "math"

// CosineSimilarity returns the normalized dot product of a and b, in [-1, 1].
// Mismatched dimensions or a zero-norm vector yield 0, so a single bad corpus
// entry is excluded from ranking instead of aborting the scan.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
