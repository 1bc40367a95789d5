package embedding

import (
	"context"
	"errors"
	"math"
)

// MinTextLength is the shortest input a provider will embed. Shorter inputs
// produce degenerate vectors and are declined instead.
const MinTextLength = 3

// ErrTextTooShort is returned when the input is below MinTextLength; callers
// skip the input rather than submit it.
var ErrTextTooShort = errors.New("text too short to embed")

// Embedder converts text into a fixed-dimension, L2-normalized vector. One
// instance is constructed per process and shared by all callers.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Dimension() int
	ModelID() string
}

// Normalize scales v to unit L2 norm in place. A zero vector is left as is.
func Normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	inv := 1.0 / math.Sqrt(sum)
	for i := range v {
		v[i] *= inv
	}
}
