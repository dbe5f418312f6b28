package ml

import (
	"errors"

	"gonum.org/v1/gonum/floats"
)

// SparseVector holds the non-zero entries of a feature vector, indices ascending.
type SparseVector struct {
	Indices []int     `json:"indices"`
	Values  []float64 `json:"values"`
}

func (v SparseVector) IsZero() bool {
	return len(v.Indices) == 0
}

// Dot multiplies v with a dense weight row. Indices outside the row are ignored.
func (v SparseVector) Dot(dense []float64) float64 {
	sum := 0.0
	for i, idx := range v.Indices {
		if idx < len(dense) {
			sum += dense[idx] * v.Values[i]
		}
	}
	return sum
}

// MaxIndex returns the largest feature index, or -1 for the zero vector.
func (v SparseVector) MaxIndex() int {
	if len(v.Indices) == 0 {
		return -1
	}
	return v.Indices[len(v.Indices)-1]
}

// Dense expands v into a slice of length dim.
func (v SparseVector) Dense(dim int) ([]float64, error) {
	if v.MaxIndex() >= dim {
		return nil, errors.New("feature index out of range")
	}
	dense := make([]float64, dim)
	for i, idx := range v.Indices {
		dense[idx] = v.Values[i]
	}
	return dense, nil
}

func normalizeL2(values []float64) {
	if len(values) == 0 {
		return
	}
	norm := floats.Norm(values, 2)
	if norm == 0 {
		return
	}
	floats.Scale(1/norm, values)
}
