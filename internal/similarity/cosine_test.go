// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DSCC Contributors

package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"Identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"Opposite", []float32{1, 0, 0}, []float32{-1, 0, 0}, -1},
		{"Orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"ScaledIdentical", []float32{2, 0, 0}, []float32{5, 0, 0}, 1},
		{"MismatchedLength", []float32{1, 2}, []float32{1, 2, 3}, 0},
		{"EmptyA", []float32{}, []float32{1}, 0},
		{"EmptyB", []float32{1}, []float32{}, 0},
		{"ZeroNormA", []float32{0, 0}, []float32{1, 1}, 0},
		{"ZeroNormB", []float32{1, 1}, []float32{0, 0}, 0},
		{"Basis8Distinct", basis(8, 0), basis(8, 1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			assert.InDelta(t, tt.expected, got, 1e-5)
			assert.GreaterOrEqual(t, got, float32(-1))
			assert.LessOrEqual(t, got, float32(1))
		})
	}
}

func TestCosineSymmetric(t *testing.T) {
	a := []float32{0.3, 0.7, -0.2, 0.5}
	b := []float32{0.1, -0.4, 0.6, 0.2}
	assert.InDelta(t, Cosine(a, b), Cosine(b, a), 1e-6)
}

func TestCosineSelfIsOne(t *testing.T) {
	v := []float32{3, -1, 4, 1, 5}
	assert.InDelta(t, float32(1), Cosine(v, v), 1e-5)
}

func TestCosineNegatedIsMinusOne(t *testing.T) {
	v := []float32{3, -1, 4, 1, 5}
	neg := make([]float32, len(v))
	for i, x := range v {
		neg[i] = -x
	}
	assert.InDelta(t, float32(-1), Cosine(v, neg), 1e-5)
}

func basis(dims, index int) []float32 {
	v := make([]float32, dims)
	v[index] = 1
	return v
}
