package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineDistanceIdenticalIsZero(t *testing.T) {
	a := []float32{1, 0, 0}
	assert.InDelta(t, 0.0, float64(CosineDistance(a, a)), 1e-6)
}

func TestCosineDistanceOrthogonalIsOne(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	assert.InDelta(t, 1.0, float64(CosineDistance(a, b)), 1e-6)
}

func TestCosineDistanceOppositeIsTwo(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{-1, 0, 0}
	assert.InDelta(t, 2.0, float64(CosineDistance(a, b)), 1e-6)
}

func TestEuclideanDistance345Triangle(t *testing.T) {
	a := []float32{0, 0}
	b := []float32{3, 4}
	assert.InDelta(t, 5.0, float64(EuclideanDistance(a, b)), 1e-6)
}

func TestDotProductDistance(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 5, 6}
	// <a,b> = 4+10+18 = 32, distance = -32
	assert.InDelta(t, -32.0, float64(DotProductDistance(a, b)), 1e-5)
}

func TestDistanceTailLoopMatchesChunkedLoop(t *testing.T) {
	// 10 dims: 2 chunks of 4 plus a 2-element tail, exercises both loops.
	a := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	b := []float32{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
	assert.Greater(t, EuclideanDistance(a, b), float32(0))
	assert.NotPanics(t, func() { CosineDistance(a, b) })
	assert.NotPanics(t, func() { DotProductDistance(a, b) })
	// Whole-vector reference values: sum of squared diffs = 330,
	// <a,b> = 220, ||a||^2 = ||b||^2 = 385.
	assert.InDelta(t, 18.16590212, float64(EuclideanDistance(a, b)), 1e-4)
	assert.InDelta(t, 1-220.0/385.0, float64(CosineDistance(a, b)), 1e-5)
	assert.InDelta(t, -220.0, float64(DotProductDistance(a, b)), 1e-4)
}

func TestNormalizeProducesUnitVector(t *testing.T) {
	v := Normalize([]float32{3, 4, 0})
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(v[1]), 1e-6)
}

func TestNormalizeZeroVectorUnchanged(t *testing.T) {
	v := Normalize([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, v)
}

func TestNormalizeIdempotent(t *testing.T) {
	v := Normalize([]float32{3, 4, 0})
	v2 := Normalize(v)
	for i := range v {
		assert.InDelta(t, float64(v[i]), float64(v2[i]), 1e-6)
	}
}

func TestValidateFiniteRejectsNaNAndInf(t *testing.T) {
	assert.NoError(t, ValidateFinite([]float32{1, 2, 3}))
	assert.Error(t, ValidateFinite([]float32{1, float32(nanValue()), 3}))
	assert.Error(t, ValidateFinite([]float32{1, float32(math.Inf(1)), 3}))
	assert.Error(t, ValidateFinite([]float32{float32(math.Inf(-1)), 2, 3}))
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}
