package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDBounds(t *testing.T) {
	assert.NoError(t, ID("a"))
	assert.NoError(t, ID("valid_id-123"))
	assert.Error(t, ID(""))
	assert.Error(t, ID(strings.Repeat("a", 257)))
	assert.Error(t, ID("has space"))
	assert.Error(t, ID("has/slash"))
}

func TestVectorBounds(t *testing.T) {
	assert.NoError(t, Vector([]float32{1, 2, 3}))
	assert.Error(t, Vector([]float32{}))
	assert.Error(t, Vector(make([]float32, 4097)))
}

func TestKBounds(t *testing.T) {
	assert.NoError(t, K(1))
	assert.NoError(t, K(1000))
	assert.Error(t, K(0))
	assert.Error(t, K(1001))
}

func TestBatchSizeBounds(t *testing.T) {
	assert.NoError(t, BatchSize(100))
	assert.Error(t, BatchSize(101))
}

func TestMetadataBounds(t *testing.T) {
	assert.NoError(t, Metadata(make([]byte, 32*1024)))
	assert.Error(t, Metadata(make([]byte, 32*1024+1)))
}

func TestDimensionMismatch(t *testing.T) {
	assert.NoError(t, Dimension(3, 3))
	assert.Error(t, Dimension(2, 3))
}
