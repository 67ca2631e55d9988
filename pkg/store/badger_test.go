package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerKVPutGetDelete(t *testing.T) {
	kv, err := NewBadgerKVInMemory()
	require.NoError(t, err)
	defer kv.Close()

	require.NoError(t, kv.Put([]byte("k1"), []byte("v1")))

	val, found, err := kv.Get([]byte("k1"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("v1"), val)

	require.NoError(t, kv.Delete([]byte("k1")))
	_, found, err = kv.Get([]byte("k1"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBadgerKVGetEmptyValueIsFound(t *testing.T) {
	kv, err := NewBadgerKVInMemory()
	require.NoError(t, err)
	defer kv.Close()

	require.NoError(t, kv.Put([]byte("k1"), []byte{}))

	val, found, err := kv.Get([]byte("k1"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, val, 0)
}

func TestBadgerKVGetMissingKeyNotFound(t *testing.T) {
	kv, err := NewBadgerKVInMemory()
	require.NoError(t, err)
	defer kv.Close()

	_, found, err := kv.Get([]byte("missing"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBadgerKVListKeysByPrefix(t *testing.T) {
	kv, err := NewBadgerKVInMemory()
	require.NoError(t, err)
	defer kv.Close()

	require.NoError(t, kv.Put([]byte("__vector__a"), []byte("1")))
	require.NoError(t, kv.Put([]byte("__vector__b"), []byte("2")))
	require.NoError(t, kv.Put([]byte("__vector_meta__a"), []byte("m")))

	keys, err := kv.ListKeys([]byte("__vector__"))
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}
