package persist

// Well-known keys within a single index's KV-store directory
// (spec.md §6.1). This engine uses the string-id variant: per-vector
// keys are a fixed prefix plus the UTF-8 id bytes, not a big-endian
// numeric id, since client-assigned ids are opaque strings (spec.md §3).
const (
	metadataKey     = "__vector_index_metadata__"
	hnswIndexKey    = "__hnsw_index__"
	vectorPrefix    = "__vector__"
	vectorMetaKeyPx = "__vector_meta__"
)

// IndexVersion gates compatibility of the persisted metadata/blob
// format; bumped whenever the on-disk shape changes incompatibly.
const IndexVersion = 1

func vectorKey(id string) []byte {
	return []byte(vectorPrefix + id)
}

func vectorMetaKey(id string) []byte {
	return []byte(vectorMetaKeyPx + id)
}

func vectorIDFromKey(key []byte) string {
	return string(key[len(vectorPrefix):])
}
