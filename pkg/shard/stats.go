package shard

// Stats mirrors ShardStats from the original's sharding module — an
// operator-facing view of a single shard's load, surfaced by the
// supplemental /indexes/{name}/shards endpoint (SPEC_FULL.md
// [MODULE: httpapi]).
type Stats struct {
	ShardName         string  `json:"shard_name"`
	DocumentCount     int     `json:"document_count"`
	VectorCount       int     `json:"vector_count"`
	NumDeleted        int     `json:"num_deleted"`
	StorageBytes      int64   `json:"storage_bytes"`
	RequestsPerSecond float64 `json:"requests_per_second"`
}
