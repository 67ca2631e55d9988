package persist

import (
	"encoding/json"

	"github.com/quartzvec/vectorengine/pkg/hnsw"
	"github.com/quartzvec/vectorengine/pkg/vector"
)

// indexMetadata is the serialized form of __vector_index_metadata__: the
// dimension, metric, and build config an index was created with, so a
// later create_or_open call can detect a mismatch (spec.md §6.1, §4.5).
type indexMetadata struct {
	Dimension int          `json:"dimension"`
	Metric    string       `json:"metric"`
	Config    hnsw.Config  `json:"hnsw_config"`
	Version   int          `json:"version"`
}

func encodeMetadata(dimension int, metric vector.Metric, config hnsw.Config) ([]byte, error) {
	return json.Marshal(indexMetadata{
		Dimension: dimension,
		Metric:    metric.String(),
		Config:    config,
		Version:   IndexVersion,
	})
}

func decodeMetadata(data []byte) (indexMetadata, error) {
	var m indexMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return indexMetadata{}, err
	}
	return m, nil
}

// vectorEntry is the serialized form of a `__vector__`+id value.
type vectorEntry struct {
	Vector  []float32 `json:"vector"`
	Deleted bool      `json:"deleted"`
}
