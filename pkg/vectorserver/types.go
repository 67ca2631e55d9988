package vectorserver

import "encoding/json"

// createIndexRequest is the POST /indexes/{name} body (spec.md §6.2).
// M and EfConstruction are raw HNSW knobs, applied on top of whichever
// preset HNSWPreset selects (an ambient convenience this engine adds
// beyond the spec's literal table: most callers want a named preset,
// not to hand-tune M themselves).
type createIndexRequest struct {
	Dimension      int    `json:"dimension"`
	Metric         string `json:"metric"`
	M              int    `json:"m,omitempty"`
	EfConstruction int    `json:"ef_construction,omitempty"`
	ShardCount     int    `json:"shard_count,omitempty"`
	HNSWPreset     string `json:"hnsw_preset,omitempty"`
}

type createIndexResponse struct {
	Message   string `json:"message"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
}

type deleteIndexResponse struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// indexSummary is one row of the GET /indexes response.
type indexSummary struct {
	Name       string `json:"name"`
	Dimension  int    `json:"dimension"`
	Metric     string `json:"metric"`
	NumVectors int    `json:"num_vectors"`
}

type listIndexesResponse struct {
	Indexes []indexSummary `json:"indexes"`
}

// vectorRequest is the POST /indexes/{name}/vectors body, and one
// element of the POST .../vectors/batch body. ID is optional on
// insert — the server assigns one if omitted, since spec.md §3
// describes ids as client-assigned opaque strings but §6.2's HTTP
// table allows inserting without supplying one.
type vectorRequest struct {
	ID       string          `json:"id,omitempty"`
	Vector   []float32       `json:"vector"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type insertVectorResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type batchInsertRequest struct {
	Vectors []vectorRequest `json:"vectors"`
}

// batchResultItem reports one item's outcome: Error is empty on success.
type batchResultItem struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

type batchInsertResponse struct {
	Total    int               `json:"total"`
	Inserted int               `json:"inserted"`
	Failed   int               `json:"failed"`
	Results  []batchResultItem `json:"results"`
}

type searchRequest struct {
	Vector []float32 `json:"vector"`
	K      int       `json:"k,omitempty"`
}

// searchResultItem mirrors spec.md §6.2: Distance is the metric's raw
// (smaller-is-better) output; Score = 1-Distance is the convenience
// view for cosine callers.
type searchResultItem struct {
	ID       string          `json:"id"`
	Distance float32         `json:"distance"`
	Score    float32         `json:"score"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type searchResponse struct {
	Results []searchResultItem `json:"results"`
}

type vectorResponse struct {
	ID       string          `json:"id"`
	Vector   []float32       `json:"vector"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type deleteVectorResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type statsResponse struct {
	NumVectors           int     `json:"num_vectors"`
	NumActive            int     `json:"num_active"`
	NumDeleted           int     `json:"num_deleted"`
	NumNodes             int     `json:"num_nodes"`
	Dimension            int     `json:"dimension"`
	EntryPointLevel      int     `json:"entry_point_level"`
	ConnectionsPerLayer  []int   `json:"connections_per_layer"`
	DeletionRatioPercent float64 `json:"deletion_ratio_percent"`
	Recommendation       string  `json:"recommendation"`
}
