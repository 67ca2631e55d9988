package vectorserver

import (
	"encoding/json"
	"net/http"

	"github.com/quartzvec/vectorengine/pkg/hnsw"
	"github.com/quartzvec/vectorengine/pkg/indexmgr"
	"github.com/quartzvec/vectorengine/pkg/validate"
	"github.com/quartzvec/vectorengine/pkg/vector"
	"github.com/quartzvec/vectorengine/pkg/vectorerr"
)

// defaultSearchK is the k used when a search request omits it
// (spec.md §6.2: "k?=10").
const defaultSearchK = 10

func (s *Server) handleListIndexes(w http.ResponseWriter, r *http.Request) {
	infos := s.mgr.List()
	out := make([]indexSummary, 0, len(infos))
	for _, in := range infos {
		out = append(out, indexSummary{Name: in.Name, Dimension: in.Dimension, Metric: in.Metric.String(), NumVectors: in.NumVectors})
	}
	writeJSON(w, http.StatusOK, listIndexesResponse{Indexes: out})
}

func (s *Server) handleCreateIndex(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req createIndexRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	metric, ok := vector.ParseMetric(req.Metric)
	if !ok {
		writeError(w, http.StatusBadRequest, "metric must be one of cosine, euclidean, dot_product")
		return
	}
	if req.Dimension < validate.MinDimension || req.Dimension > validate.MaxDimension {
		writeError(w, http.StatusBadRequest, "dimension must be between 1 and 4096")
		return
	}

	hnswCfg := hnswPreset(req.HNSWPreset)
	if req.M > 0 {
		hnswCfg.M = req.M
	}
	if req.EfConstruction > 0 {
		hnswCfg.EfConstruction = req.EfConstruction
	}

	idx, err := s.mgr.CreateOrOpen(name, indexmgr.Config{
		Dimension:  req.Dimension,
		Metric:     metric,
		HNSW:       hnswCfg,
		ShardCount: req.ShardCount,
	})
	if err != nil {
		writeErr(w, err)
		return
	}

	stats := idx.Stats()
	writeJSON(w, http.StatusOK, createIndexResponse{
		Message:   "index " + idx.Name() + " ready",
		Dimension: stats.Dimension,
		Metric:    metric.String(),
	})
}

func hnswPreset(name string) hnsw.Config {
	switch name {
	case "fast":
		return hnsw.FastConfig()
	case "high-quality":
		return hnsw.HighQualityConfig()
	default:
		return hnsw.BalancedConfig()
	}
}

func (s *Server) handleDeleteIndex(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.mgr.Delete(name); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteIndexResponse{Name: name, Message: "index deleted"})
}

func (s *Server) handleIndexStats(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	idx, ok := s.mgr.Get(name)
	if !ok {
		writeErr(w, vectorerr.New(vectorerr.IndexNotFound, "no index named "+name))
		return
	}
	st := idx.Stats()
	writeJSON(w, http.StatusOK, statsResponse{
		NumVectors:           st.NumVectors,
		NumActive:            st.NumActive,
		NumDeleted:           st.NumDeleted,
		NumNodes:             st.NumNodes,
		Dimension:            st.Dimension,
		EntryPointLevel:      st.EntryPointLevel,
		ConnectionsPerLayer:  st.ConnectionsPerLayer,
		DeletionRatioPercent: st.DeletionRatioPercent(),
		Recommendation:       st.Recommendation(),
	})
}

func (s *Server) handleShardStats(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	idx, ok := s.mgr.Get(name)
	if !ok {
		writeErr(w, vectorerr.New(vectorerr.IndexNotFound, "no index named "+name))
		return
	}
	writeJSON(w, http.StatusOK, idx.ShardStats())
}

func (s *Server) handleInsertVector(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	idx, ok := s.mgr.Get(name)
	if !ok {
		writeErr(w, vectorerr.New(vectorerr.IndexNotFound, "no index named "+name))
		return
	}

	var req vectorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.ID == "" {
		req.ID = generateID()
	}
	if err := insertOne(idx, req); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, insertVectorResponse{ID: req.ID, Message: "vector inserted"})
}

func insertOne(idx *indexmgr.ShardedIndex, req vectorRequest) error {
	if err := validate.ID(req.ID); err != nil {
		return err
	}
	if err := validate.Vector(req.Vector); err != nil {
		return err
	}
	if err := validate.Metadata(req.Metadata); err != nil {
		return err
	}
	var metadata []byte
	if len(req.Metadata) > 0 {
		metadata = []byte(req.Metadata)
	}
	return idx.Insert(req.ID, req.Vector, metadata)
}

func (s *Server) handleBatchInsert(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	idx, ok := s.mgr.Get(name)
	if !ok {
		writeErr(w, vectorerr.New(vectorerr.IndexNotFound, "no index named "+name))
		return
	}

	var req batchInsertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := validate.BatchSize(len(req.Vectors)); err != nil {
		writeErr(w, err)
		return
	}

	resp := batchInsertResponse{Total: len(req.Vectors), Results: make([]batchResultItem, 0, len(req.Vectors))}
	for _, v := range req.Vectors {
		if v.ID == "" {
			v.ID = generateID()
		}
		if err := insertOne(idx, v); err != nil {
			resp.Failed++
			resp.Results = append(resp.Results, batchResultItem{ID: v.ID, Error: err.Error()})
			continue
		}
		resp.Inserted++
		resp.Results = append(resp.Results, batchResultItem{ID: v.ID})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	idx, ok := s.mgr.Get(name)
	if !ok {
		writeErr(w, vectorerr.New(vectorerr.IndexNotFound, "no index named "+name))
		return
	}

	req := searchRequest{K: defaultSearchK}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.K == 0 {
		req.K = defaultSearchK
	}
	if err := validate.Vector(req.Vector); err != nil {
		writeErr(w, err)
		return
	}
	if err := validate.K(req.K); err != nil {
		writeErr(w, err)
		return
	}

	matches, err := idx.Search(r.Context(), req.Vector, req.K)
	if err != nil {
		writeErr(w, err)
		return
	}

	out := make([]searchResultItem, len(matches))
	for i, m := range matches {
		var metadata json.RawMessage
		if len(m.Metadata) > 0 {
			metadata = json.RawMessage(m.Metadata)
		}
		out[i] = searchResultItem{ID: m.ID, Distance: m.Distance, Score: 1 - m.Distance, Metadata: metadata}
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: out})
}

func (s *Server) handleGetVector(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	id := r.PathValue("id")

	idx, ok := s.mgr.Get(name)
	if !ok {
		writeErr(w, vectorerr.New(vectorerr.IndexNotFound, "no index named "+name))
		return
	}

	vec, metadata, found := idx.Get(id)
	if !found {
		writeErr(w, vectorerr.New(vectorerr.NotFound, "no vector with id "+id))
		return
	}
	writeJSON(w, http.StatusOK, vectorResponse{ID: id, Vector: vec, Metadata: metadata})
}

func (s *Server) handleDeleteVector(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	id := r.PathValue("id")

	idx, ok := s.mgr.Get(name)
	if !ok {
		writeErr(w, vectorerr.New(vectorerr.IndexNotFound, "no index named "+name))
		return
	}

	deleted, err := idx.SoftDelete(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if !deleted {
		writeErr(w, vectorerr.New(vectorerr.NotFound, "no vector with id "+id))
		return
	}
	writeJSON(w, http.StatusOK, deleteVectorResponse{ID: id, Message: "vector deleted"})
}
