// Package vectorserver is the HTTP surface over an indexmgr.Manager,
// implementing the endpoint table of spec.md §6.2 plus the supplemental
// per-shard stats endpoint (SPEC_FULL.md [MODULE: httpapi]).
package vectorserver

import (
	"net/http"
	"time"

	"github.com/quartzvec/vectorengine/pkg/indexmgr"
)

// Timeout budgets per spec.md §5: writes get the longest window since
// they may trigger a graph-structure flush; vector-level reads and
// searches, index listing and stats get a tighter one; the health check
// gets the tightest.
const (
	WriteTimeout  = 30 * time.Second
	VectorTimeout = 10 * time.Second
	HealthTimeout = 5 * time.Second
)

// Server wires an indexmgr.Manager to an http.ServeMux, wrapping every
// route in the rate-limit/timeout middleware chain.
type Server struct {
	mgr     *indexmgr.Manager
	mux     *http.ServeMux
	limiter *RateLimiter
}

// Options configures the Server's ambient middleware.
type Options struct {
	// RequestsPerMinute is the token-bucket refill rate shared across
	// all callers. 0 disables rate limiting.
	RequestsPerMinute int
}

// DefaultOptions matches spec.md §5's "100 requests/minute" default.
func DefaultOptions() Options { return Options{RequestsPerMinute: 100} }

// NewServer builds a Server ready to be used as an http.Handler.
func NewServer(mgr *indexmgr.Manager, opts Options) *Server {
	s := &Server{
		mgr: mgr,
		mux: http.NewServeMux(),
	}
	if opts.RequestsPerMinute > 0 {
		s.limiter = NewRateLimiter(opts.RequestsPerMinute)
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.handle("GET /healthz", HealthTimeout, s.handleHealth)

	s.handle("GET /indexes", VectorTimeout, s.handleListIndexes)
	s.handle("POST /indexes/{name}", WriteTimeout, s.handleCreateIndex)
	s.handle("DELETE /indexes/{name}", WriteTimeout, s.handleDeleteIndex)

	s.handle("GET /indexes/{name}/stats", VectorTimeout, s.handleIndexStats)
	s.handle("GET /indexes/{name}/shards", VectorTimeout, s.handleShardStats)

	s.handle("POST /indexes/{name}/vectors", WriteTimeout, s.handleInsertVector)
	s.handle("POST /indexes/{name}/vectors/batch", WriteTimeout, s.handleBatchInsert)
	s.handle("POST /indexes/{name}/vectors/search", VectorTimeout, s.handleSearch)
	s.handle("GET /indexes/{name}/vectors/{id}", VectorTimeout, s.handleGetVector)
	s.handle("DELETE /indexes/{name}/vectors/{id}", WriteTimeout, s.handleDeleteVector)
}

// handle registers pattern behind the timeout-then-rate-limit
// middleware chain, the way the teacher's server.go wraps every route
// in withAuth.
func (s *Server) handle(pattern string, timeout time.Duration, h http.HandlerFunc) {
	wrapped := withTimeout(timeout, h)
	if s.limiter != nil {
		wrapped = s.limiter.wrap(wrapped)
	}
	s.mux.HandleFunc(pattern, wrapped)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
