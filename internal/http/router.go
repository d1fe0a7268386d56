package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router wraps the standard library http.ServeMux; the route surface is small
// enough that a third-party router buys nothing.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterLoteRoutes wires lote intake, lookup, movement and audit.
func (r *Router) RegisterLoteRoutes(h *LoteHandler) {
	r.Handle("/api/v1/lotes", h.ServeHTTP)
	r.Handle("/api/v1/lotes/", h.ServeHTTP)
}

// RegisterSnapshotRoutes wires snapshot generation, rotation and revocation.
func (r *Router) RegisterSnapshotRoutes(h *SnapshotHandler) {
	r.Handle("/api/v1/snapshots", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Generate(w, req)
	})
	r.Handle("/api/v1/snapshots/", h.ServeHTTP)
}

// RegisterTraceRoutes wires the public QR resolution endpoint.
func (r *Router) RegisterTraceRoutes(h *TraceHandler) {
	r.Handle("/trace/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetTrace(w, req)
	})
}

// RegisterIngestRoutes wires HTTP push ingestion and reading simulation.
func (r *Router) RegisterIngestRoutes(h *IngestHandler) {
	r.Handle("/api/v1/readings", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.PushReading(w, req)
	})
	r.Handle("/api/v1/sensors/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.SimulateReadings(w, req)
	})
}

// RegisterAlertRoutes wires alert listing and mark-read.
func (r *Router) RegisterAlertRoutes(h *AlertHandler) {
	r.Handle("/api/v1/alerts", h.ServeHTTP)
	r.Handle("/api/v1/alerts/", h.ServeHTTP)
}
