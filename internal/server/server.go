// Package server exposes the catalog surface over HTTP as a read-only JSON
// API, mirroring the paths viewer frontends already speak.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/v2x-tools/scenedex/api"
	"github.com/v2x-tools/scenedex/internal/family"
	"github.com/v2x-tools/scenedex/internal/session"
)

// Server serves one store. It holds no request state of its own.
type Server struct {
	store *family.Store
	sess  *session.Session
	log   *slog.Logger
	prom  *prometheus.Registry
}

// New wires the HTTP layer. prom may be nil to skip the /metrics endpoint.
func New(store *family.Store, sess *session.Session, log *slog.Logger, prom *prometheus.Registry) *Server {
	return &Server{store: store, sess: sess, log: log, prom: prom}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/datasets", s.handleDatasets)
	mux.HandleFunc("GET /api/datasets/{id}/intersections", s.handleGroups)
	mux.HandleFunc("GET /api/datasets/{id}/scenes", s.handleScenes)
	mux.HandleFunc("GET /api/datasets/{id}/locate_scene", s.handleLocate)
	mux.HandleFunc("GET /api/datasets/{id}/scene/{split}/{scene_id}/bundle", s.handleBundle)
	mux.HandleFunc("GET /api/cache_stats", s.handleCacheStats)
	if s.prom != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.prom, promhttp.HandlerOpts{}))
	}
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"datasets": s.store.Datasets()})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Stats())
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	cat, err := s.store.Catalog(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	groups, err := cat.ListGroups(r.Context(), r.URL.Query().Get("split"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"intersections": groups})
}

func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	cat, err := s.store.Catalog(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	q := r.URL.Query()
	limit := clampInt(q.Get("limit"), 200, 1, 1000)
	offset := clampInt(q.Get("offset"), 0, 0, 1<<30)
	page, err := cat.ListScenes(r.Context(), q.Get("split"), q.Get("intersect_id"), offset, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	cat, err := s.store.Catalog(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	q := r.URL.Query()
	loc, err := cat.LocateScene(r.Context(), q.Get("split"), q.Get("scene_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (s *Server) handleBundle(w http.ResponseWriter, r *http.Request) {
	cat, err := s.store.Catalog(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	b, err := cat.LoadBundle(r.Context(), r.PathValue("split"), r.PathValue("scene_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if api.IsNotFound(err) {
		status = http.StatusNotFound
	} else {
		s.log.Error("request failed", "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// clampInt parses a query parameter with a default and inclusive bounds.
func clampInt(s string, def, lo, hi int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
