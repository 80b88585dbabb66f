// Package server exposes the search index over a small HTTP API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fixxit/machdocs/internal/catalog"
	"github.com/fixxit/machdocs/internal/search"
)

// Config holds server configuration.
type Config struct {
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)
}

// Server serves search, status, and document content endpoints.
type Server struct {
	cfg        Config
	catalog    *catalog.Store
	engine     *search.Engine
	logger     *slog.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a server over the catalog store and search engine.
func New(cfg Config, cat *catalog.Store, engine *search.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, catalog: cat, engine: engine, logger: logger}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/search", s.handleSearch)
	r.Get("/suggest", s.handleSuggest)
	r.Get("/status", s.handleStatus)
	r.Get("/documents/{id}/content", s.handleDocumentContent)
	r.Get("/machines/{name}", s.handleMachine)

	return r
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if strings.TrimSpace(query) == "" {
		writeError(w, http.StatusBadRequest, "q parameter is required")
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	results, err := s.engine.Search(r.Context(), search.Query{
		Text:         query,
		Machine:      q.Get("machine"),
		DocumentType: q.Get("type"),
		Limit:        limit,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	partial := strings.TrimSpace(r.URL.Query().Get("q"))
	if partial == "" {
		writeError(w, http.StatusBadRequest, "q parameter is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	suggestions, err := s.engine.Suggest(r.Context(), partial, limit)
	if err != nil {
		s.logger.Error("suggest query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "suggest query failed")
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.catalog.Stats(r.Context())
	if err != nil {
		s.logger.Error("status query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "status query failed")
		return
	}
	logs, err := s.catalog.RecentLogs(r.Context(), 10)
	if err != nil {
		s.logger.Error("log query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "log query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":       stats,
		"recent_logs": logs,
	})
}

func (s *Server) handleDocumentContent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	var pages []int
	if raw := r.URL.Query().Get("pages"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid pages parameter")
				return
			}
			pages = append(pages, n)
		}
	}

	content, err := s.catalog.GetDocumentContent(r.Context(), id, pages)
	if err != nil {
		if catalog.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		s.logger.Error("content query failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "content query failed")
		return
	}
	writeJSON(w, http.StatusOK, content)
}

func (s *Server) handleMachine(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	machine, err := s.catalog.GetMachine(r.Context(), name)
	if err != nil {
		if catalog.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "machine not found")
			return
		}
		s.logger.Error("machine query failed", "name", name, "error", err)
		writeError(w, http.StatusInternalServerError, "machine query failed")
		return
	}

	docType := catalog.DocumentType(r.URL.Query().Get("type"))
	if docType != "" && !catalog.ValidDocumentType(docType) {
		writeError(w, http.StatusBadRequest, "unknown document type")
		return
	}
	docs, err := s.catalog.MachineDocuments(r.Context(), machine.ID, docType)
	if err != nil {
		s.logger.Error("machine documents query failed", "name", name, "error", err)
		writeError(w, http.StatusInternalServerError, "document query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"machine":   machine,
		"documents": docs,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("machdocs server listening", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
