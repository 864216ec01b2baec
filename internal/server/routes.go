package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Batch submission
	mux.HandleFunc("/api/variants/generate", s.app.VariantHandler.GenerateVariantsHandler)
	mux.HandleFunc("/api/media/ingest", s.app.MediaHandler.IngestMediaHandler)

	// API routes - Task polling
	mux.HandleFunc("/api/tasks/", s.app.TaskHandler.GetTaskHandler)

	// API routes - Media assets
	mux.HandleFunc("/api/media", s.app.MediaHandler.ListMediaHandler)
	mux.HandleFunc("/api/media/", s.app.MediaHandler.GetMediaHandler)

	// API routes - Keyword library
	mux.HandleFunc("/api/keywords", s.handleKeywordsRoute)
	mux.HandleFunc("/api/keywords/", s.handleKeywordRoutes)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/status", s.app.APIHandler.StatusHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleKeywordsRoute routes /api/keywords requests (list and create)
func (s *Server) handleKeywordsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.app.KeywordHandler.ListKeywordsHandler(w, r)
	case "POST":
		s.app.KeywordHandler.CreateKeywordHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleKeywordRoutes routes /api/keywords/{id} and subpaths
func (s *Server) handleKeywordRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// GET /api/keywords/{id}/variants
	if strings.HasSuffix(path, "/variants") {
		s.app.KeywordHandler.GetKeywordVariantsHandler(w, r)
		return
	}

	switch r.Method {
	case "GET":
		s.app.KeywordHandler.GetKeywordHandler(w, r)
	case "DELETE":
		s.app.KeywordHandler.DeleteKeywordHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
