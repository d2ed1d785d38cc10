package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

func newRouter(reg *registry) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/healthz", healthzHandler)
	r.Get("/score", scoreHandler(reg))
	r.Get("/gate", gateHandler(reg))

	return r
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func scoreHandler(reg *registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pipelineID := r.URL.Query().Get("pipeline_id")
		if pipelineID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing pipeline_id query parameter"})
			return
		}
		rec, ok := reg.Get(pipelineID)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no recorded run for pipeline_id"})
			return
		}
		writeJSON(w, http.StatusOK, rec.Scores)
	}
}

func gateHandler(reg *registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pipelineID := r.URL.Query().Get("pipeline_id")
		if pipelineID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing pipeline_id query parameter"})
			return
		}
		rec, ok := reg.Get(pipelineID)
		if !ok || rec.Gate == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no recorded regression gate result for pipeline_id"})
			return
		}
		writeJSON(w, http.StatusOK, rec.Gate)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
