package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/ritzau/link-analyzer/pkg/kvstore"
)

const analysisKeyPrefix = "analysis:"

// readJSONBody reads a request body that must hold one JSON value.
func readJSONBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxUploadSize))
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, badRequestf("body is not valid JSON")
	}
	return body, nil
}

func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	body, err := readJSONBody(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	key, err := gonanoid.New()
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := s.store.Set(r.Context(), analysisKeyPrefix+key, body, s.savedTTL); err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/analyses/"+key)
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	data, err := s.store.Get(r.Context(), analysisKeyPrefix+mux.Vars(r)["key"])
	if errors.Is(err, kvstore.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "analysis not found")
		return
	}
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handlePutAnalysis(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if err := s.validate.Var(key, "min=4,max=64"); err != nil {
		writeError(w, r, http.StatusBadRequest, "key must be 4 to 64 characters")
		return
	}
	body, err := readJSONBody(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := s.store.Set(r.Context(), analysisKeyPrefix+key, body, s.savedTTL); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), analysisKeyPrefix+mux.Vars(r)["key"]); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
