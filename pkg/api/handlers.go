package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/paulista5/SABER/pkg/dataset"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, map[string]interface{}{
		"status":   "healthy",
		"datasets": len(s.datasets),
	})
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	infos := make([]DatasetInfo, 0, len(s.names))
	for _, name := range s.names {
		infos = append(infos, s.datasets[name].info())
	}
	sendSuccess(w, infos)
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sendSuccess(w, entry.info())
}

func (s *Server) handleSetEpoch(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req EpochRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid JSON in request body", http.StatusBadRequest)
		return
	}
	if req.Epoch == nil {
		sendError(w, "epoch is required", http.StatusBadRequest)
		return
	}
	if *req.Epoch < 0 {
		sendError(w, "epoch must not be negative", http.StatusBadRequest)
		return
	}

	entry.mutex.Lock()
	entry.ds.SetEpoch(*req.Epoch)
	entry.mutex.Unlock()

	s.logger.Info("epoch set", "dataset", entry.name, "epoch", *req.Epoch)
	sendSuccess(w, entry.info())
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		sendError(w, "Index must be an integer", http.StatusBadRequest)
		return
	}

	entry.mutex.Lock()
	item, err := entry.ds.Get(index)
	entry.mutex.Unlock()

	if err != nil {
		switch {
		case errors.Is(err, dataset.ErrIndexOutOfRange):
			sendError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, dataset.ErrMissingKeyExhausted):
			sendError(w, err.Error(), http.StatusNotFound)
		default:
			s.logger.Error("failed to read record", "dataset", entry.name, "index", index, "error", err)
			sendError(w, fmt.Sprintf("Failed to read record: %v", err), http.StatusInternalServerError)
		}
		return
	}

	sendSuccess(w, NewRecordResponse(index, item))
}

// lookup resolves the {name} URL parameter, answering 404 when unknown
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*datasetEntry, bool) {
	name := chi.URLParam(r, "name")
	entry, ok := s.datasets[name]
	if !ok {
		sendError(w, fmt.Sprintf("Dataset %q not found", name), http.StatusNotFound)
		return nil, false
	}
	return entry, true
}

func (e *datasetEntry) info() DatasetInfo {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	info := DatasetInfo{Name: e.name, NumSamples: e.ds.Len(), Epoch: e.ds.Epoch()}
	if p, ok := e.ds.(interface{ Path() string }); ok {
		info.Path = p.Path()
	}
	return info
}
