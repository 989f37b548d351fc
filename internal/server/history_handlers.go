package server

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MeKo-Tech/qrlens/internal/history"
)

func (s *Server) listHistoryHandler(w http.ResponseWriter, _ *http.Request) {
	entries := s.history.List()
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Entries: entries, Count: len(entries)})
}

func (s *Server) getHistoryHandler(w http.ResponseWriter, r *http.Request) {
	entry, err := s.history.Get(mux.Vars(r)["id"])
	if errors.Is(err, history.ErrNotFound) {
		s.writeErrorResponse(w, "History entry not found", "not_found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) deleteHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.history.Delete(mux.Vars(r)["id"]); errors.Is(err, history.ErrNotFound) {
		s.writeErrorResponse(w, "History entry not found", "not_found", http.StatusNotFound)
		return
	}
	historyEntries.Set(float64(s.history.Len()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearHistoryHandler(w http.ResponseWriter, _ *http.Request) {
	s.history.Clear()
	historyEntries.Set(0)
	w.WriteHeader(http.StatusNoContent)
}
