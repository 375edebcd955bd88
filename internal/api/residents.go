package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/siwarga/rwrt-backend/internal/records"
)

func (s *Server) ListResidents(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	list, err := s.residents.List(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paginate(w, r, list))
}

func (s *Server) GetResident(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	res, err := s.residents.Get(r.Context(), sess, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) CreateResident(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	var in records.ResidentInput
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := s.residents.Create(r.Context(), sess, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) UpdateResident(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	var in records.ResidentInput
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := s.residents.Update(r.Context(), sess, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) DeleteResident(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	if err := s.residents.Delete(r.Context(), sess, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
