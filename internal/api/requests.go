package api

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/siwarga/rwrt-backend/internal/apperr"
	"github.com/siwarga/rwrt-backend/internal/approval"
	"github.com/siwarga/rwrt-backend/internal/projection"
	"github.com/siwarga/rwrt-backend/internal/requests"
)

const (
	kindPermit = approval.KindPermit
	kindReport = approval.KindReport
)

// maxPhotoUpload bounds the multipart body, a little above the image limit.
const maxPhotoUpload = 11 << 20

type PermitTypeInfo struct {
	Type  string        `json:"type"`
	Flow  approval.Flow `json:"flow"`
	Label string        `json:"label"`
}

func (s *Server) requestRoutes(kind approval.Kind) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", s.listRequests(kind))
		r.Get("/{id}", s.getRequest(kind))
		r.Delete("/{id}", s.deleteRequest(kind))
		r.Post("/{id}/transitions", s.transitionRequest(kind))
	}
}

func (s *Server) listRequests(kind approval.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		var f requests.Filter
		if raw := r.URL.Query().Get("status"); raw != "" {
			st, ok := approval.ParseStatus(raw)
			if !ok {
				writeError(w, r, apperr.Invalid("status", "unknown status %q", raw))
				return
			}
			f.Status = st
		}

		items, err := s.requests.List(r.Context(), sess, kind, f)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, paginate(w, r, items))
	}
}

func (s *Server) getRequest(kind approval.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFrom(w, r)
		if !ok {
			return
		}
		item, err := s.requests.Get(r.Context(), sess, kind, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func (s *Server) transitionRequest(kind approval.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFrom(w, r)
		if !ok {
			return
		}
		var cmd requests.Command
		if !decodeJSON(w, r, &cmd) {
			return
		}

		item, err := s.requests.Transition(r.Context(), sess, kind, chi.URLParam(r, "id"), cmd)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func (s *Server) deleteRequest(kind approval.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFrom(w, r)
		if !ok {
			return
		}
		reason := r.URL.Query().Get("reason")
		if err := s.requests.Delete(r.Context(), sess, kind, chi.URLParam(r, "id"), reason); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) UploadReportPhoto(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoUpload)
	file, header, err := r.FormFile("photo")
	if err != nil {
		ValidationErr("A photo file is required", []ErrorDetail{{Field: "photo", Message: err.Error()}}).Write(w)
		return
	}
	defer file.Close()

	photo, err := s.photos.Upload(r.Context(), sess, chi.URLParam(r, "id"), file, header)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, photo)
}

func (s *Server) ListPermitTypes(w http.ResponseWriter, r *http.Request) {
	if _, ok := sessionFrom(w, r); !ok {
		return
	}

	types := s.requests.Resolver().PermitTypes()
	out := make([]PermitTypeInfo, 0, len(types))
	for t, flow := range types {
		out = append(out, PermitTypeInfo{Type: t, Flow: flow, Label: projection.FlowLabel(flow)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	writeJSON(w, http.StatusOK, out)
}
