package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/datamod/internal/ir"
	"github.com/roach88/datamod/internal/store"
)

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ir.Obj(ir.O("status", ir.IRString("ok"))))
}

func (s *Server) records(r *http.Request) *store.Records {
	return s.store.Records(chi.URLParam(r, "collection"), s.idField)
}

func (s *Server) listHandler(w http.ResponseWriter, r *http.Request) {
	recs, err := s.records(r).List(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	out := make(ir.IRArray, len(recs))
	for i, rec := range recs {
		out[i] = rec
	}
	writeTagged(w, r, ir.DomainCollection, out)
}

func (s *Server) getHandler(w http.ResponseWriter, r *http.Request) {
	rec, err := s.records(r).Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeTagged(w, r, ir.DomainRecord, rec)
}

func (s *Server) createHandler(w http.ResponseWriter, r *http.Request) {
	rec, err := readRecord(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.records(r).Insert(r.Context(), rec)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateHandler(w http.ResponseWriter, r *http.Request) {
	rec, err := readRecord(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	urlID := chi.URLParam(r, "id")
	if id, ok := rec.Field(s.idField); ok {
		key, err := ir.KeyOf(id)
		if err != nil || key != urlID {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("body %s does not match URL id %q", s.idField, urlID))
			return
		}
	} else {
		rec[s.idField] = ir.IRString(urlID)
	}

	updated, err := s.records(r).Replace(r.Context(), rec)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.records(r).Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readRecord decodes the request body as a JSON object.
func readRecord(w http.ResponseWriter, r *http.Request) (ir.IRObject, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	v, err := ir.UnmarshalIRValue(data)
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("body must be a JSON object, got %s", ir.KindOf(v))
	}
	return obj, nil
}

func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("store failure", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ir.Obj(ir.O("error", ir.IRString(msg))))
}

// writeTagged writes v with a strong ETag over its canonical body and
// answers 304 when the client's If-None-Match already holds it.
func writeTagged(w http.ResponseWriter, r *http.Request, domain string, v ir.IRValue) {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		slog.Error("encode response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	etag := `"` + ir.HashBytes(domain, data) + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v ir.IRValue) {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		slog.Error("encode response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
