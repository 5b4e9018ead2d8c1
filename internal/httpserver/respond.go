package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/library"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/logger"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/model"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/transfer"
)

// maxBodyBytes bounds request bodies, imports included.
const maxBodyBytes = 8 << 20

type api struct {
	Deps
}

type errorResponse struct {
	Error string `json:"error"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func (a *api) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.Logger.Debug("failed to write response", logger.Error(err))
	}
}

func (a *api) writeError(w http.ResponseWriter, status int, msg string) {
	a.writeJSON(w, status, errorResponse{Error: msg})
}

// fail maps library and transfer errors onto status codes.
func (a *api) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, library.ErrUnavailable):
		a.writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, transfer.ErrInvalidEnvelope),
		errors.Is(err, transfer.ErrWrongProduct),
		errors.Is(err, transfer.ErrEmptyImport),
		errors.Is(err, transfer.ErrReplaceNotConfirmed):
		a.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		a.writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		a.Logger.Error("request failed", logger.Error(err))
		a.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// outcome is what a mutation reports back to its handler.
type outcome struct {
	found bool // the target exists
	ok    bool // the store accepted the change
}

// mutate runs fn under the write lock and answers 404 when the target is
// missing, 409 when the store rejected the change, and 200 otherwise.
func (a *api) mutate(w http.ResponseWriter, r *http.Request, status int, fn func(s *model.Store) outcome) {
	var out outcome
	_, err := a.Library.Update(r.Context(), func(s *model.Store) bool {
		out = fn(s)
		return out.ok
	})
	switch {
	case err != nil:
		a.fail(w, err)
	case !out.found:
		a.writeError(w, http.StatusNotFound, "not found")
	case !out.ok:
		a.writeError(w, http.StatusConflict, "rejected")
	default:
		a.writeJSON(w, status, okResponse{OK: true})
	}
}

// view runs fn under the read lock and writes whatever it returns.
func (a *api) view(w http.ResponseWriter, fn func(s *model.Store) any) {
	var v any
	if err := a.Library.View(func(s *model.Store) { v = fn(s) }); err != nil {
		a.fail(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, v)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxBodyBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", maxBodyBytes)
	}
	return data, nil
}

// pathParam returns an unescaped chi URL parameter.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// requireURL reads the url query parameter, answering 400 when it is empty.
func (a *api) requireURL(w http.ResponseWriter, r *http.Request) (string, bool) {
	u := strings.TrimSpace(r.URL.Query().Get("url"))
	if u == "" {
		a.writeError(w, http.StatusBadRequest, "missing url parameter")
		return "", false
	}
	return u, true
}

func queryInt(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func queryBool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
