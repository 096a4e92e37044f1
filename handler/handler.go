// Package handler provides the HTTP handlers for the product API.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/stevemurr/comparison-api/product"
	"github.com/stevemurr/comparison-api/schema"
)

// ProductService is the set of operations the handlers call.
type ProductService interface {
	List(ctx context.Context) ([]product.Record, error)
	Get(ctx context.Context, id int) (product.Record, error)
	Create(ctx context.Context, in product.CreateInput) (product.Record, error)
	Replace(ctx context.Context, id int, in product.FullUpdateInput) (product.Record, error)
	Patch(ctx context.Context, id int, in product.PartialUpdateInput) (product.Record, error)
	Delete(ctx context.Context, id int) error
}

// Options tunes the handler.
type Options struct {
	AppName string
	Logger  *slog.Logger
	// Metrics, when set, is served on GET /metrics.
	Metrics http.Handler
}

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Handler holds the server dependencies and registers routes.
type Handler struct {
	svc     ProductService
	appName string
	log     *slog.Logger
	mux     *http.ServeMux
}

// New creates a Handler and wires up all routes.
func New(svc ProductService, opts Options) *Handler {
	h := &Handler{svc: svc, appName: opts.AppName, log: opts.Logger, mux: http.NewServeMux()}
	if h.log == nil {
		h.log = slog.Default()
	}
	h.routes(opts.Metrics)
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) routes(metrics http.Handler) {
	// Health / status
	h.mux.HandleFunc("GET /{$}", h.root)
	h.mux.HandleFunc("GET /health", h.health)
	if metrics != nil {
		h.mux.Handle("GET /metrics", metrics)
	}

	// The collection answers with and without the trailing slash.
	for _, p := range []string{"/api/products", "/api/products/{$}"} {
		h.mux.HandleFunc("GET "+p, h.listProducts)
		h.mux.HandleFunc("POST "+p, h.createProduct)
	}
	h.mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	h.mux.HandleFunc("PUT /api/products/{id}", h.replaceProduct)
	h.mux.HandleFunc("PATCH /api/products/{id}", h.patchProduct)
	h.mux.HandleFunc("DELETE /api/products/{id}", h.deleteProduct)
}

// ---------- helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// writeServiceError translates a service error into a response.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError && !isStorageError(err) {
		h.log.ErrorContext(r.Context(), "unexpected service error", "error", err)
		msg = "internal server error"
	}
	writeError(w, status, msg)
}

func errorStatus(err error) int {
	if errors.Is(err, product.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func isStorageError(err error) bool {
	return errors.Is(err, product.ErrDataFormat) || errors.Is(err, product.ErrPersistence)
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.PathValue("id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid product id %q", raw))
		return 0, false
	}
	return id, true
}

// readBody validates the request body against s and decodes it into dst.
func readBody(w http.ResponseWriter, r *http.Request, s map[string]any, dst any) bool {
	defer r.Body.Close()
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "unable to read request body")
		}
		return false
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON: "+err.Error())
		return false
	}
	if err := schema.Validate(s, doc); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation failed: "+err.Error())
		return false
	}
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(dst); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// ---------- status endpoints ----------

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Api start " + h.appName,
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ---------- products ----------

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if records == nil {
		records = []product.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var in product.CreateInput
	if !readBody(w, r, schema.CreateProduct, &in) {
		return
	}
	rec, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) replaceProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in product.FullUpdateInput
	if !readBody(w, r, schema.ReplaceProduct, &in) {
		return
	}
	rec, err := h.svc.Replace(r.Context(), id, in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) patchProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in product.PartialUpdateInput
	if !readBody(w, r, schema.PatchProduct, &in) {
		return
	}
	rec, err := h.svc.Patch(r.Context(), id, in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
