package fipe

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"dealer-workers/internal/common/errors"
	"dealer-workers/internal/common/logger"
)

// Handler exposes the client over HTTP under /fipe/.
type Handler struct {
	client  *Client
	logger  logger.Logger
	timeout time.Duration
}

func NewHandler(client *Client, timeout time.Duration, log logger.Logger) *Handler {
	return &Handler{client: client, logger: log, timeout: timeout}
}

// Register mounts the lookup routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /fipe/{tipo}/marcas", h.brands)
	mux.HandleFunc("GET /fipe/{tipo}/marcas/{marca}/modelos", h.models)
	mux.HandleFunc("GET /fipe/{tipo}/marcas/{marca}/modelos/{modelo}/anos", h.years)
	mux.HandleFunc("GET /fipe/{tipo}/marcas/{marca}/modelos/{modelo}/anos/{ano}", h.price)
}

func (h *Handler) brands(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, vt VehicleType) (interface{}, error) {
		return h.client.Brands(ctx, vt)
	})
}

func (h *Handler) models(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, vt VehicleType) (interface{}, error) {
		return h.client.Models(ctx, vt, Code(r.PathValue("marca")))
	})
}

func (h *Handler) years(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, vt VehicleType) (interface{}, error) {
		return h.client.Years(ctx, vt, Code(r.PathValue("marca")), Code(r.PathValue("modelo")))
	})
}

func (h *Handler) price(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, vt VehicleType) (interface{}, error) {
		return h.client.Price(ctx, vt, Code(r.PathValue("marca")), Code(r.PathValue("modelo")), Code(r.PathValue("ano")))
	})
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, fn func(context.Context, VehicleType) (interface{}, error)) {
	vt, err := ParseVehicleType(r.PathValue("tipo"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	out, err := fn(ctx, vt)
	if err != nil {
		status, body := errorResponse(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("fipe lookup failed", map[string]interface{}{
				"path":  r.URL.Path,
				"error": err.Error(),
			})
		}
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func errorResponse(err error) (int, map[string]string) {
	switch {
	case stderrors.Is(err, ErrNotFound):
		return http.StatusNotFound, map[string]string{"error": "not found"}
	case stderrors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest, map[string]string{"error": err.Error()}
	}

	var stdErr *errors.StandardError
	if stderrors.As(err, &stdErr) {
		return http.StatusBadGateway, map[string]string{
			"error": stdErr.Message,
			"code":  string(stdErr.Code),
		}
	}
	return http.StatusInternalServerError, map[string]string{"error": "internal error"}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
