// Package handlers provides the control plane's HTTP request handlers.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dataplatform/validation-pipeline/internal/broker"
	"github.com/dataplatform/validation-pipeline/internal/config"
	"github.com/dataplatform/validation-pipeline/internal/metrics"
	"github.com/dataplatform/validation-pipeline/internal/pipelineerr"
	"github.com/dataplatform/validation-pipeline/internal/registry"
)

// Handler provides HTTP handlers for schema registration/lookup and job
// submission.
type Handler struct {
	registry *registry.SchemaRegistry
	moves    *registry.MoveRegistry
	broker   broker.Broker
	app      config.AppConfig
	metrics  *metrics.Metrics
}

// New creates a Handler wired to reg/moves/brk, publishing job messages per
// appCfg's routing keys.
func New(reg *registry.SchemaRegistry, moves *registry.MoveRegistry, brk broker.Broker, appCfg config.AppConfig, m *metrics.Metrics) *Handler {
	return &Handler{registry: reg, moves: moves, broker: brk, app: appCfg, metrics: m}
}

// HealthCheck handles GET /
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{})
}

// LivenessCheck handles GET /health/live. Always returns 200 — confirms the
// process is alive, not that its dependencies are healthy.
func (h *Handler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
}

// ReadinessCheck handles GET /health/ready.
func (h *Handler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if _, err := h.registry.GetAll(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "storage unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
}

type registerSchemaRequest struct {
	Schema string `json:"schema"`
}

type registerSchemaResponse struct {
	ID string `json:"id"`
}

// RegisterSchema handles PUT /schema/{namespace}.
func (h *Handler) RegisterSchema(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")

	var req registerSchemaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Schema == "" {
		writeError(w, http.StatusUnprocessableEntity, "schema is required")
		return
	}

	id, err := h.registry.Insert(r.Context(), namespace, req.Schema)
	if err != nil {
		h.metrics.RecordSchemaRegistration(false)
		if errors.Is(err, registry.ErrInvalidSchema) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.metrics.RecordSchemaRegistration(true)
	writeJSON(w, http.StatusCreated, registerSchemaResponse{ID: id})
}

// GetSchemasByNamespace handles GET /schema/namespace/{namespace}.
func (h *Handler) GetSchemasByNamespace(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")
	rows, err := h.registry.GetByNamespace(r.Context(), namespace)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// ListAllSchemas handles GET /schema/all.
func (h *Handler) ListAllSchemas(w http.ResponseWriter, r *http.Request) {
	rows, err := h.registry.GetAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// DeleteNamespace handles DELETE /schema/{namespace}.
func (h *Handler) DeleteNamespace(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")
	if err := h.registry.DeleteByNamespace(r.Context(), namespace); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{})
}

// DeleteAllSchemas handles DELETE /schema/all.
func (h *Handler) DeleteAllSchemas(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.DeleteAll(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{})
}

type submitJobResponse struct {
	Namespace string `json:"namespace"`
	Status    string `json:"status"`
}

// jobMessage is the wire body published to the broker: the worker decodes
// this same shape off the delivery before running the evaluator.
type jobMessage struct {
	Namespace string `json:"namespace"`
}

// SubmitValidationJob handles POST /job/validate/namespace/{namespace}. It
// publishes one JSON-encoded message naming the namespace to the broker's
// main exchange; the worker evaluates it asynchronously.
func (h *Handler) SubmitValidationJob(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")

	body, err := json.Marshal(jobMessage{Namespace: namespace})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.broker.Publish(r.Context(), h.app.SourceRouter, body, 0); err != nil {
		if pipelineerr.Is(err, pipelineerr.KindBrokerConnectionRefused) || pipelineerr.Is(err, pipelineerr.KindBrokerSendError) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.metrics.RecordBrokerPublish(h.app.SourceRouter)
	writeJSON(w, http.StatusAccepted, submitJobResponse{Namespace: namespace, Status: "queued"})
}

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Message: message})
}
