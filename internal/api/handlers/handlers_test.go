package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataplatform/validation-pipeline/internal/broker"
	"github.com/dataplatform/validation-pipeline/internal/config"
	"github.com/dataplatform/validation-pipeline/internal/metrics"
	"github.com/dataplatform/validation-pipeline/internal/registry"
	"github.com/dataplatform/validation-pipeline/internal/storage/memory"
)

const sampleSchema = `{"type":"record","name":"R","fields":[{"name":"x","type":"string"}]}`

func setupTestHandler(t *testing.T) (*Handler, *broker.MemoryBroker) {
	t.Helper()
	store := memory.NewStore()
	reg := registry.NewSchemaRegistry(store, 64, time.Minute)
	moves := registry.NewMoveRegistry(store)
	b := broker.NewMemoryBroker()
	h := New(reg, moves, b, config.AppConfig{SourceRouter: "app.validate"}, metrics.New())
	return h, b
}

func newRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Put("/schema/{namespace}", h.RegisterSchema)
	r.Get("/schema/namespace/{namespace}", h.GetSchemasByNamespace)
	r.Get("/schema/all", h.ListAllSchemas)
	r.Delete("/schema/{namespace}", h.DeleteNamespace)
	r.Delete("/schema/all", h.DeleteAllSchemas)
	r.Post("/job/validate/namespace/{namespace}", h.SubmitValidationJob)
	r.Get("/health/ready", h.ReadinessCheck)
	return r
}

func TestRegisterSchema_Success(t *testing.T) {
	h, _ := setupTestHandler(t)
	r := newRouter(h)

	body, _ := json.Marshal(registerSchemaRequest{Schema: sampleSchema})
	req := httptest.NewRequest(http.MethodPut, "/schema/rfb.json", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var resp registerSchemaResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
}

func TestRegisterSchema_InvalidSchema(t *testing.T) {
	h, _ := setupTestHandler(t)
	r := newRouter(h)

	body, _ := json.Marshal(registerSchemaRequest{Schema: "not avro"})
	req := httptest.NewRequest(http.MethodPut, "/schema/rfb.json", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestRegisterSchema_EmptyBody(t *testing.T) {
	h, _ := setupTestHandler(t)
	r := newRouter(h)

	req := httptest.NewRequest(http.MethodPut, "/schema/rfb.json", bytes.NewReader([]byte(`{}`)))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestGetSchemasByNamespace(t *testing.T) {
	h, _ := setupTestHandler(t)
	r := newRouter(h)

	body, _ := json.Marshal(registerSchemaRequest{Schema: sampleSchema})
	putReq := httptest.NewRequest(http.MethodPut, "/schema/rfb.json", bytes.NewReader(body))
	r.ServeHTTP(httptest.NewRecorder(), putReq)

	req := httptest.NewRequest(http.MethodGet, "/schema/namespace/rfb.json", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rows))
	assert.Len(t, rows, 1)
}

func TestDeleteNamespace(t *testing.T) {
	h, _ := setupTestHandler(t)
	r := newRouter(h)

	body, _ := json.Marshal(registerSchemaRequest{Schema: sampleSchema})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/schema/rfb.json", bytes.NewReader(body)))

	req := httptest.NewRequest(http.MethodDelete, "/schema/rfb.json", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusCreated, rr.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/schema/namespace/rfb.json", nil)
	getRR := httptest.NewRecorder()
	r.ServeHTTP(getRR, getReq)
	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(getRR.Body.Bytes(), &rows))
	assert.Empty(t, rows)
}

func TestSubmitValidationJob(t *testing.T) {
	h, b := setupTestHandler(t)
	r := newRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/job/validate/namespace/rfb.json", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code)

	deliveries, err := b.ConsumeSync(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	var msg jobMessage
	require.NoError(t, json.Unmarshal(deliveries[0].Body, &msg))
	assert.Equal(t, "rfb.json", msg.Namespace)
}

func TestReadinessCheck(t *testing.T) {
	h, _ := setupTestHandler(t)
	r := newRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
