package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/pii-redactor/internal/server"
)

func newTestServer(t *testing.T) *server.Server {
	t.Helper()
	dir := t.TempDir()
	srv, err := server.NewServer(&server.Config{
		Address:      ":0",
		Debug:        true,
		TaxonomyPath: filepath.Join(dir, "taxonomy.json"),
		PipelinePath: filepath.Join(dir, "pipeline.json"),
		ModelPath:    filepath.Join(dir, "models.json"),
	})
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
	assert.NotEmpty(t, response["time"])
}

func TestDetectTextEndpoint_DegradesWithoutNERConfigured(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]any{"text": "Contact 13800138000 please."})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/detect/text", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Entities []map[string]any `json:"entities"`
		Warnings []string         `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.NotEmpty(t, response.Entities)
	assert.NotEmpty(t, response.Warnings)
}

func TestDetectTextEndpoint_RejectsMissingText(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/detect/text", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListTypesEndpoint_ReturnsPresets(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/types", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var types []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &types))
	assert.NotEmpty(t, types)
}

func TestGetTypeEndpoint_NotFoundMapsTo404WithErrorKind(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/types/does-not-exist", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "NotFound", response["error_kind"])
}

func TestDeleteTypeEndpoint_PresetProtectedMapsTo400(t *testing.T) {
	srv := newTestServer(t)

	listReq := httptest.NewRequest(http.MethodGet, "/api/v1/types", nil)
	listW := httptest.NewRecorder()
	srv.Handler().ServeHTTP(listW, listReq)

	var types []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(listW.Body.Bytes(), &types))
	require.NotEmpty(t, types)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/types/"+types[0].ID, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRedactTextEndpoint_SmartModeProducesEntityMap(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"entities": []map[string]any{
			{"id": "entity_0", "text": "张三", "type": "PERSON", "start": 0, "end": 2, "selected": true},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/redact/text", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		EntityMap map[string]string `json:"entity_map"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "[当事人一]", response.EntityMap["张三"])
}

func TestRedactImageEndpoint_RejectsEmptyBody(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/redact/image", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRedactPDFEndpoint_RejectsMissingPaths(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]any{"redactions": []map[string]any{}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/redact/pdf", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRedactPDFEndpoint_MissingInputFileIsAnError(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"input_path":  "/nonexistent/in.pdf",
		"output_path": filepath.Join(t.TempDir(), "out.pdf"),
		"redactions": []map[string]any{
			{"page": 1, "box": map[string]any{"x": 0.1, "y": 0.1, "width": 0.2, "height": 0.05}},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/redact/pdf", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.NotEqual(t, http.StatusOK, w.Code)
}

func TestListModelsEndpoint_EmptyByDefault(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/models", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var models map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &models))
	assert.Empty(t, models)
}

func TestSetModelEndpoint_RoundTripsThroughList(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"family":     "openai",
		"base_url":   "http://localhost:9000",
		"model_name": "glm-4v",
		"active":     true,
	})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/models/vision", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	listReq := httptest.NewRequest(http.MethodGet, "/api/v1/models", nil)
	listW := httptest.NewRecorder()
	srv.Handler().ServeHTTP(listW, listReq)

	var models map[string]map[string]any
	require.NoError(t, json.Unmarshal(listW.Body.Bytes(), &models))
	require.Contains(t, models, "vision")
	assert.Equal(t, "glm-4v", models["vision"]["model_name"])
}

func TestGetPipelineEndpoint_SeededOnFirstRun(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pipelines/ocr_has", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var pc map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pc))
	assert.Equal(t, true, pc["enabled"])
}
