package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetlens/fleetlens/internal/recognize"
)

// textRecognizer returns the uploaded bytes as recognized text, which lets
// tests drive the extractors with plain strings.
type textRecognizer struct {
	confidence float64
	failWith   string
}

func (r *textRecognizer) Recognize(_ context.Context, _ recognize.Strategy, in recognize.Input) recognize.Result {
	if r.failWith != "" {
		return recognize.Errored(r.failWith)
	}
	return recognize.Recognized(string(in.Data), r.confidence)
}

func newTestServer(rec *textRecognizer) *Server {
	return NewServer(rec, Config{
		CORSOrigin:  "*",
		MaxUploadMB: 10,
		TimeoutSec:  5,
	})
}

// multipartBody builds a multipart form with the given files under field.
func multipartBody(t *testing.T, field string, files ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for i, content := range files {
		part, err := w.CreateFormFile(field, "upload"+string(rune('a'+i))+".jpg")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(&textRecognizer{confidence: 1})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.healthHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.NotEmpty(t, resp.Time)
}

func TestHealthHandler_MethodNotAllowed(t *testing.T) {
	s := newTestServer(&textRecognizer{})

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	rec := httptest.NewRecorder()
	s.healthHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestScanHandler_Vehicle(t *testing.T) {
	s := newTestServer(&textRecognizer{confidence: 0.9})

	body, contentType := multipartBody(t, "image", "TOYOTA HILUX ABC 123 GP")
	req := httptest.NewRequest(http.MethodPost, "/v1/scan/vehicle", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.scanHandler(ModeVehicle)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ScanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Equal(t, ModeVehicle, resp.Mode)
	require.NotNil(t, resp.Vehicle)
	assert.Equal(t, "ABC-123-GP", resp.Vehicle.RegistrationNumber)
	assert.Equal(t, "TOYOTA", resp.Vehicle.VehicleMake)
	assert.InDelta(t, 0.9, resp.Confidence, 1e-9)
	assert.Nil(t, resp.Document)
}

func TestScanHandler_Document(t *testing.T) {
	s := newTestServer(&textRecognizer{confidence: 0.8})

	body, contentType := multipartBody(t, "image", "INVOICE #45213\nTotal: $1,200.00")
	req := httptest.NewRequest(http.MethodPost, "/v1/scan/document", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.scanHandler(ModeDocument)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ScanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	require.NotNil(t, resp.Document)
	assert.Equal(t, "invoice", resp.Document.DocumentType)
	assert.Equal(t, "45213", resp.Document.InvoiceNumber)
	assert.Equal(t, "1,200.00", resp.Document.TotalAmount)
}

func TestScanHandler_RecognitionFailure(t *testing.T) {
	s := newTestServer(&textRecognizer{failWith: recognize.ErrNotInstalled})

	body, contentType := multipartBody(t, "image", "whatever")
	req := httptest.NewRequest(http.MethodPost, "/v1/scan/vehicle", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.scanHandler(ModeVehicle)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ScanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.False(t, resp.Success)
	assert.Equal(t, recognize.ErrNotInstalled, resp.Error)
}

func TestScanHandler_NoFile(t *testing.T) {
	s := newTestServer(&textRecognizer{})

	body, contentType := multipartBody(t, "wrongfield", "data")
	req := httptest.NewRequest(http.MethodPost, "/v1/scan/vehicle", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.scanHandler(ModeVehicle)(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "image")
}

func TestScanHandler_MethodNotAllowed(t *testing.T) {
	s := newTestServer(&textRecognizer{})

	req := httptest.NewRequest(http.MethodGet, "/v1/scan/vehicle", nil)
	rec := httptest.NewRecorder()
	s.scanHandler(ModeVehicle)(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestBatchHandler_MergesUploadsInOrder(t *testing.T) {
	s := newTestServer(&textRecognizer{confidence: 0.5})

	body, contentType := multipartBody(t, "images",
		"Reg ABC 123 GP",
		"Reg XYZ 999 GP\nTOYOTA HILUX",
	)
	req := httptest.NewRequest(http.MethodPost, "/v1/batch/vehicle", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.batchHandler(ModeVehicle)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Count)
	require.NotNil(t, resp.Vehicle)
	assert.Equal(t, "ABC-123-GP", resp.Vehicle.RegistrationNumber, "first upload wins the field")
	assert.Equal(t, "TOYOTA", resp.Vehicle.VehicleMake)
	assert.Contains(t, resp.FullText, "Reg ABC 123 GP")
}

func TestBatchHandler_AllFailed(t *testing.T) {
	s := newTestServer(&textRecognizer{failWith: "decode image: bad data"})

	body, contentType := multipartBody(t, "images", "a", "b")
	req := httptest.NewRequest(http.MethodPost, "/v1/batch/document", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.batchHandler(ModeDocument)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.False(t, resp.Success)
	assert.Zero(t, resp.Confidence)
}

func TestBatchHandler_NoFiles(t *testing.T) {
	s := newTestServer(&textRecognizer{})

	body, contentType := multipartBody(t, "other", "a")
	req := httptest.NewRequest(http.MethodPost, "/v1/batch/vehicle", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.batchHandler(ModeVehicle)(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSMiddleware(t *testing.T) {
	s := newTestServer(&textRecognizer{})
	handler := s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/v1/scan/vehicle", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("passthrough", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/scan/vehicle", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestSetupRoutes(t *testing.T) {
	s := newTestServer(&textRecognizer{confidence: 1})
	mux := http.NewServeMux()
	s.SetupRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
