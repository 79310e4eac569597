package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fleetlens/fleetlens/internal/extract"
	"github.com/fleetlens/fleetlens/internal/pipeline"
)

// Mode selects which extraction schema a request runs through.
type Mode string

const (
	ModeVehicle  Mode = "vehicle"
	ModeDocument Mode = "document"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	recognizer  pipeline.Recognizer
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	maxWorkers  int
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	MaxWorkers  int
}

// HealthResponse reports server liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ScanResponse is the result of a single-image scan.
type ScanResponse struct {
	Success    bool              `json:"success"`
	Mode       Mode              `json:"mode"`
	Confidence float64           `json:"confidence"`
	Text       string            `json:"text,omitempty"`
	Vehicle    *extract.Vehicle  `json:"vehicle,omitempty"`
	Document   *extract.Document `json:"document,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// BatchResponse is the reconciled result of a multi-image scan.
type BatchResponse struct {
	Success    bool              `json:"success"`
	Mode       Mode              `json:"mode"`
	Count      int               `json:"count"`
	Confidence float64           `json:"confidence"`
	FullText   string            `json:"full_text"`
	Vehicle    *extract.Vehicle  `json:"vehicle,omitempty"`
	Document   *extract.Document `json:"document,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewServer creates a scan server around a recognition provider.
func NewServer(recognizer pipeline.Recognizer, config Config) *Server {
	return &Server{
		recognizer:  recognizer,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
		maxWorkers:  config.MaxWorkers,
	}
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/v1/scan/vehicle", s.corsMiddleware(s.scanHandler(ModeVehicle)))
	mux.HandleFunc("/v1/scan/document", s.corsMiddleware(s.scanHandler(ModeDocument)))
	mux.HandleFunc("/v1/batch/vehicle", s.corsMiddleware(s.batchHandler(ModeVehicle)))
	mux.HandleFunc("/v1/batch/document", s.corsMiddleware(s.batchHandler(ModeDocument)))
	mux.HandleFunc("/v1/scan/pdf", s.corsMiddleware(s.pdfHandler))
	mux.HandleFunc("/ws/batch", s.batchWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}
