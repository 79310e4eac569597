package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/fleetlens/fleetlens/internal/pdf"
	"github.com/fleetlens/fleetlens/internal/pipeline"
	"github.com/fleetlens/fleetlens/internal/recognize"
	"github.com/fleetlens/fleetlens/internal/version"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	s.writeJSON(w, http.StatusOK, response)
}

// scanHandler processes a single uploaded image through the extractor for
// the given mode.
func (s *Server) scanHandler(mode Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		data, err := s.readUpload(w, r, "image")
		if err != nil {
			return // error already written
		}

		ctx, cancel := s.requestContext(r)
		defer cancel()

		start := time.Now()
		resp := s.runScan(ctx, mode, strategyFromRequest(r), recognize.Input{Data: data})
		scanDuration.WithLabelValues(string(mode), "single").Observe(time.Since(start).Seconds())

		if resp.Success {
			scansTotal.WithLabelValues(string(mode), "single", "success").Inc()
			scanConfidence.WithLabelValues(string(mode)).Observe(resp.Confidence)
		} else {
			scansTotal.WithLabelValues(string(mode), "single", "error").Inc()
		}
		s.writeJSON(w, http.StatusOK, resp)
	}
}

// batchHandler processes all uploaded images concurrently and returns the
// reconciled record.
func (s *Server) batchHandler(mode Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		inputs, err := s.readUploads(w, r, "images")
		if err != nil {
			return // error already written
		}

		ctx, cancel := s.requestContext(r)
		defer cancel()

		start := time.Now()
		resp := s.runBatch(ctx, mode, strategyFromRequest(r), inputs)
		scanDuration.WithLabelValues(string(mode), "batch").Observe(time.Since(start).Seconds())

		if resp.Success {
			scansTotal.WithLabelValues(string(mode), "batch", "success").Inc()
			scanConfidence.WithLabelValues(string(mode)).Observe(resp.Confidence)
		} else {
			scansTotal.WithLabelValues(string(mode), "batch", "error").Inc()
		}
		s.writeJSON(w, http.StatusOK, resp)
	}
}

// pdfHandler extracts the embedded page images of an uploaded PDF and runs
// them through batch processing. Mode defaults to document.
func (s *Server) pdfHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := s.readUpload(w, r, "pdf")
	if err != nil {
		return // error already written
	}

	mode := Mode(r.FormValue("mode"))
	if mode != ModeVehicle {
		mode = ModeDocument
	}

	tmp, err := os.CreateTemp("", "fleetlens-upload-*.pdf")
	if err != nil {
		s.writeErrorResponse(w, "Failed to stage PDF", http.StatusInternalServerError)
		return
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(data); err != nil {
		s.writeErrorResponse(w, "Failed to stage PDF", http.StatusInternalServerError)
		return
	}

	inputs, err := pdf.ExtractInputs(tmp.Name(), r.FormValue("pages"))
	if err != nil {
		scansTotal.WithLabelValues(string(mode), "pdf", "error").Inc()
		s.writeErrorResponse(w, fmt.Sprintf("Failed to extract PDF images: %v", err), http.StatusBadRequest)
		return
	}
	if len(inputs) == 0 {
		s.writeErrorResponse(w, "PDF contains no images", http.StatusBadRequest)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	start := time.Now()
	resp := s.runBatch(ctx, mode, strategyFromRequest(r), inputs)
	scanDuration.WithLabelValues(string(mode), "pdf").Observe(time.Since(start).Seconds())

	if resp.Success {
		scansTotal.WithLabelValues(string(mode), "pdf", "success").Inc()
	} else {
		scansTotal.WithLabelValues(string(mode), "pdf", "error").Inc()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// runScan executes a single-image scan under the requested schema.
func (s *Server) runScan(ctx context.Context, mode Mode, strategy recognize.Strategy, in recognize.Input) ScanResponse {
	opts := pipeline.Options{Strategy: strategy, MaxWorkers: s.maxWorkers}
	resp := ScanResponse{Mode: mode}

	switch mode {
	case ModeVehicle:
		fields, res := pipeline.NewVehicle(s.recognizer, opts).ProcessOne(ctx, in)
		resp.Confidence = res.Confidence
		resp.Text = res.Text
		if res.Failed() {
			resp.Error = res.Err
			return resp
		}
		resp.Success = true
		resp.Vehicle = &fields
	default:
		fields, res := pipeline.NewDocument(s.recognizer, opts).ProcessOne(ctx, in)
		resp.Confidence = res.Confidence
		resp.Text = res.Text
		if res.Failed() {
			resp.Error = res.Err
			return resp
		}
		resp.Success = true
		resp.Document = &fields
	}
	return resp
}

// runBatch executes a multi-image scan under the requested schema.
func (s *Server) runBatch(ctx context.Context, mode Mode, strategy recognize.Strategy, ins []recognize.Input) BatchResponse {
	return s.runBatchWith(ctx, mode, pipeline.Options{Strategy: strategy, MaxWorkers: s.maxWorkers}, ins)
}

// readUpload parses the multipart form and returns the named file's bytes.
// On error a response has already been written.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, field string) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)

	if err := r.ParseMultipartForm(s.maxUploadMB * 1024 * 1024); err != nil {
		s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		return nil, err
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("No %s file provided", field), http.StatusBadRequest)
		return nil, err
	}
	defer func() { _ = file.Close() }()

	uploadSizeBytes.Observe(float64(header.Size))
	return readAll(w, s, file)
}

// readUploads returns the bytes of every file uploaded under the named
// field, preserving upload order (which fixes merge priority).
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request, field string) ([]recognize.Input, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)

	if err := r.ParseMultipartForm(s.maxUploadMB * 1024 * 1024); err != nil {
		s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		return nil, err
	}

	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		s.writeErrorResponse(w, fmt.Sprintf("No %s files provided", field), http.StatusBadRequest)
		return nil, fmt.Errorf("no %s files", field)
	}

	inputs := make([]recognize.Input, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			s.writeErrorResponse(w, "Failed to open uploaded file", http.StatusInternalServerError)
			return nil, err
		}
		uploadSizeBytes.Observe(float64(header.Size))
		data, err := readAll(w, s, file)
		_ = file.Close()
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, recognize.Input{Data: data})
	}
	return inputs, nil
}

func readAll(w http.ResponseWriter, s *Server, file multipart.File) ([]byte, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read file data", http.StatusInternalServerError)
		return nil, err
	}
	return data, nil
}

// requestContext bounds request processing by the configured timeout.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeoutSec <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), time.Duration(s.timeoutSec)*time.Second)
}

// strategyFromRequest resolves the backend strategy from the request form.
func strategyFromRequest(r *http.Request) recognize.Strategy {
	if r.FormValue("remote") == "true" {
		return recognize.StrategyRemote
	}
	return recognize.StrategyLocal
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, ErrorResponse{Error: message})
}
