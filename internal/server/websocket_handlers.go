package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fleetlens/fleetlens/internal/pipeline"
	"github.com/fleetlens/fleetlens/internal/recognize"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin in development
		// In production, you should check against allowed origins
		return true
	},
}

// WebSocketBatchRequest is a batch scan request sent over WebSocket. Images
// are base64-encoded by encoding/json on the wire.
type WebSocketBatchRequest struct {
	Mode   Mode     `json:"mode"`
	Remote bool     `json:"remote"`
	Images [][]byte `json:"images"`
}

// WebSocketBatchResponse is a streamed batch scan update. Status is one of
// "processing", "completed" or "error".
type WebSocketBatchResponse struct {
	Type      string         `json:"type"`
	Status    string         `json:"status"`
	Progress  float64        `json:"progress,omitempty"`
	Result    *BatchResponse `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// batchWebSocketHandler handles WebSocket connections for batch scans with
// live progress updates.
func (s *Server) batchWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	s.handleWebSocketConnection(r.Context(), conn)
}

// handleWebSocketConnection processes messages from a WebSocket connection.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	// Set read deadline to prevent hanging connections
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Send ping messages to keep connection alive
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			break
		}

		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(ctx, conn, data)
		}
	}
}

// handleWebSocketMessage runs a single batch request and streams progress.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn *websocket.Conn, data []byte) {
	var req WebSocketBatchRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}

	requestID := strconv.FormatInt(time.Now().UnixNano(), 10)

	if len(req.Images) == 0 {
		s.sendWebSocketError(conn, requestID, "No images provided")
		return
	}
	if req.Mode != ModeVehicle {
		req.Mode = ModeDocument
	}

	s.sendWebSocketResponse(conn, WebSocketBatchResponse{
		Type:      "batch_response",
		Status:    "processing",
		Progress:  0.0,
		RequestID: requestID,
	})

	inputs := make([]recognize.Input, len(req.Images))
	for i, img := range req.Images {
		inputs[i] = recognize.Input{Data: img}
	}

	strategy := recognize.StrategyLocal
	if req.Remote {
		strategy = recognize.StrategyRemote
	}

	// Writes happen from the progress callback and this goroutine; gorilla
	// connections allow only one concurrent writer.
	var writeMu sync.Mutex
	opts := pipeline.Options{
		Strategy:   strategy,
		MaxWorkers: s.maxWorkers,
		OnProgress: func(done, total int) {
			writeMu.Lock()
			defer writeMu.Unlock()
			s.sendWebSocketResponse(conn, WebSocketBatchResponse{
				Type:      "batch_response",
				Status:    "processing",
				Progress:  float64(done) / float64(total),
				RequestID: requestID,
			})
		},
	}

	cctx, cancel := s.requestContextFor(ctx)
	defer cancel()

	start := time.Now()
	resp := s.runBatchWith(cctx, req.Mode, opts, inputs)
	scanDuration.WithLabelValues(string(req.Mode), "websocket").Observe(time.Since(start).Seconds())

	status := "completed"
	if resp.Success {
		scansTotal.WithLabelValues(string(req.Mode), "websocket", "success").Inc()
		scanConfidence.WithLabelValues(string(req.Mode)).Observe(resp.Confidence)
	} else {
		scansTotal.WithLabelValues(string(req.Mode), "websocket", "error").Inc()
		status = "error"
	}

	writeMu.Lock()
	defer writeMu.Unlock()
	s.sendWebSocketResponse(conn, WebSocketBatchResponse{
		Type:      "batch_response",
		Status:    status,
		Progress:  1.0,
		Result:    &resp,
		RequestID: requestID,
	})
}

// runBatchWith is runBatch with caller-supplied pipeline options, so the
// WebSocket path can attach a progress callback.
func (s *Server) runBatchWith(ctx context.Context, mode Mode, opts pipeline.Options, ins []recognize.Input) BatchResponse {
	resp := BatchResponse{Mode: mode, Count: len(ins)}

	switch mode {
	case ModeVehicle:
		p := pipeline.NewVehicle(s.recognizer, opts)
		merged := p.ProcessMany(ctx, ins)
		resp.Confidence = merged.Confidence
		resp.FullText = merged.FullText
		resp.Vehicle = &merged.Fields
		resp.Success = p.State() != pipeline.StateFailed
	default:
		p := pipeline.NewDocument(s.recognizer, opts)
		merged := p.ProcessMany(ctx, ins)
		resp.Confidence = merged.Confidence
		resp.FullText = merged.FullText
		resp.Document = &merged.Fields
		resp.Success = p.State() != pipeline.StateFailed
	}
	return resp
}

func (s *Server) requestContextFor(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeoutSec <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(s.timeoutSec)*time.Second)
}

// sendWebSocketResponse marshals and sends a response over the connection.
func (s *Server) sendWebSocketResponse(conn *websocket.Conn, resp WebSocketBatchResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to write WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error response over the connection.
func (s *Server) sendWebSocketError(conn *websocket.Conn, requestID, message string) {
	s.sendWebSocketResponse(conn, WebSocketBatchResponse{
		Type:      "batch_response",
		Status:    "error",
		Error:     message,
		RequestID: requestID,
	})
}
