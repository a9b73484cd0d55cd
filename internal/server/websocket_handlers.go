package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/platefinder/internal/lookup"
	"github.com/MeKo-Tech/platefinder/internal/pipeline"
	"github.com/MeKo-Tech/platefinder/internal/utils"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second

	// Room for the JSON fields around the image payload.
	wsEnvelopeBytes = 64 << 10
)

// WebSocketPlateRequest is a client message on /ws/plates.
type WebSocketPlateRequest struct {
	Type     string `json:"type"` // "image" or "lookup"
	Image    []byte `json:"image,omitempty"`
	Filename string `json:"filename,omitempty"`
	Plate    string `json:"plate,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketPlateResponse is a server message on /ws/plates.
type WebSocketPlateResponse struct {
	Type      string  `json:"type"`
	Status    string  `json:"status"` // "processing", "completed", "error"
	Progress  float64 `json:"progress,omitempty"`
	Result    any     `json:"result,omitempty"`
	Message   string  `json:"message,omitempty"`
	Error     string  `json:"error,omitempty"`
	ErrorType string  `json:"error_type,omitempty"`
	RequestID string  `json:"request_id,omitempty"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return s.corsOrigin == "*" || origin == "" || origin == s.corsOrigin
		},
	}
}

// plateWebSocketHandler streams plate results over a websocket.
func (s *Server) plateWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade connection to websocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("websocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(r.Context(), conn)
}

// wsReadLimit bounds a single request frame. Images travel base64 encoded
// inside a JSON envelope, so the upload limit is widened by the encoding.
func (s *Server) wsReadLimit() int64 {
	return int64(base64.StdEncoding.EncodedLen(int(s.maxUploadMB*1024*1024))) + wsEnvelopeBytes
}

// handleWebSocketConnection reads requests until the client goes away.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(s.wsReadLimit())
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				slog.Warn("websocket message exceeds upload limit", "limit_bytes", s.wsReadLimit())
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("websocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(ctx, conn, data)
		}
	}
}

// handleWebSocketMessage dispatches one client request.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, data []byte) {
	var req WebSocketPlateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("failed to parse request: %v", err))
		return
	}

	requestID := uuid.NewString()
	if s.pipeline == nil {
		s.sendWebSocketError(conn, requestID, "unavailable", "plate pipeline not initialized")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.timeoutSec)*time.Second)
	defer cancel()

	switch req.Type {
	case "image":
		s.processWebSocketImage(ctx, conn, req, requestID)
	case "lookup":
		s.processWebSocketLookup(ctx, conn, req, requestID)
	default:
		s.sendWebSocketError(conn, requestID, "invalid_request", "unsupported request type: "+req.Type)
	}
}

// processWebSocketImage runs the full pipeline on an image message.
func (s *Server) processWebSocketImage(ctx context.Context, conn WebSocketConnWriter, req WebSocketPlateRequest, requestID string) {
	if len(req.Image) == 0 {
		s.sendWebSocketError(conn, requestID, "invalid_request", "no image data provided")
		return
	}

	img, _, err := utils.DecodeImageBytes(req.Image)
	if err != nil {
		s.sendWebSocketError(conn, requestID, "invalid_image", err.Error())
		return
	}

	s.sendWebSocketResponse(conn, WebSocketPlateResponse{
		Type:      "plate_response",
		Status:    "processing",
		Progress:  0.5,
		RequestID: requestID,
	})

	start := time.Now()
	res, err := s.pipeline.ProcessImage(ctx, img, req.Filename)
	observeRequest("websocket_image", err, time.Since(start))
	if err != nil {
		s.sendWebSocketError(conn, requestID, "processing_error", fmt.Sprintf("plate processing failed: %v", err))
		return
	}
	res.Source = req.Filename
	observeResult("websocket_image", res)

	resp := WebSocketPlateResponse{
		Type:      "plate_response",
		Status:    "completed",
		Progress:  1.0,
		Result:    res,
		RequestID: requestID,
	}
	if res.LookupStatus == pipeline.LookupNotFound {
		resp.Message = pipeline.NotFoundMessage
	}
	s.sendWebSocketResponse(conn, resp)
}

// processWebSocketLookup resolves a plate without an image.
func (s *Server) processWebSocketLookup(ctx context.Context, conn WebSocketConnWriter, req WebSocketPlateRequest, requestID string) {
	plate := lookup.Key(req.Plate)
	if plate == "" {
		s.sendWebSocketError(conn, requestID, "invalid_request", "no plate given")
		return
	}

	start := time.Now()
	rec, err := s.pipeline.LookupPlate(ctx, plate)
	observeRequest("lookup", err, time.Since(start))
	switch {
	case err == nil:
		s.sendWebSocketResponse(conn, WebSocketPlateResponse{
			Type:      "lookup_response",
			Status:    "completed",
			Progress:  1.0,
			Result:    LookupResponse{Plate: plate, Vehicle: &rec},
			RequestID: requestID,
		})
	case errors.Is(err, lookup.ErrNotFound):
		s.sendWebSocketError(conn, requestID, "not_found", pipeline.NotFoundMessage)
	default:
		s.sendWebSocketError(conn, requestID, "lookup_error", err.Error())
	}
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketPlateResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("failed to marshal websocket response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("failed to send websocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketPlateResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
		RequestID: requestID,
	})
}
