package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/qrlens/internal/scan"
	"github.com/MeKo-Tech/qrlens/internal/utils"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsWriteWait  = 10 * time.Second
)

// Live scan message types.
const (
	liveTypeReady  = "ready"
	liveTypeResult = "scan_result"
	liveTypeError  = "error"
)

// LiveMessage is sent from the server to a live scan client.
type LiveMessage struct {
	Type      string      `json:"type"`
	Result    *ScanResult `json:"result,omitempty"`
	Frames    int         `json:"frames,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorType string      `json:"error_type,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
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

// liveScanHandler accepts a stream of binary image frames and decodes each
// with the direct strategy only. The first decoded frame ends the session.
func (s *Server) liveScanHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("Live scan session started", "remote_addr", r.RemoteAddr)

	conn.SetReadLimit(s.maxUploadMB * 1024 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					return
				}
			}
		}
	}()

	s.sendLiveMessage(conn, LiveMessage{Type: liveTypeReady})

	frames := 0
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("Live scan connection error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))

		if messageType != websocket.BinaryMessage {
			s.sendLiveError(conn, "invalid_request", "expected a binary image frame")
			continue
		}
		frames++

		result, err := s.scanFrame(r, data)
		if err != nil {
			s.sendLiveError(conn, "invalid_frame", err.Error())
			continue
		}
		if result == nil {
			continue
		}

		s.sendLiveMessage(conn, LiveMessage{Type: liveTypeResult, Result: result, Frames: frames})
		slog.Info("Live scan decoded", "frames", frames, "remote_addr", r.RemoteAddr)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "scan complete"),
			time.Now().Add(wsWriteWait))
		return
	}
}

// scanFrame decodes one frame. A nil result with a nil error means the
// frame held no readable code.
func (s *Server) scanFrame(r *http.Request, data []byte) (*ScanResult, error) {
	img, _, err := utils.DecodeImageBytes(data)
	if err == nil {
		img, err = utils.PrepareImage(img, s.constraints)
	}
	if err != nil {
		scanRequestsTotal.WithLabelValues("live", "error").Inc()
		return nil, err
	}

	res, err := s.live.DecodeImage(r.Context(), img)
	scanDuration.WithLabelValues("live").Observe(res.Duration.Seconds())
	switch {
	case errors.Is(err, scan.ErrExhausted):
		scanRequestsTotal.WithLabelValues("live", "not_found").Inc()
		return nil, nil
	case err != nil:
		scanRequestsTotal.WithLabelValues("live", "error").Inc()
		return nil, err
	}

	scanRequestsTotal.WithLabelValues("live", "found").Inc()
	scanWinningStrategy.WithLabelValues(res.Strategy).Inc()
	result := s.record(res, "live")
	b := img.Bounds()
	result.Width, result.Height = b.Dx(), b.Dy()
	return &result, nil
}

// sendLiveMessage sends a message over WebSocket.
func (s *Server) sendLiveMessage(conn WebSocketConnWriter, msg LiveMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to marshal WebSocket message", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendLiveError sends an error message over WebSocket.
func (s *Server) sendLiveError(conn WebSocketConnWriter, errorType, message string) {
	s.sendLiveMessage(conn, LiveMessage{Type: liveTypeError, Error: message, ErrorType: errorType})
}
