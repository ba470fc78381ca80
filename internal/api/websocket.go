package api

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"portfolio-montecarlo/internal/observability"
)

const (
	wsWriteWait    = 10 * time.Second
	wsRequestWait  = 30 * time.Second
	progressFrames = 100 // progress messages per run, at most
)

// checkOrigin validates the WebSocket origin against the allowed list.
// With no list configured only same-host origins are accepted.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// non-browser clients
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		s.logger.Warn("rejected websocket origin", zap.String("origin", origin), zap.Error(err))
		return false
	}

	if len(s.allowedOrigins) == 0 {
		return u.Host == r.Host
	}
	originStr := u.Scheme + "://" + u.Host
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" || allowed == originStr {
			return true
		}
	}
	s.logger.Warn("rejected websocket origin", zap.String("origin", origin))
	return false
}

// wsSession serializes writes to one connection.
type wsSession struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (ws *wsSession) send(msgType string, data interface{}) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	_ = ws.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return ws.conn.WriteJSON(Message{Type: msgType, SessionID: ws.id, Data: data})
}

// handleWebSocket runs one simulation per connection.
// The client sends a SimulationRequest; the server streams progress
// messages, then a result (or error) message, and closes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	done := observability.WSClientConnected()
	defer done()

	ws := &wsSession{id: uuid.New().String(), conn: conn}
	logger := s.logger.With(zap.String("session_id", ws.id))
	logger.Info("websocket client connected", zap.String("remote_addr", r.RemoteAddr))

	_ = conn.SetReadDeadline(time.Now().Add(wsRequestWait))
	var req SimulationRequest
	if err := conn.ReadJSON(&req); err != nil {
		logger.Warn("invalid websocket request", zap.Error(err))
		_ = ws.send(TypeError, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	runReq, err := req.toRunRequest(s.defaults, s.maxTrials)
	if err != nil {
		_ = ws.send(TypeError, ErrorResponse{Error: err.Error()})
		return
	}

	every := runReq.Config.Trials / progressFrames
	if every < 1 {
		every = 1
	}
	runReq.Progress = func(completed, total int) {
		if completed%every != 0 && completed != total {
			return
		}
		if err := ws.send(TypeProgress, ProgressData{Done: completed, Total: total}); err != nil {
			logger.Debug("progress write failed", zap.Error(err))
		}
	}

	res, err := s.runner.Run(r.Context(), runReq)
	if err != nil {
		logger.Warn("websocket simulation failed", zap.Error(err))
		_ = ws.send(TypeError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := newRunResponse(res.Run, res.Cached).withProjection(req, res.Run.Summary.CI)
	if err := ws.send(TypeResult, resp); err != nil {
		logger.Warn("result write failed", zap.Error(err))
		return
	}

	ws.mu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
		time.Now().Add(wsWriteWait))
	ws.mu.Unlock()

	logger.Info("websocket simulation complete", zap.String("run_id", res.Run.RunID))
}
