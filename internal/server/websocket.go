package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/savestate/internal/core/observability/log"
	"github.com/zeusync/savestate/pkg/encoding"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

const writeWait = 10 * time.Second

// wsStatus is the JSON reply to every websocket request. A successful save
// is followed by one binary frame holding the document.
type wsStatus struct {
	Op      string        `json:"op"`
	OK      bool          `json:"ok"`
	Error   string        `json:"error,omitempty"`
	Digest  string        `json:"digest,omitempty"`
	Removed int           `json:"removed,omitempty"`
	Load    *loadResponse `json:"load,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", log.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.maxBody)
	logger := s.logger.With(log.String("remote", conn.RemoteAddr().String()))
	logger.Debug("websocket connected")

	for {
		kind, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("websocket read failed", log.Error(err))
			}
			return
		}
		if err = s.serveMessage(r, conn, kind, payload); err != nil {
			logger.Warn("websocket write failed", log.Error(err))
			return
		}
	}
}

func (s *Server) serveMessage(r *http.Request, conn *websocket.Conn, kind int, payload []byte) error {
	ctx := r.Context()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

	if kind == websocket.BinaryMessage {
		res, err := s.engine.LoadBytes(ctx, payload)
		if err != nil {
			return conn.WriteJSON(wsStatus{Op: "load", Error: err.Error()})
		}
		return conn.WriteJSON(wsStatus{Op: "load", OK: true, Load: newLoadResponse(res)})
	}

	switch cmd := strings.TrimSpace(string(payload)); cmd {
	case "save":
		data, err := s.engine.SaveBytes(ctx)
		if err != nil {
			return conn.WriteJSON(wsStatus{Op: cmd, Error: err.Error()})
		}
		if err = conn.WriteJSON(wsStatus{Op: cmd, OK: true, Digest: encoding.Digest(data)}); err != nil {
			return err
		}
		return conn.WriteMessage(websocket.BinaryMessage, data)
	case "reset":
		removed, err := s.engine.RemoveRegistered(ctx)
		if err != nil {
			return conn.WriteJSON(wsStatus{Op: cmd, Error: err.Error()})
		}
		return conn.WriteJSON(wsStatus{Op: cmd, OK: true, Removed: removed})
	default:
		return conn.WriteJSON(wsStatus{Op: cmd, Error: fmt.Errorf("%w: %q", ErrInvalidMessage, cmd).Error()})
	}
}
