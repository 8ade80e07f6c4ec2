package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/askbird/askbird/internal/bus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// clientMessage is what browsers send over the socket.
type clientMessage struct {
	Action     string    `json:"action"` // joinQuestion | leaveQuestion | newAnswer
	QuestionID uuid.UUID `json:"questionId"`
	Answer     string    `json:"answer,omitempty"`
}

type wsError struct {
	Error string `json:"error"`
}

// handleWebSocket upgrades the connection and runs its read loop. One
// connection can watch several question rooms at once; answers posted over
// the socket are announced to everyone in the room except the sender.
func (s *Server) handleWebSocket(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade WebSocket: %w", err)
	}

	hubConn := s.hub.Connect(conn)
	defer s.hub.Disconnect(hubConn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sendWSError(hubConn, "invalid message")
			continue
		}

		if err := s.handleClientMessage(c.Request().Context(), hubConn, actor, msg); err != nil {
			sendWSError(hubConn, err.Error())
		}
	}

	return nil
}

func (s *Server) handleClientMessage(ctx context.Context, hubConn *bus.Conn, actor uuid.UUID, msg clientMessage) error {
	switch msg.Action {
	case "joinQuestion":
		if err := s.app.EnsureQuestion(ctx, msg.QuestionID); err != nil {
			return fmt.Errorf("question not found")
		}
		if err := s.hub.Subscribe(hubConn, msg.QuestionID); err != nil {
			return err
		}
		return nil

	case "leaveQuestion":
		s.hub.Unsubscribe(hubConn, msg.QuestionID)
		return nil

	case "newAnswer":
		_, err := s.app.CreateAnswer(ctx, msg.QuestionID, actor, msg.Answer, hubConn.ID)
		return err

	default:
		return fmt.Errorf("unknown action %q", msg.Action)
	}
}

// sendWSError pushes an error frame through the hub-owned writer so the
// single-writer rule stays intact.
func sendWSError(hubConn *bus.Conn, message string) {
	payload, err := json.Marshal(wsError{Error: message})
	if err != nil {
		return
	}
	if !hubConn.Send(payload) {
		slog.Debug("Dropped WebSocket error frame, send buffer full")
	}
}
