// Package ws serves the interactive page's event channel over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/imagechat/internal/config"
	"github.com/xiaot623/gogo/imagechat/internal/domain"
	"github.com/xiaot623/gogo/imagechat/internal/service"
	"github.com/xiaot623/gogo/imagechat/internal/session"
)

// Server handles WebSocket connections.
type Server struct {
	cfg      *config.Config
	hub      *Hub
	service  *service.Service
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, h *Hub, svc *service.Service) *Server {
	return &Server{
		cfg:     cfg,
		hub:     h,
		service: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RegisterRoutes registers the WebSocket endpoint.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", s.HandleWebSocket)
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		return err
	}

	conn := s.hub.NewConnection(ws)
	s.hub.Register(conn)

	ws.SetReadLimit(s.cfg.MaxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn)

	return nil
}

// readPump reads messages from the WebSocket connection.
func (s *Server) readPump(conn *Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		s.handleMessage(conn, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (s *Server) writePump(conn *Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Failed to write message: %v", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches incoming messages to appropriate handlers.
func (s *Server) handleMessage(conn *Connection, data []byte) {
	var baseMsg BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		s.sendError(conn, conn.SessionID, "", ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	if baseMsg.Type == TypeHello {
		s.handleHello(conn, data)
		return
	}

	if conn.SessionID == "" {
		s.sendError(conn, conn.SessionID, baseMsg.RequestID, ErrorCodeSessionRequired, "must send hello first")
		return
	}
	sess, err := s.service.GetSession(conn.SessionID)
	if err != nil {
		s.sendError(conn, conn.SessionID, baseMsg.RequestID, domain.ErrorCode(err), err.Error())
		return
	}

	switch baseMsg.Type {
	case TypeSetAPIKey:
		s.handleSetAPIKey(conn, sess, data)
	case TypeReset:
		s.handleReset(conn, sess, baseMsg.RequestID)
	case TypeUserSubmit:
		s.handleUserSubmit(conn, sess, data)
	case TypeSynthesize:
		s.handleSynthesize(conn, sess, baseMsg.RequestID)
	default:
		s.sendError(conn, conn.SessionID, baseMsg.RequestID, ErrorCodeInvalidMessage, "unknown message type: "+baseMsg.Type)
	}
}

// handleHello binds the connection to an existing or new session.
func (s *Server) handleHello(conn *Connection, data []byte) {
	var msg HelloMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, conn.SessionID, "", ErrorCodeInvalidMessage, "invalid hello message")
		return
	}

	sess, err := s.service.ResumeSession(conn.ctx, msg.SessionID)
	if err != nil {
		s.sendError(conn, conn.SessionID, msg.RequestID, domain.ErrorCode(err), err.Error())
		return
	}

	s.hub.BindSession(conn, sess.ID())

	ack := HelloAckMessage{BaseMessage: s.base(TypeHelloAck, msg.RequestID, sess.ID())}
	s.hub.SendJSONToConnection(conn, ack)
	s.broadcastState(sess, msg.RequestID)

	log.Printf("Hello handshake completed for session: %s", sess.ID())
}

func (s *Server) handleSetAPIKey(conn *Connection, sess *session.Session, data []byte) {
	var msg SetAPIKeyMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, sess.ID(), "", ErrorCodeInvalidMessage, "invalid set_api_key message")
		return
	}
	if msg.APIKey == "" {
		s.sendError(conn, sess.ID(), msg.RequestID, ErrorCodeInvalidMessage, "api_key is required")
		return
	}

	s.service.SetAPIKey(sess, msg.APIKey)
	s.broadcastState(sess, msg.RequestID)
}

func (s *Server) handleReset(conn *Connection, sess *session.Session, requestID string) {
	if err := s.service.Reset(conn.ctx, sess); err != nil {
		s.sendError(conn, sess.ID(), requestID, domain.ErrorCode(err), err.Error())
		return
	}
	s.broadcastState(sess, requestID)
}

// handleUserSubmit runs a chat turn without blocking the read loop. Fragments
// are fanned out to every connection of the session.
func (s *Server) handleUserSubmit(conn *Connection, sess *session.Session, data []byte) {
	var msg UserSubmitMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, sess.ID(), "", ErrorCodeInvalidMessage, "invalid user_submit message")
		return
	}

	go func() {
		result, err := s.service.SendMessage(conn.ctx, sess, msg.Text, func(fragment, partial string) error {
			return s.hub.BroadcastJSON(sess.ID(), DeltaMessage{
				BaseMessage: s.base(TypeDelta, msg.RequestID, sess.ID()),
				Fragment:    fragment,
				Text:        partial,
			})
		})
		if err != nil {
			log.Printf("Chat turn failed for session %s: %v", sess.ID(), err)
			s.sendErrorToSession(sess.ID(), msg.RequestID, domain.ErrorCode(err), err.Error())
			return
		}

		s.hub.BroadcastJSON(sess.ID(), DoneMessage{
			BaseMessage:  s.base(TypeDone, msg.RequestID, sess.ID()),
			FinalMessage: result.Answer,
		})
		s.broadcastState(sess, msg.RequestID)
	}()
}

// handleSynthesize reads the latest answer aloud without blocking the read loop.
func (s *Server) handleSynthesize(conn *Connection, sess *session.Session, requestID string) {
	go func() {
		speech, err := s.service.SynthesizeSpeech(conn.ctx, sess)
		if err != nil {
			s.sendError(conn, sess.ID(), requestID, domain.ErrorCode(err), err.Error())
			return
		}

		s.hub.SendJSONToConnection(conn, SpeechMessage{
			BaseMessage: s.base(TypeSpeech, requestID, sess.ID()),
			Text:        speech.Text,
			Audio:       speech.DataURI(),
			HTML:        speech.HTML(),
		})
	}()
}

// broadcastState pushes the session snapshot to every connection of the session.
func (s *Server) broadcastState(sess *session.Session, requestID string) {
	snapshot, err := sess.Snapshot(context.Background())
	if err != nil {
		log.Printf("WARN: failed to snapshot session %s: %v", sess.ID(), err)
		return
	}
	s.hub.BroadcastJSON(sess.ID(), StateMessage{
		BaseMessage: s.base(TypeState, requestID, sess.ID()),
		Session:     snapshot,
	})
}

func (s *Server) base(msgType, requestID, sessionID string) BaseMessage {
	return BaseMessage{
		Type:      msgType,
		Ts:        time.Now().UnixMilli(),
		RequestID: requestID,
		SessionID: sessionID,
	}
}

// sendError sends an error message to a connection. The session ID is passed
// in because conn.SessionID may only be read from the connection's read loop.
func (s *Server) sendError(conn *Connection, sessionID, requestID, code, message string) {
	errMsg := ErrorMessage{
		BaseMessage: s.base(TypeError, requestID, sessionID),
		Code:        code,
		Message:     message,
	}
	s.hub.SendJSONToConnection(conn, errMsg)
}

// sendErrorToSession sends an error message to all connections of a session.
func (s *Server) sendErrorToSession(sessionID, requestID, code, message string) {
	errMsg := ErrorMessage{
		BaseMessage: s.base(TypeError, requestID, sessionID),
		Code:        code,
		Message:     message,
	}
	s.hub.BroadcastJSON(sessionID, errMsg)
}
