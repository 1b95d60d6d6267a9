package ws

import (
	"github.com/xiaot623/gogo/imagechat/internal/session"
)

// Message types from client to server
const (
	TypeHello      = "hello"
	TypeSetAPIKey  = "set_api_key"
	TypeReset      = "reset"
	TypeUserSubmit = "user_submit"
	TypeSynthesize = "synthesize"
)

// Message types from server to client
const (
	TypeHelloAck = "hello_ack"
	TypeState    = "state"
	TypeDelta    = "delta"
	TypeDone     = "done"
	TypeSpeech   = "speech"
	TypeError    = "error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	RequestID string `json:"request_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// HelloMessage binds the connection to a session. An empty or unknown
// session ID starts a new session.
type HelloMessage struct {
	BaseMessage
}

// HelloAckMessage confirms the session the connection is bound to.
type HelloAckMessage struct {
	BaseMessage
}

// SetAPIKeyMessage carries the key entered in the sidebar.
type SetAPIKeyMessage struct {
	BaseMessage
	APIKey string `json:"api_key"`
}

// UserSubmitMessage carries a chat prompt.
type UserSubmitMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// StateMessage carries everything the page renders from.
type StateMessage struct {
	BaseMessage
	Session *session.Snapshot `json:"session"`
}

// DeltaMessage carries one answer fragment and the text so far.
type DeltaMessage struct {
	BaseMessage
	Fragment string `json:"fragment"`
	Text     string `json:"text"`
}

// DoneMessage ends a chat turn.
type DoneMessage struct {
	BaseMessage
	FinalMessage string `json:"final_message"`
}

// SpeechMessage carries synthesized audio for autoplay.
type SpeechMessage struct {
	BaseMessage
	Text  string `json:"text"`
	Audio string `json:"audio"`
	HTML  string `json:"html"`
}

// ErrorMessage is sent when a request fails.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes beyond those shared with the REST API
const (
	ErrorCodeInvalidMessage  = "invalid_message"
	ErrorCodeSessionRequired = "session_required"
)
