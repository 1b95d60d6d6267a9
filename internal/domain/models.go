package domain

import (
	"encoding/base64"
	"fmt"
	"time"
)

// Session is the persisted identity of one interactive chat session.
type Session struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Turn is one role-tagged message in a transcript. Seq is assigned by the
// store and defines transcript order.
type Turn struct {
	TurnID    string    `json:"turn_id"`
	SessionID string    `json:"session_id"`
	Seq       int64     `json:"seq"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Speech is synthesized audio for one assistant reply.
type Speech struct {
	Text     string `json:"text"`
	Format   string `json:"format"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

// DataURI returns the audio embedded as a base64 data URI.
func (s *Speech) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", s.MIMEType, base64.StdEncoding.EncodeToString(s.Data))
}

// HTML returns a self-playing audio element with the audio inlined.
func (s *Speech) HTML() string {
	return fmt.Sprintf("<audio autoplay=\"true\">\n<source src=\"%s\" type=\"%s\">\n</audio>", s.DataURI(), s.MIMEType)
}
