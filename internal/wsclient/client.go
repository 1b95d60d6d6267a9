// Package wsclient is a terminal-side client for the /ws event channel.
package wsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Message types
const (
	TypeHello      = "hello"
	TypeHelloAck   = "hello_ack"
	TypeSetAPIKey  = "set_api_key"
	TypeReset      = "reset"
	TypeUserSubmit = "user_submit"
	TypeSynthesize = "synthesize"
	TypeState      = "state"
	TypeDelta      = "delta"
	TypeDone       = "done"
	TypeSpeech     = "speech"
	TypeError      = "error"
)

// Event is any message received from the server. Only the fields relevant to
// Type are set.
type Event struct {
	Type         string `json:"type"`
	Ts           int64  `json:"ts"`
	RequestID    string `json:"request_id,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
	Fragment     string `json:"fragment,omitempty"`
	Text         string `json:"text,omitempty"`
	FinalMessage string `json:"final_message,omitempty"`
	Audio        string `json:"audio,omitempty"`
	Code         string `json:"code,omitempty"`
	Message      string `json:"message,omitempty"`
	Session      *State `json:"session,omitempty"`
}

// State is the session snapshot carried by state events.
type State struct {
	SessionID   string `json:"session_id"`
	HasAPIKey   bool   `json:"has_api_key"`
	ActiveImage *struct {
		Filename string `json:"filename"`
	} `json:"active_image,omitempty"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// Client represents a WebSocket client.
type Client struct {
	conn      *websocket.Conn
	baseURL   string
	sessionID string
	http      *http.Client
	done      chan struct{}
}

// Dial connects to a server's /ws endpoint, e.g. ws://localhost:8080/ws.
func Dial(ctx context.Context, addr string) (*Client, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse address: %w", err)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	scheme := "http"
	if u.Scheme == "wss" {
		scheme = "https"
	}
	return &Client{
		conn:    conn,
		baseURL: scheme + "://" + u.Host,
		http:    &http.Client{Timeout: 60 * time.Second},
		done:    make(chan struct{}),
	}, nil
}

// SessionID returns the session bound by Hello.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Close closes the client connection.
func (c *Client) Close() error {
	close(c.done)
	return c.conn.Close()
}

// Hello binds the connection to sessionID, or to a new session when empty,
// and waits for hello_ack.
func (c *Client) Hello(sessionID string) error {
	if err := c.send(TypeHello, map[string]string{"session_id": sessionID}); err != nil {
		return fmt.Errorf("write hello: %w", err)
	}

	var ev Event
	if err := c.conn.ReadJSON(&ev); err != nil {
		return fmt.Errorf("read hello_ack: %w", err)
	}
	if ev.Type == TypeError {
		return fmt.Errorf("hello failed: %s - %s", ev.Code, ev.Message)
	}
	if ev.Type != TypeHelloAck {
		return fmt.Errorf("expected hello_ack, got: %s", ev.Type)
	}

	c.sessionID = ev.SessionID
	return nil
}

// SetAPIKey sends the session credential.
func (c *Client) SetAPIKey(key string) error {
	return c.send(TypeSetAPIKey, map[string]string{"api_key": key})
}

// Reset clears the transcript.
func (c *Client) Reset() error {
	return c.send(TypeReset, nil)
}

// Submit asks a question about the active image.
func (c *Client) Submit(text string) error {
	return c.send(TypeUserSubmit, map[string]string{"text": text})
}

// Synthesize asks for the latest answer as audio.
func (c *Client) Synthesize() error {
	return c.send(TypeSynthesize, nil)
}

func (c *Client) send(msgType string, fields map[string]string) error {
	msg := map[string]interface{}{
		"type":       msgType,
		"ts":         time.Now().UnixMilli(),
		"request_id": fmt.Sprintf("req_%d", time.Now().UnixNano()),
	}
	if c.sessionID != "" {
		msg["session_id"] = c.sessionID
	}
	for k, v := range fields {
		msg[k] = v
	}
	return c.conn.WriteJSON(msg)
}

// UploadImage posts a local file as the session's active image.
func (c *Client) UploadImage(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	endpoint := c.baseURL + "/v1/sessions/" + url.PathEscape(c.sessionID) + "/image"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("upload rejected [%d]: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("upload rejected [%d]: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}

// ReadEvents calls handle for every event until the connection closes.
func (c *Client) ReadEvents(handle func(Event)) error {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return nil
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		handle(ev)
	}
}
