// Package session holds per-session chat state: the API key, the active image
// and the transcript.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/xiaot623/gogo/imagechat/internal/adapter/llm"
	"github.com/xiaot623/gogo/imagechat/internal/domain"
	"github.com/xiaot623/gogo/imagechat/internal/media"
	"github.com/xiaot623/gogo/imagechat/internal/repository"
)

// Session is the context object handed to every handler of one interactive
// session. It is safe for concurrent use.
type Session struct {
	id        string
	createdAt time.Time
	store     store.Store
	newClient llm.ClientFactory

	mu         sync.RWMutex
	apiKey     string
	image      *media.EncodedImage
	lastActive time.Time

	op sync.Mutex
}

// Snapshot is a read-only view of a session for rendering.
type Snapshot struct {
	SessionID   string              `json:"session_id"`
	CreatedAt   time.Time           `json:"created_at"`
	HasAPIKey   bool                `json:"has_api_key"`
	ActiveImage *media.EncodedImage `json:"active_image,omitempty"`
	Messages    []domain.Turn       `json:"messages"`
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// SetAPIKey stores the credential. An empty key is ignored.
func (s *Session) SetAPIKey(key string) {
	if key == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = key
	s.lastActive = time.Now()
}

// HasAPIKey reports whether a credential has been set.
func (s *Session) HasAPIKey() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiKey != ""
}

// Client returns an API client for the session's key, or ErrConfiguration.
func (s *Session) Client() (llm.LLMClient, error) {
	s.mu.RLock()
	key := s.apiKey
	s.mu.RUnlock()

	if key == "" {
		return nil, domain.ErrConfiguration
	}
	return s.newClient(key), nil
}

// SetActiveImage replaces the active image.
func (s *Session) SetActiveImage(img *media.EncodedImage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = img
	s.lastActive = time.Now()
}

// ActiveImage returns the active image or nil.
func (s *Session) ActiveImage() *media.EncodedImage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.image
}

// ClearActiveImage drops the active image.
func (s *Session) ClearActiveImage() {
	s.SetActiveImage(nil)
}

// AppendTurn appends a single turn.
func (s *Session) AppendTurn(ctx context.Context, role domain.Role, content string) (*domain.Turn, error) {
	turn := &domain.Turn{Role: role, Content: content}
	if err := s.store.AppendTurns(ctx, s.id, turn); err != nil {
		return nil, err
	}
	s.touch()
	return turn, nil
}

// AppendExchange appends the user prompt and the assistant answer together:
// both are stored or neither is.
func (s *Session) AppendExchange(ctx context.Context, prompt, answer string) (user, assistant *domain.Turn, err error) {
	user = &domain.Turn{Role: domain.RoleUser, Content: prompt}
	assistant = &domain.Turn{Role: domain.RoleAssistant, Content: answer}
	if err := s.store.AppendTurns(ctx, s.id, user, assistant); err != nil {
		return nil, nil, err
	}
	s.touch()
	return user, assistant, nil
}

// ClearTurns empties the transcript.
func (s *Session) ClearTurns(ctx context.Context) error {
	if err := s.store.ClearTurns(ctx, s.id); err != nil {
		return err
	}
	s.touch()
	return nil
}

// Transcript returns all turns in append order.
func (s *Session) Transcript(ctx context.Context) ([]domain.Turn, error) {
	return s.store.ListTurns(ctx, s.id)
}

// LastAssistantTurn returns the most recent assistant turn, or
// ErrEmptyTranscript when there is none.
func (s *Session) LastAssistantTurn(ctx context.Context) (*domain.Turn, error) {
	turns, err := s.Transcript(ctx)
	if err != nil {
		return nil, err
	}
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == domain.RoleAssistant {
			return &turns[i], nil
		}
	}
	return nil, domain.ErrEmptyTranscript
}

// Acquire claims the session for one operation. It fails with ErrSessionBusy
// while another operation holds it.
func (s *Session) Acquire() (release func(), err error) {
	if !s.op.TryLock() {
		return nil, domain.ErrSessionBusy
	}
	s.touch()
	return s.op.Unlock, nil
}

// Snapshot returns the current state for rendering.
func (s *Session) Snapshot(ctx context.Context) (*Snapshot, error) {
	turns, err := s.Transcript(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		SessionID:   s.id,
		CreatedAt:   s.createdAt,
		HasAPIKey:   s.HasAPIKey(),
		ActiveImage: s.ActiveImage(),
		Messages:    turns,
	}, nil
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}
