package service

import (
	"context"
	"log"

	"github.com/xiaot623/gogo/imagechat/internal/session"
)

// CreateSession starts a new session.
func (s *Service) CreateSession(ctx context.Context) (*session.Session, error) {
	return s.sessions.Create(ctx)
}

// GetSession looks up a live session.
func (s *Service) GetSession(sessionID string) (*session.Session, error) {
	return s.sessions.Get(sessionID)
}

// ResumeSession returns the session with the given ID or a new one.
func (s *Service) ResumeSession(ctx context.Context, sessionID string) (*session.Session, error) {
	return s.sessions.GetOrCreate(ctx, sessionID)
}

// EndSession destroys a session.
func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	return s.sessions.End(ctx, sessionID)
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	return s.sessions.Count()
}

// SetAPIKey handles the key-entered event.
func (s *Service) SetAPIKey(sess *session.Session, key string) {
	sess.SetAPIKey(key)
	log.Printf("API key set for session %s", sess.ID())
}

// Reset clears the transcript. The API key and active image are kept.
func (s *Service) Reset(ctx context.Context, sess *session.Session) error {
	release, err := sess.Acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := sess.ClearTurns(ctx); err != nil {
		return err
	}
	log.Printf("Transcript cleared for session %s", sess.ID())
	return nil
}
