// Package store defines the transcript storage interface and implementations.
package store

import (
	"context"

	"github.com/xiaot623/gogo/imagechat/internal/domain"
)

// Store defines the interface for transcript persistence.
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, session *domain.Session) error
	DeleteSession(ctx context.Context, sessionID string) error

	// Turn operations. AppendTurns writes all turns or none of them.
	AppendTurns(ctx context.Context, sessionID string, turns ...*domain.Turn) error
	ListTurns(ctx context.Context, sessionID string) ([]domain.Turn, error)
	ClearTurns(ctx context.Context, sessionID string) error

	// Lifecycle
	Close() error
}
