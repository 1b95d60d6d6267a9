// Package service sequences chat turns, speech synthesis and image uploads
// for a session.
package service

import (
	"context"
	"time"

	"github.com/xiaot623/gogo/imagechat/internal/config"
	"github.com/xiaot623/gogo/imagechat/internal/session"
)

// UploadPolicy decides whether an upload may become the active image.
type UploadPolicy interface {
	Check(ctx context.Context, filename string, data []byte) error
}

type Service struct {
	sessions *session.Manager
	policy   UploadPolicy
	config   *config.Config
}

func New(sessions *session.Manager, policy UploadPolicy, cfg *config.Config) *Service {
	return &Service{
		sessions: sessions,
		policy:   policy,
		config:   cfg,
	}
}

// withTimeout bounds ctx when d is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
