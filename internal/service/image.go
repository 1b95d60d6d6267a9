package service

import (
	"context"
	"log"

	"github.com/xiaot623/gogo/imagechat/internal/media"
	"github.com/xiaot623/gogo/imagechat/internal/session"
)

// UploadImage checks an upload against the policy, encodes it and makes it the
// session's active image. A rejected upload leaves the active image as it was.
func (s *Service) UploadImage(ctx context.Context, sess *session.Session, filename string, data []byte) (*media.EncodedImage, error) {
	if err := s.policy.Check(ctx, filename, data); err != nil {
		log.Printf("Upload rejected for session %s: %v", sess.ID(), err)
		return nil, err
	}

	img, err := media.Encode(filename, data)
	if err != nil {
		return nil, err
	}

	sess.SetActiveImage(img)
	log.Printf("Active image set for session %s: %s (%dx%d)", sess.ID(), filename, img.Width, img.Height)
	return img, nil
}

// ClearImage drops the session's active image.
func (s *Service) ClearImage(sess *session.Session) {
	sess.ClearActiveImage()
}
