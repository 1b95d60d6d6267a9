package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaot623/gogo/imagechat/internal/domain"
	"github.com/xiaot623/gogo/imagechat/internal/media"
)

func TestUploadImageSetsActiveImage(t *testing.T) {
	env := newTestEnv(t)
	sess := env.newSession(t, "")

	img, err := env.svc.UploadImage(context.Background(), sess, "red.png", redSquarePNG(t, 4))
	require.NoError(t, err)

	assert.Equal(t, 4, img.Width)
	assert.Equal(t, 4, img.Height)
	assert.Contains(t, img.DataURI, media.DataURIPrefix)
	assert.Same(t, img, sess.ActiveImage())
}

func TestUploadImageRejectedKeepsPreviousImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := env.newSession(t, "")

	first, err := env.svc.UploadImage(ctx, sess, "red.png", redSquarePNG(t, 4))
	require.NoError(t, err)

	_, err = env.svc.UploadImage(ctx, sess, "notes.txt", []byte("plain text, not an image"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedMedia)
	assert.Same(t, first, sess.ActiveImage())

	_, err = env.svc.UploadImage(ctx, sess, "fake.png", []byte("\x89PNG\r\n\x1a\ngarbage"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedMedia)
	assert.Same(t, first, sess.ActiveImage())
}

func TestClearImage(t *testing.T) {
	env := newTestEnv(t)
	sess := env.newSession(t, "")

	_, err := env.svc.UploadImage(context.Background(), sess, "red.png", redSquarePNG(t, 2))
	require.NoError(t, err)

	env.svc.ClearImage(sess)
	assert.Nil(t, sess.ActiveImage())
}
