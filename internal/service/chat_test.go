package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaot623/gogo/imagechat/internal/domain"
)

func TestSendMessageRedSquareScenario(t *testing.T) {
	env := newTestEnv(t)
	env.api.fragments = []string{"This appears", " to be a red square."}
	ctx := context.Background()

	sess := env.newSession(t, "sk-test")
	img, err := env.svc.UploadImage(ctx, sess, "red.png", redSquarePNG(t, 10))
	require.NoError(t, err)

	var partials []string
	result, err := env.svc.SendMessage(ctx, sess, "What is in this image?", func(fragment, partial string) error {
		partials = append(partials, partial)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "This appears to be a red square.", result.Answer)
	assert.Equal(t, []string{"This appears", "This appears to be a red square."}, partials)
	assert.Equal(t, 2, result.Fragments)

	// exactly one completion request with prompt and image
	require.Len(t, env.api.chatRequests, 1)
	req := env.api.lastChat(t)
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.True(t, req.Stream)
	require.NotNil(t, req.MaxTokens)
	assert.Equal(t, 1024, *req.MaxTokens)
	require.Len(t, req.Messages, 1)
	parts := req.Messages[0].Content.Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "What is in this image?", parts[0].Text)
	require.NotNil(t, parts[1].ImageURL)
	assert.Equal(t, img.DataURI, parts[1].ImageURL.URL)
	assert.Equal(t, []string{"Bearer sk-test"}, env.api.authHeaders)

	turns, err := sess.Transcript(ctx)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, domain.RoleUser, turns[0].Role)
	assert.Equal(t, "What is in this image?", turns[0].Content)
	assert.Equal(t, domain.RoleAssistant, turns[1].Role)
	assert.Equal(t, "This appears to be a red square.", turns[1].Content)
}

func TestSendMessageTextOnly(t *testing.T) {
	env := newTestEnv(t)
	env.api.fragments = []string{"Hello", "!"}
	sess := env.newSession(t, "sk-test")

	result, err := env.svc.SendMessage(context.Background(), sess, "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello!", result.Answer)

	req := env.api.lastChat(t)
	assert.Nil(t, req.MaxTokens)
	assert.Empty(t, req.Messages[0].Content.Parts)
	assert.Equal(t, "hi", req.Messages[0].Content.Text)
}

func TestSendMessageWithoutKey(t *testing.T) {
	env := newTestEnv(t)
	sess := env.newSession(t, "")

	_, err := env.svc.SendMessage(context.Background(), sess, "hi", nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Equal(t, 0, env.api.calls())
}

func TestSendMessageEmptyPrompt(t *testing.T) {
	env := newTestEnv(t)
	sess := env.newSession(t, "sk-test")

	_, err := env.svc.SendMessage(context.Background(), sess, "   ", nil)
	assert.ErrorIs(t, err, domain.ErrEmptyPrompt)
	assert.Equal(t, 0, env.api.calls())
}

func TestSendMessageUpstreamErrorPersistsNothing(t *testing.T) {
	env := newTestEnv(t)
	env.api.chatStatus = http.StatusInternalServerError
	ctx := context.Background()
	sess := env.newSession(t, "sk-test")

	_, err := env.svc.SendMessage(ctx, sess, "hi", nil)
	var transportErr *domain.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, "completion", transportErr.Op)

	turns, err := sess.Transcript(ctx)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestSendMessageTruncatedStreamPersistsNothing(t *testing.T) {
	env := newTestEnv(t)
	env.api.fragments = []string{"half an ans"}
	env.api.truncate = true
	ctx := context.Background()
	sess := env.newSession(t, "sk-test")

	var partials []string
	_, err := env.svc.SendMessage(ctx, sess, "hi", func(_, partial string) error {
		partials = append(partials, partial)
		return nil
	})
	var transportErr *domain.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, []string{"half an ans"}, partials)

	turns, err := sess.Transcript(ctx)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestSendMessageTimeout(t *testing.T) {
	env := newTestEnv(t)
	env.api.hang = true
	env.cfg.CompletionTimeout = 50 * time.Millisecond
	sess := env.newSession(t, "sk-test")

	_, err := env.svc.SendMessage(context.Background(), sess, "hi", nil)
	var transportErr *domain.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSendMessageDeltaErrorAborts(t *testing.T) {
	env := newTestEnv(t)
	env.api.fragments = []string{"a", "b"}
	ctx := context.Background()
	sess := env.newSession(t, "sk-test")

	gone := errors.New("client went away")
	_, err := env.svc.SendMessage(ctx, sess, "hi", func(string, string) error { return gone })
	assert.ErrorIs(t, err, gone)

	turns, err := sess.Transcript(ctx)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestSendMessageBusySession(t *testing.T) {
	env := newTestEnv(t)
	sess := env.newSession(t, "sk-test")

	release, err := sess.Acquire()
	require.NoError(t, err)
	defer release()

	_, err = env.svc.SendMessage(context.Background(), sess, "hi", nil)
	assert.ErrorIs(t, err, domain.ErrSessionBusy)
	assert.Equal(t, 0, env.api.calls())
}

func TestSendMessageUsesLatestImage(t *testing.T) {
	env := newTestEnv(t)
	env.api.fragments = []string{"ok"}
	ctx := context.Background()
	sess := env.newSession(t, "sk-test")

	_, err := env.svc.UploadImage(ctx, sess, "first.png", redSquarePNG(t, 2))
	require.NoError(t, err)
	second, err := env.svc.UploadImage(ctx, sess, "second.png", redSquarePNG(t, 3))
	require.NoError(t, err)

	_, err = env.svc.SendMessage(ctx, sess, "describe", nil)
	require.NoError(t, err)
	assert.Equal(t, second.DataURI, env.api.lastChat(t).Messages[0].Content.Parts[1].ImageURL.URL)
}
