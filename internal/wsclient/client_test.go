package wsclient

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaot623/gogo/imagechat/internal/adapter/llm"
	"github.com/xiaot623/gogo/imagechat/internal/config"
	"github.com/xiaot623/gogo/imagechat/internal/media"
	"github.com/xiaot623/gogo/imagechat/internal/repository"
	"github.com/xiaot623/gogo/imagechat/internal/service"
	"github.com/xiaot623/gogo/imagechat/internal/session"
	transport "github.com/xiaot623/gogo/imagechat/internal/transport/http"
	"github.com/xiaot623/gogo/imagechat/internal/transport/ws"
)

func startServer(t *testing.T) string {
	t.Helper()
	db, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Default()
	cfg.TempDir = t.TempDir()
	policy, err := media.NewPolicy(context.Background(), media.DefaultUploadPolicy, cfg.MaxUploadBytes, cfg.MaxImagePixels)
	require.NoError(t, err)
	svc := service.New(session.NewManager(db, llm.NewFactory(llm.ModeMock, "", time.Second)), policy, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := ws.NewHub()
	go hub.Run(ctx)

	server := httptest.NewServer(transport.NewServer(cfg, svc, hub, "test"))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func TestClientConversation(t *testing.T) {
	addr := startServer(t)
	ctx := context.Background()

	client, err := Dial(ctx, addr)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Hello(""))
	assert.True(t, strings.HasPrefix(client.SessionID(), "sess_"))

	events := make(chan Event, 64)
	go client.ReadEvents(func(ev Event) { events <- ev })

	next := func(want string) Event {
		t.Helper()
		for {
			select {
			case ev := <-events:
				if ev.Type == want {
					return ev
				}
				if ev.Type == TypeError {
					t.Fatalf("unexpected error event: %s %s", ev.Code, ev.Message)
				}
			case <-time.After(5 * time.Second):
				t.Fatalf("timed out waiting for %s", want)
			}
		}
	}

	state := next(TypeState)
	assert.False(t, state.Session.HasAPIKey)

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(t.TempDir(), "dot.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	require.NoError(t, client.UploadImage(ctx, path))

	require.NoError(t, client.SetAPIKey("sk-test"))
	state = next(TypeState)
	assert.True(t, state.Session.HasAPIKey)
	require.NotNil(t, state.Session.ActiveImage)
	assert.Equal(t, "dot.png", state.Session.ActiveImage.Filename)

	require.NoError(t, client.Submit("what is this?"))
	done := next(TypeDone)
	assert.Contains(t, done.FinalMessage, "about an image")

	require.NoError(t, client.Synthesize())
	speech := next(TypeSpeech)
	audio, err := media.DecodeDataURI(speech.Audio)
	require.NoError(t, err)
	assert.NotEmpty(t, audio)
}

func TestUploadImageRejected(t *testing.T) {
	addr := startServer(t)
	ctx := context.Background()

	client, err := Dial(ctx, addr)
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Hello(""))

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o600))

	err = client.UploadImage(ctx, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "415")
}
