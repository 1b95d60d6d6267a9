package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xiaot623/gogo/imagechat/internal/adapter/llm"
	"github.com/xiaot623/gogo/imagechat/internal/config"
	"github.com/xiaot623/gogo/imagechat/internal/media"
	"github.com/xiaot623/gogo/imagechat/internal/repository"
	"github.com/xiaot623/gogo/imagechat/internal/session"
)

// fakeAPI is an OpenAI-compatible test server that records what it receives.
type fakeAPI struct {
	server *httptest.Server

	mu             sync.Mutex
	chatRequests   []llm.ChatCompletionRequest
	speechRequests []llm.SpeechRequest
	authHeaders    []string

	fragments    []string
	truncate     bool
	hang         bool
	chatStatus   int
	speechStatus int
	audio        []byte
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		chatStatus:   http.StatusOK,
		speechStatus: http.StatusOK,
		audio:        []byte("ID3-fake-mp3"),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAPI) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
	f.mu.Unlock()

	switch r.URL.Path {
	case "/v1/chat/completions":
		var req llm.ChatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.chatRequests = append(f.chatRequests, req)
		fragments, status, truncate, hang := f.fragments, f.chatStatus, f.truncate, f.hang
		f.mu.Unlock()

		if hang {
			<-r.Context().Done()
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"error":{"message":"upstream exploded","type":"server_error"}}`)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, frag := range fragments {
			fmt.Fprintf(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", frag)
		}
		if !truncate {
			fmt.Fprint(w, "data: [DONE]\n\n")
		}

	case "/v1/audio/speech":
		var req llm.SpeechRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.speechRequests = append(f.speechRequests, req)
		status, audio := f.speechStatus, f.audio
		f.mu.Unlock()

		if status != http.StatusOK {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"error":{"message":"tts down","type":"server_error"}}`)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(audio)

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chatRequests) + len(f.speechRequests)
}

func (f *fakeAPI) lastChat(t *testing.T) llm.ChatCompletionRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.chatRequests)
	return f.chatRequests[len(f.chatRequests)-1]
}

type testEnv struct {
	svc *Service
	api *fakeAPI
	cfg *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	api := newFakeAPI(t)

	cfg := config.Default()
	cfg.OpenAIBaseURL = api.server.URL
	cfg.TempDir = t.TempDir()
	cfg.CompletionTimeout = 2 * time.Second
	cfg.SpeechTimeout = 2 * time.Second

	db, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	policy, err := media.NewPolicy(context.Background(), media.DefaultUploadPolicy, cfg.MaxUploadBytes, cfg.MaxImagePixels)
	require.NoError(t, err)

	manager := session.NewManager(db, llm.NewFactory("", cfg.OpenAIBaseURL, 5*time.Second))
	return &testEnv{svc: New(manager, policy, cfg), api: api, cfg: cfg}
}

func (e *testEnv) newSession(t *testing.T, key string) *session.Session {
	t.Helper()
	sess, err := e.svc.CreateSession(context.Background())
	require.NoError(t, err)
	if key != "" {
		e.svc.SetAPIKey(sess, key)
	}
	return sess
}

func (e *testEnv) tempFiles(t *testing.T) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(e.cfg.TempDir)
	require.NoError(t, err)
	return entries
}

func redSquarePNG(t *testing.T, size int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
