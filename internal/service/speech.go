package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/xiaot623/gogo/imagechat/internal/adapter/llm"
	"github.com/xiaot623/gogo/imagechat/internal/domain"
	"github.com/xiaot623/gogo/imagechat/internal/session"
)

const speechFormat = "mp3"

// SynthesizeSpeech reads the latest assistant turn aloud. The audio is
// buffered through a per-call temp file that is removed before returning.
func (s *Service) SynthesizeSpeech(ctx context.Context, sess *session.Session) (*domain.Speech, error) {
	release, err := sess.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	client, err := sess.Client()
	if err != nil {
		return nil, err
	}

	turn, err := sess.LastAssistantTurn(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(turn.Content) == "" {
		return nil, domain.ErrEmptyTranscript
	}

	ctx, cancel := withTimeout(ctx, s.config.SpeechTimeout)
	defer cancel()

	var speech *domain.Speech
	err = withTempFile(s.config.TempDir, "speech-*."+speechFormat, func(f *os.File) error {
		body, err := client.CreateSpeech(ctx, &llm.SpeechRequest{
			Model:          s.config.SpeechModel,
			Voice:          s.config.SpeechVoice,
			Input:          turn.Content,
			ResponseFormat: speechFormat,
		})
		if err != nil {
			return &domain.TransportError{Op: "speech", Err: err}
		}
		defer body.Close()

		if _, err := io.Copy(f, body); err != nil {
			return &domain.TransportError{Op: "speech", Err: err}
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return err
		}
		data, err := io.ReadAll(f)
		if err != nil {
			return err
		}

		speech = &domain.Speech{
			Text:     turn.Content,
			Format:   speechFormat,
			MIMEType: "audio/" + speechFormat,
			Data:     data,
		}
		return nil
	})
	if err != nil {
		log.Printf("WARN: speech synthesis failed for session %s: %v", sess.ID(), err)
		return nil, err
	}

	log.Printf("Speech synthesized for session %s: %d bytes", sess.ID(), len(speech.Data))
	return speech, nil
}

// withTempFile creates a uniquely named file in dir, passes it to fn and
// removes it on every path out.
func withTempFile(dir, pattern string, fn func(f *os.File) error) error {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		f.Close()
		if err := os.Remove(f.Name()); err != nil && !os.IsNotExist(err) {
			log.Printf("WARN: failed to remove temp file %s: %v", f.Name(), err)
		}
	}()

	return fn(f)
}
