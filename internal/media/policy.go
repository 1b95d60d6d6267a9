package media

import (
	"bytes"
	"context"
	"image"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/xiaot623/gogo/imagechat/internal/domain"
	"github.com/xiaot623/gogo/imagechat/internal/policy"
)

// Upload policy decisions.
const (
	DecisionAllow    = "allow"
	DecisionReject   = "reject"
	DecisionTooLarge = "too_large"
)

// DefaultUploadPolicy accepts PNG and JPG files up to max_bytes whose declared
// dimensions stay within max_pixels.
const DefaultUploadPolicy = `
package upload_policy

default decision = "reject"

allowed_extensions = {".png", ".jpg", ".jpeg"}

allowed_types = {"image/png", "image/jpeg"}

decision = "allow" {
	allowed_extensions[input.extension]
	allowed_types[input.content_type]
	input.size_bytes > 0
	input.size_bytes <= input.max_bytes
	input.pixels <= input.max_pixels
}

decision = "too_large" {
	input.size_bytes > input.max_bytes
}

decision = "too_large" {
	input.size_bytes <= input.max_bytes
	input.pixels > input.max_pixels
}
`

// UploadInput is the document the upload policy is evaluated against.
type UploadInput struct {
	Filename    string `json:"filename"`
	Extension   string `json:"extension"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	MaxBytes    int64  `json:"max_bytes"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Pixels      int64  `json:"pixels"`
	MaxPixels   int64  `json:"max_pixels"`
}

// Policy decides whether an upload may become the active image.
type Policy struct {
	engine    *policy.Engine
	maxBytes  int64
	maxPixels int64
}

// NewPolicy prepares the upload policy. maxPixels bounds the decoded size of
// an image, which a small compressed file can inflate far beyond maxBytes.
func NewPolicy(ctx context.Context, policyContent string, maxBytes, maxPixels int64) (*Policy, error) {
	engine, err := policy.NewEngine(ctx, "data.upload_policy.decision", "upload_policy.rego", policyContent)
	if err != nil {
		return nil, err
	}
	return &Policy{engine: engine, maxBytes: maxBytes, maxPixels: maxPixels}, nil
}

// Check returns an UnsupportedMediaError unless the policy allows the upload.
func (p *Policy) Check(ctx context.Context, filename string, data []byte) error {
	input := UploadInput{
		Filename:    filename,
		Extension:   strings.ToLower(filepath.Ext(filename)),
		ContentType: http.DetectContentType(data),
		SizeBytes:   int64(len(data)),
		MaxBytes:    p.maxBytes,
		MaxPixels:   p.maxPixels,
	}
	// Only the header is read. Undecodable files are left to the encoder.
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		input.Width = cfg.Width
		input.Height = cfg.Height
		input.Pixels = int64(cfg.Width) * int64(cfg.Height)
	}

	decision, err := p.engine.Evaluate(ctx, input, DecisionReject)
	if err != nil {
		return err
	}
	if decision != DecisionAllow {
		return &domain.UnsupportedMediaError{Filename: filename, Reason: decision}
	}
	return nil
}
