// Package media converts uploaded images into data URIs for the vision endpoint.
package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"strings"
	"time"

	"github.com/xiaot623/gogo/imagechat/internal/domain"
)

// DataURIPrefix is prepended to the base64 payload. The payload is always PNG;
// the endpoint accepts the jpeg label for it.
const DataURIPrefix = "data:image/jpeg;base64,"

// EncodedImage is the active image of a session.
type EncodedImage struct {
	Filename   string    `json:"filename"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	PNG        []byte    `json:"-"`
	DataURI    string    `json:"-"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Encode decodes a PNG or JPEG upload, re-encodes it as PNG and wraps the
// result as a data URI.
func Encode(filename string, data []byte) (*EncodedImage, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &domain.UnsupportedMediaError{Filename: filename, Reason: "cannot decode image: " + err.Error()}
	}
	if format != "png" && format != "jpeg" {
		return nil, &domain.UnsupportedMediaError{Filename: filename, Reason: "format " + format}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}

	bounds := img.Bounds()
	return &EncodedImage{
		Filename:   filename,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		PNG:        buf.Bytes(),
		DataURI:    DataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()),
		UploadedAt: time.Now(),
	}, nil
}

// DecodeDataURI returns the bytes embedded in a base64 data URI.
func DecodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("not a base64 data URI")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode data URI: %w", err)
	}
	return data, nil
}
