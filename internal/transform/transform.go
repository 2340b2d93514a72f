// Package transform holds the byte-to-byte image operations the showcase
// pipeline applies: background removal and optional upscaling. Every variant,
// local or remote, satisfies the same Transform interface.
package transform

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/Lllllllleong/showcaseworker/internal/models"
)

// Transform turns one encoded image into another.
type Transform interface {
	// Name identifies the provider in logs and errors.
	Name() string
	// Apply returns the transformed image, PNG encoded.
	Apply(ctx context.Context, img []byte) ([]byte, error)
}

// Error is returned by every transform on failure.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

// Unwrap exposes both the ErrTransform sentinel and the cause.
func (e *Error) Unwrap() []error {
	return []error{models.ErrTransform, e.Err}
}

// Wrap converts err into an *Error for provider, keeping an existing *Error as is.
func Wrap(provider string, err error) error {
	if err == nil {
		return nil
	}
	if te, ok := err.(*Error); ok {
		return te
	}
	return &Error{Provider: provider, Err: err}
}

// maxDecodeEdge caps the declared width and height an input may have before
// its pixels are decoded.
const maxDecodeEdge = 16384

func decode(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}
	if cfg.Width > maxDecodeEdge || cfg.Height > maxDecodeEdge {
		return nil, fmt.Errorf("image is %dx%d, larger than the %dpx limit", cfg.Width, cfg.Height, maxDecodeEdge)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// ensurePNG fully decodes data and re-encodes it as PNG unless it already is
// one. Truncated or corrupt images fail here.
func ensurePNG(data []byte) ([]byte, error) {
	img, err := decode(data)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(data, pngSignature) {
		return data, nil
	}
	return encodePNG(img)
}
