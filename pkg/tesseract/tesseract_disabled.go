//go:build !tesseract

// Package tesseract recognizes text with the Tesseract engine via gosseract.
//
// This is the stub used when the "tesseract" build tag is not set.
package tesseract

import (
	"context"
	"image"

	"github.com/menta2k/image-ocr/pkg/client"
	"github.com/menta2k/image-ocr/pkg/types"
)

// Engine is a stub that reports the backend as unavailable
type Engine struct{}

// New returns client.ErrUnsupported. Rebuild with -tags tesseract.
func New() (*Engine, error) {
	return nil, client.ErrUnsupported
}

func (e *Engine) Name() string { return "tesseract" }

func (e *Engine) Version() string { return "" }

func (e *Engine) Recognize(ctx context.Context, img image.Image, opts types.RecognitionOptions) ([]types.Fragment, error) {
	return nil, client.ErrUnsupported
}
