package client

import (
	"context"
	"errors"
	"image"

	"github.com/menta2k/image-ocr/pkg/types"
)

// ErrUnsupported is returned by backends that were not compiled into the binary
var ErrUnsupported = errors.New("ocr backend not available in this build")

// Recognizer turns one image into an ordered list of recognized lines.
// Fragments are returned in the order the backend produced them.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, img image.Image, opts types.RecognitionOptions) ([]types.Fragment, error)
}

// RecognizerFunc adapts a plain function to the Recognizer interface
type RecognizerFunc func(ctx context.Context, img image.Image, opts types.RecognitionOptions) ([]types.Fragment, error)

func (f RecognizerFunc) Name() string { return "func" }

func (f RecognizerFunc) Recognize(ctx context.Context, img image.Image, opts types.RecognitionOptions) ([]types.Fragment, error) {
	return f(ctx, img, opts)
}
