//go:build tesseract

// Package tesseract recognizes text with the Tesseract engine via gosseract.
//
// Tesseract support needs cgo, libtesseract and the trained data for the
// requested language (jpn for Japanese). Build with:
//
//	go build -tags tesseract
//
// Without the tag, New returns client.ErrUnsupported.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"

	"github.com/menta2k/image-ocr/pkg/types"
)

// Engine implements client.Recognizer on top of gosseract
type Engine struct {
	clientFactory func() *gosseract.Client
}

// New constructs a Tesseract-backed recognizer
func New() (*Engine, error) {
	return &Engine{clientFactory: gosseract.NewClient}, nil
}

func (e *Engine) Name() string { return "tesseract" }

// Version reports the linked libtesseract version
func (e *Engine) Version() string {
	c := e.clientFactory()
	defer c.Close()
	return c.Version()
}

// Recognize returns one fragment per text line in reading order
func (e *Engine) Recognize(ctx context.Context, img image.Image, opts types.RecognitionOptions) ([]types.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lang, err := types.TesseractLanguage(opts.Language)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("set language %s: %w", lang, err)
	}
	if err := c.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return nil, fmt.Errorf("set page segmentation: %w", err)
	}
	// CJK text has no word spacing; keep what the engine detects
	if err := c.SetVariable("preserve_interword_spaces", "1"); err != nil {
		return nil, fmt.Errorf("set variable: %w", err)
	}
	if opts.Mode == types.ModeFast {
		if err := c.SetVariable("tessedit_do_invert", "0"); err != nil {
			return nil, fmt.Errorf("set variable: %w", err)
		}
	}
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}

	fragments := make([]types.Fragment, 0, len(boxes))
	for _, b := range boxes {
		fragments = append(fragments, types.Fragment{
			Text:       b.Word,
			Confidence: b.Confidence / 100.0,
			Bounds:     b.Box,
		})
	}
	return fragments, nil
}
