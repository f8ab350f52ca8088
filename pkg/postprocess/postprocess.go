package postprocess

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/menta2k/image-ocr/pkg/client"
	"github.com/menta2k/image-ocr/pkg/dictionary"
	"github.com/menta2k/image-ocr/pkg/types"
)

// Fixed lines emitted in place of recognized text
const (
	ImageNotLoadedLine = "image could not be loaded"
	OCRFailedLine      = "OCR failed"
)

var (
	ErrImageDecode = errors.New("image could not be decoded")
	ErrRecognition = errors.New("text recognition failed")
)

// Block is the formatted output for a single image
type Block struct {
	Text      string
	Fragments []types.Fragment
	Err       error
}

// FormatLine trims a recognized line and wraps it in brackets unless the
// trimmed text is an exclusion entry.
func FormatLine(text string, set *dictionary.Set) string {
	text = strings.TrimSpace(text)
	if set.Contains(text) {
		return text
	}
	return "[" + text + "]"
}

// FormatFragments formats every fragment on its own line and appends the
// trailing blank line that separates blocks.
func FormatFragments(fragments []types.Fragment, set *dictionary.Set) string {
	var sb strings.Builder
	for _, f := range fragments {
		sb.WriteString(FormatLine(f.Text, set))
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	return sb.String()
}

// Process recognizes one image and formats the result. Failures never abort:
// they are reported as a fixed line in the block and in Block.Err.
func Process(ctx context.Context, recognizer client.Recognizer, img types.SelectedImage, set *dictionary.Set, opts types.RecognitionOptions) Block {
	if !img.Decoded() {
		cause := img.DecodeErr
		if cause == nil {
			cause = fmt.Errorf("no pixel data for %s", img.Source)
		}
		return Block{
			Text: ImageNotLoadedLine + "\n\n",
			Err:  fmt.Errorf("%w: %w", ErrImageDecode, cause),
		}
	}

	fragments, err := recognizer.Recognize(ctx, img.Image, opts)
	if err != nil {
		return Block{
			Text: OCRFailedLine + "\n\n",
			Err:  fmt.Errorf("%w: %s: %w", ErrRecognition, recognizer.Name(), err),
		}
	}

	return Block{
		Text:      FormatFragments(fragments, set),
		Fragments: fragments,
	}
}
