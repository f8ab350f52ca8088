package types

import (
	"image"

	"github.com/google/uuid"
)

// Mode selects the recognition level requested from an OCR backend
type Mode string

const (
	ModeAccurate Mode = "accurate"
	ModeFast     Mode = "fast"
)

// RecognitionOptions describes how a backend should recognize text
type RecognitionOptions struct {
	Language            string `json:"language"`
	Mode                Mode   `json:"mode"`
	CandidatesPerRegion int    `json:"candidates_per_region"`
}

// DefaultRecognitionOptions returns accurate Japanese recognition with a single
// candidate per detected region.
func DefaultRecognitionOptions() RecognitionOptions {
	return RecognitionOptions{
		Language:            "ja",
		Mode:                ModeAccurate,
		CandidatesPerRegion: 1,
	}
}

// Fragment is one recognized line of text for one image.
// Bounds is in pixel coordinates and is empty when the backend
// does not report geometry.
type Fragment struct {
	Text       string          `json:"text"`
	Confidence float64         `json:"confidence"`
	Bounds     image.Rectangle `json:"bounds"`
}

// SelectedImage is an image picked for OCR. Image is nil when decoding failed.
type SelectedImage struct {
	ID        uuid.UUID
	Source    string
	Image     image.Image
	DecodeErr error
}

// NewSelectedImage wraps a decoded image (or a decode failure) with a fresh identity
func NewSelectedImage(source string, img image.Image, decodeErr error) SelectedImage {
	return SelectedImage{
		ID:        uuid.New(),
		Source:    source,
		Image:     img,
		DecodeErr: decodeErr,
	}
}

// Decoded reports whether the image pixels are available
func (s SelectedImage) Decoded() bool {
	return s.Image != nil
}
