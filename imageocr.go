// Package imageocr runs OCR over a batch of images and formats the result
// against a user-supplied exclusion dictionary.
//
// Every recognized line is wrapped in brackets unless it exactly matches a
// dictionary entry, so unknown words stand out while known vocabulary stays
// bare. Blocks for each image are separated by a blank line.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		imageocr "github.com/menta2k/image-ocr"
//		"github.com/menta2k/image-ocr/pkg/ollama"
//	)
//
//	func main() {
//		recognizer, err := ollama.NewClient("http://localhost:11434", "")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		session := imageocr.New(recognizer)
//		if err := session.LoadDictionary("known_words.txt"); err != nil {
//			log.Print(err)
//		}
//		session.AddImages("page1.png", "page2.jpg")
//
//		if err := session.Run(context.Background()); err != nil {
//			log.Fatal(err)
//		}
//		fmt.Print(session.Result())
//	}
//
// The package consists of these components:
//
// 1. Dictionary (pkg/dictionary): loads the exclusion word list
// 2. Post-processor (pkg/postprocess): formats the lines of one image
// 3. Batch driver (pkg/batch): runs images in order and publishes progress
// 4. Backends (pkg/tesseract, pkg/ollama, pkg/llamacpp): recognize text
//
// Session holds the state a front-end needs and is safe for concurrent use.
package imageocr

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/google/uuid"

	"github.com/menta2k/image-ocr/pkg/batch"
	"github.com/menta2k/image-ocr/pkg/client"
	"github.com/menta2k/image-ocr/pkg/dictionary"
	"github.com/menta2k/image-ocr/pkg/processing"
	"github.com/menta2k/image-ocr/pkg/types"
)

// Version of the image OCR library
const Version = "1.0.0"

// Placeholder is the result text before any batch has completed
const Placeholder = "OCR results will appear here"

// Session is the application state for one user: the selected images, the
// active dictionary, and the progress and result of the latest batch.
type Session struct {
	mu sync.Mutex

	driver    *batch.Driver
	processor *processing.Processor

	images     []types.SelectedImage
	exclusions *dictionary.Set
	dictStatus string

	processing bool
	progress   float64
	result     string
	message    string
}

// New creates a Session with default recognition options
func New(recognizer client.Recognizer) *Session {
	return NewWithOptions(recognizer, types.DefaultRecognitionOptions())
}

// NewWithOptions creates a Session with custom recognition options
func NewWithOptions(recognizer client.Recognizer, opts types.RecognitionOptions) *Session {
	return &Session{
		driver:     batch.NewDriver(recognizer, batch.WithRecognitionOptions(opts)),
		processor:  processing.NewProcessor(),
		dictStatus: "no dictionary loaded",
		result:     Placeholder,
	}
}

// AddImages loads files or URLs and appends them to the selection. Sources
// that fail to decode are still added and show up as failures in the output.
// It returns the selected entries in order.
func (s *Session) AddImages(sources ...string) []types.SelectedImage {
	selected := s.processor.Select(sources...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append(s.images, selected...)
	return selected
}

// AddImage appends an already decoded image to the selection
func (s *Session) AddImage(source string, img image.Image) types.SelectedImage {
	var decodeErr error
	if img == nil {
		decodeErr = fmt.Errorf("no image data for %s", source)
	}
	selected := types.NewSelectedImage(source, img, decodeErr)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append(s.images, selected)
	return selected
}

// Remove drops an image from the selection. It reports whether it was present.
func (s *Session) Remove(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, img := range s.images {
		if img.ID == id {
			s.images = append(s.images[:i:i], s.images[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the selection
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = nil
}

// Images returns a copy of the current selection
func (s *Session) Images() []types.SelectedImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.SelectedImage(nil), s.images...)
}

// LoadDictionary replaces the exclusion set with the words in path. On failure
// the previous set stays active and the status reports the error.
func (s *Session) LoadDictionary(path string) error {
	set, err := dictionary.Load(path)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.dictStatus = err.Error()
		return err
	}
	s.exclusions = set
	s.dictStatus = set.Status()
	return nil
}

// SetDictionary installs an exclusion set directly
func (s *Session) SetDictionary(set *dictionary.Set) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exclusions = set
	s.dictStatus = set.Status()
}

// Dictionary returns the active exclusion set (nil when none is loaded)
func (s *Session) Dictionary() *dictionary.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exclusions
}

// DictionaryStatus is the human readable state of the dictionary
func (s *Session) DictionaryStatus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dictStatus
}

// Run processes the current selection and stores the result
func (s *Session) Run(ctx context.Context) error {
	return s.RunWithProgress(ctx, nil)
}

// RunWithProgress is Run with a callback invoked for every batch event after
// the session state has been updated.
func (s *Session) RunWithProgress(ctx context.Context, onEvent func(batch.Event)) error {
	s.mu.Lock()
	if s.processing {
		s.mu.Unlock()
		return fmt.Errorf("a batch is already running")
	}
	images := append([]types.SelectedImage(nil), s.images...)
	set := s.exclusions
	if len(images) > 0 {
		s.processing = true
		s.progress = 0
		s.message = ""
	}
	s.mu.Unlock()

	var runErr error
	for ev := range s.driver.Run(ctx, images, set) {
		s.apply(ev)
		if ev.Kind == batch.KindCanceled {
			runErr = ev.Err
		}
		if onEvent != nil {
			onEvent(ev)
		}
	}
	return runErr
}

func (s *Session) apply(ev batch.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev.Kind {
	case batch.KindMessage:
		s.message = ev.Message
	case batch.KindProgress:
		s.progress = ev.Progress
	case batch.KindDone:
		s.progress = ev.Progress
		s.result = ev.Text
		s.processing = false
	case batch.KindCanceled:
		s.message = fmt.Sprintf("canceled: %v", ev.Err)
		s.processing = false
	}
}

// Result returns the text of the last completed batch
func (s *Session) Result() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Progress returns the progress of the current or last batch (0-100)
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Processing reports whether a batch is running
func (s *Session) Processing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing
}

// Message returns the latest status message
func (s *Session) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// CanCopy reports whether there is a result worth exporting
func (s *Session) CanCopy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result != "" && s.result != Placeholder
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
