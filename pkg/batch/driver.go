package batch

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/menta2k/image-ocr/pkg/client"
	"github.com/menta2k/image-ocr/pkg/dictionary"
	"github.com/menta2k/image-ocr/pkg/postprocess"
	"github.com/menta2k/image-ocr/pkg/types"
)

// SelectImagesMessage is published instead of running when there is nothing to do
const SelectImagesMessage = "select images first"

// Kind identifies a batch event
type Kind int

const (
	KindMessage Kind = iota
	KindProgress
	KindDone
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindProgress:
		return "progress"
	case KindDone:
		return "done"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Event is published by a running batch. Progress is on a 0-100 scale.
// Text is only set on the KindDone event.
type Event struct {
	Kind      Kind
	Message   string
	Index     int
	Completed int
	Total     int
	Progress  float64
	ImageID   uuid.UUID
	Source    string
	Fragments []types.Fragment
	Err       error
	Text      string
}

// Driver runs the post-processor over a list of images, one at a time
type Driver struct {
	recognizer client.Recognizer
	options    types.RecognitionOptions
}

// Option configures a Driver
type Option func(*Driver)

// WithRecognitionOptions overrides the recognition options passed to the backend
func WithRecognitionOptions(opts types.RecognitionOptions) Option {
	return func(d *Driver) { d.options = opts }
}

// NewDriver creates a driver with accurate Japanese recognition by default
func NewDriver(recognizer client.Recognizer, opts ...Option) *Driver {
	d := &Driver{
		recognizer: recognizer,
		options:    types.DefaultRecognitionOptions(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run starts a batch over a snapshot of images and returns its event stream.
// The channel is closed after the final event. Cancelling ctx stops the batch
// between images and drops an image interrupted mid-recognition; no final text
// is published in that case. Callers must drain the channel until it is closed.
func (d *Driver) Run(ctx context.Context, images []types.SelectedImage, set *dictionary.Set) <-chan Event {
	events := make(chan Event)
	snapshot := append([]types.SelectedImage(nil), images...)

	if len(snapshot) == 0 {
		go func() {
			defer close(events)
			events <- Event{Kind: KindMessage, Message: SelectImagesMessage}
		}()
		return events
	}

	go func() {
		defer close(events)
		d.run(ctx, snapshot, set, events)
	}()
	return events
}

func (d *Driver) run(ctx context.Context, images []types.SelectedImage, set *dictionary.Set, events chan<- Event) {
	total := len(images)
	blocks := make([]string, 0, total)

	for i, img := range images {
		if err := ctx.Err(); err != nil {
			events <- canceled(i, total, err)
			return
		}

		block := postprocess.Process(ctx, d.recognizer, img, set, d.options)
		// A backend interrupted by cancellation fails; that is not an OCR result
		if err := ctx.Err(); err != nil {
			events <- canceled(i, total, err)
			return
		}
		blocks = append(blocks, block.Text)

		ev := Event{
			Kind:      KindProgress,
			Index:     i,
			Completed: i + 1,
			Total:     total,
			Progress:  float64(i+1) * 100 / float64(total),
			ImageID:   img.ID,
			Source:    img.Source,
			Fragments: block.Fragments,
			Err:       block.Err,
		}
		select {
		case events <- ev:
		case <-ctx.Done():
			events <- canceled(i+1, total, ctx.Err())
			return
		}
	}

	events <- Event{
		Kind:      KindDone,
		Completed: total,
		Total:     total,
		Progress:  100,
		Text:      strings.Join(blocks, ""),
	}
}

func canceled(completed, total int, err error) Event {
	return Event{
		Kind:      KindCanceled,
		Completed: completed,
		Total:     total,
		Progress:  float64(completed) * 100 / float64(total),
		Err:       err,
	}
}

// RunSync runs a batch to completion and returns the aggregated text.
// The select-images message is returned as the text for an empty list.
func (d *Driver) RunSync(ctx context.Context, images []types.SelectedImage, set *dictionary.Set) (string, error) {
	var text string
	var err error
	for ev := range d.Run(ctx, images, set) {
		switch ev.Kind {
		case KindMessage:
			text = ev.Message
		case KindDone:
			text = ev.Text
		case KindCanceled:
			err = ev.Err
		}
	}
	return text, err
}
