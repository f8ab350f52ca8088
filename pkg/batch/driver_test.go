package batch

import (
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"sync"
	"testing"

	"github.com/menta2k/image-ocr/pkg/client"
	"github.com/menta2k/image-ocr/pkg/dictionary"
	"github.com/menta2k/image-ocr/pkg/postprocess"
	"github.com/menta2k/image-ocr/pkg/types"
)

// createTestImage creates a solid image whose red channel tags it for the fake recognizer
func createTestImage(tag uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{tag, 0, 0, 255})
		}
	}
	return img
}

// taggedRecognizer returns the lines registered for the image's red channel
func taggedRecognizer(lines map[uint8][]string) client.Recognizer {
	return client.RecognizerFunc(func(ctx context.Context, img image.Image, opts types.RecognitionOptions) ([]types.Fragment, error) {
		r, _, _, _ := img.At(0, 0).RGBA()
		tag := uint8(r >> 8)
		texts, ok := lines[tag]
		if !ok {
			return nil, errors.New("unknown image")
		}
		out := make([]types.Fragment, 0, len(texts))
		for _, t := range texts {
			out = append(out, types.Fragment{Text: t})
		}
		return out, nil
	})
}

func collect(events <-chan Event) []Event {
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestRunEmpty(t *testing.T) {
	called := false
	recognizer := client.RecognizerFunc(func(ctx context.Context, img image.Image, opts types.RecognitionOptions) ([]types.Fragment, error) {
		called = true
		return nil, nil
	})

	events := collect(NewDriver(recognizer).Run(context.Background(), nil, nil))

	if len(events) != 1 {
		t.Fatalf("Expected exactly 1 event, got %d", len(events))
	}
	if events[0].Kind != KindMessage || events[0].Message != SelectImagesMessage {
		t.Errorf("Unexpected event %+v", events[0])
	}
	if events[0].Progress != 0 {
		t.Errorf("Progress must stay zero, got %f", events[0].Progress)
	}
	if called {
		t.Error("Recognizer must not run for an empty batch")
	}
}

func TestRunOrderAndProgress(t *testing.T) {
	recognizer := taggedRecognizer(map[uint8][]string{
		1: {"ねこ", "いぬ"},
		3: {"さかな"},
	})
	images := []types.SelectedImage{
		types.NewSelectedImage("one.png", createTestImage(1), nil),
		types.NewSelectedImage("two.jpg", nil, errors.New("bad jpeg")),
		types.NewSelectedImage("three.png", createTestImage(3), nil),
	}
	set := dictionary.NewSet("ねこ")

	events := collect(NewDriver(recognizer).Run(context.Background(), images, set))

	if len(events) != 4 {
		t.Fatalf("Expected 4 events, got %d", len(events))
	}

	expectedProgress := []float64{100.0 / 3, 200.0 / 3, 100}
	for i := 0; i < 3; i++ {
		ev := events[i]
		if ev.Kind != KindProgress {
			t.Fatalf("Event %d: expected progress, got %s", i, ev.Kind)
		}
		if ev.Completed != i+1 || ev.Total != 3 {
			t.Errorf("Event %d: unexpected counts %d/%d", i, ev.Completed, ev.Total)
		}
		if ev.Progress != expectedProgress[i] {
			t.Errorf("Event %d: expected progress %f, got %f", i, expectedProgress[i], ev.Progress)
		}
		if ev.ImageID != images[i].ID {
			t.Errorf("Event %d: image id mismatch", i)
		}
		if ev.Text != "" {
			t.Errorf("Event %d: progress events must not carry text", i)
		}
	}

	if !errors.Is(events[1].Err, postprocess.ErrImageDecode) {
		t.Errorf("Expected decode error on image 2, got %v", events[1].Err)
	}

	done := events[3]
	if done.Kind != KindDone || done.Progress != 100 {
		t.Fatalf("Unexpected final event %+v", done)
	}

	expected := "ねこ\n[いぬ]\n\n" + postprocess.ImageNotLoadedLine + "\n\n" + "[さかな]\n\n"
	if done.Text != expected {
		t.Errorf("Expected %q, got %q", expected, done.Text)
	}
}

func TestRunOCRFailureContinues(t *testing.T) {
	recognizer := taggedRecognizer(map[uint8][]string{2: {"ok"}})
	images := []types.SelectedImage{
		types.NewSelectedImage("one.png", createTestImage(1), nil),
		types.NewSelectedImage("two.png", createTestImage(2), nil),
	}

	text, err := NewDriver(recognizer).RunSync(context.Background(), images, nil)
	if err != nil {
		t.Fatalf("RunSync failed: %v", err)
	}

	expected := postprocess.OCRFailedLine + "\n\n" + "[ok]\n\n"
	if text != expected {
		t.Errorf("Expected %q, got %q", expected, text)
	}
}

func TestRunSnapshotsImages(t *testing.T) {
	recognizer := taggedRecognizer(map[uint8][]string{1: {"a"}, 2: {"b"}})
	images := []types.SelectedImage{
		types.NewSelectedImage("one.png", createTestImage(1), nil),
		types.NewSelectedImage("two.png", createTestImage(2), nil),
	}

	events := NewDriver(recognizer).Run(context.Background(), images, nil)
	images[0] = types.NewSelectedImage("other.png", createTestImage(2), nil)

	var text string
	for ev := range events {
		if ev.Kind == KindDone {
			text = ev.Text
		}
	}

	if text != "[a]\n\n[b]\n\n" {
		t.Errorf("Batch must use the snapshot taken at start, got %q", text)
	}
}

func TestRunCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var once sync.Once
	recognizer := client.RecognizerFunc(func(c context.Context, img image.Image, opts types.RecognitionOptions) ([]types.Fragment, error) {
		once.Do(cancel)
		return []types.Fragment{{Text: "x"}}, nil
	})
	images := []types.SelectedImage{
		types.NewSelectedImage("one.png", createTestImage(1), nil),
		types.NewSelectedImage("two.png", createTestImage(2), nil),
		types.NewSelectedImage("three.png", createTestImage(3), nil),
	}

	events := collect(NewDriver(recognizer).Run(ctx, images, nil))

	last := events[len(events)-1]
	if last.Kind != KindCanceled {
		t.Fatalf("Expected canceled event last, got %s", last.Kind)
	}
	if !errors.Is(last.Err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", last.Err)
	}
	for _, ev := range events {
		if ev.Kind == KindDone {
			t.Error("Canceled batch must not publish final text")
		}
	}
	if last.Completed >= len(images) {
		t.Errorf("Expected batch to stop early, completed %d", last.Completed)
	}
}

func TestRunCancelDuringRecognition(t *testing.T) {
	images := []types.SelectedImage{
		types.NewSelectedImage("one.png", createTestImage(1), nil),
		types.NewSelectedImage("two.png", createTestImage(2), nil),
	}

	// Repeat so a racy choice between progress and cancellation would show up
	for i := 0; i < 50; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		recognizer := client.RecognizerFunc(func(c context.Context, img image.Image, opts types.RecognitionOptions) ([]types.Fragment, error) {
			cancel()
			return nil, c.Err()
		})

		events := collect(NewDriver(recognizer).Run(ctx, images, nil))
		cancel()

		if len(events) != 1 {
			t.Fatalf("Expected only a canceled event, got %d events", len(events))
		}
		ev := events[0]
		if ev.Kind != KindCanceled {
			t.Fatalf("Expected canceled event, got %s", ev.Kind)
		}
		if errors.Is(ev.Err, postprocess.ErrRecognition) || !errors.Is(ev.Err, context.Canceled) {
			t.Errorf("Interrupted image must not be reported as OCR failure, got %v", ev.Err)
		}
		if ev.Completed != 0 {
			t.Errorf("Interrupted image must not count as completed, got %d", ev.Completed)
		}
	}
}

func TestRunUsesSetSnapshot(t *testing.T) {
	recognizer := taggedRecognizer(map[uint8][]string{1: {"ねこ"}})
	images := []types.SelectedImage{types.NewSelectedImage("one.png", createTestImage(1), nil)}

	withSet, _ := NewDriver(recognizer).RunSync(context.Background(), images, dictionary.NewSet("ねこ"))
	withoutSet, _ := NewDriver(recognizer).RunSync(context.Background(), images, nil)

	if withSet != "ねこ\n\n" {
		t.Errorf("Unexpected text with set: %q", withSet)
	}
	if withoutSet != "[ねこ]\n\n" {
		t.Errorf("Unexpected text without set: %q", withoutSet)
	}
}

func TestRunSyncEmpty(t *testing.T) {
	text, err := NewDriver(taggedRecognizer(nil)).RunSync(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if text != SelectImagesMessage {
		t.Errorf("Expected %q, got %q", SelectImagesMessage, text)
	}
}

func TestWithRecognitionOptions(t *testing.T) {
	var got types.RecognitionOptions
	recognizer := client.RecognizerFunc(func(ctx context.Context, img image.Image, opts types.RecognitionOptions) ([]types.Fragment, error) {
		got = opts
		return nil, nil
	})
	opts := types.RecognitionOptions{Language: "en", Mode: types.ModeFast, CandidatesPerRegion: 1}
	images := []types.SelectedImage{types.NewSelectedImage("one.png", createTestImage(1), nil)}

	if _, err := NewDriver(recognizer, WithRecognitionOptions(opts)).RunSync(context.Background(), images, nil); err != nil {
		t.Fatalf("RunSync failed: %v", err)
	}
	if got != opts {
		t.Errorf("Expected %+v, got %+v", opts, got)
	}
}

func TestKindString(t *testing.T) {
	names := map[Kind]string{
		KindMessage:  "message",
		KindProgress: "progress",
		KindDone:     "done",
		KindCanceled: "canceled",
		Kind(99):     "unknown",
	}
	for k, want := range names {
		if !strings.EqualFold(k.String(), want) {
			t.Errorf("Kind %d: expected %s, got %s", k, want, k.String())
		}
	}
}
