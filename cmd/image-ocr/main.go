package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/atotto/clipboard"
	"github.com/google/uuid"

	imageocr "github.com/menta2k/image-ocr"
	"github.com/menta2k/image-ocr/internal/config"
	"github.com/menta2k/image-ocr/internal/utils"
	"github.com/menta2k/image-ocr/pkg/batch"
	"github.com/menta2k/image-ocr/pkg/client"
	"github.com/menta2k/image-ocr/pkg/llamacpp"
	"github.com/menta2k/image-ocr/pkg/ollama"
	"github.com/menta2k/image-ocr/pkg/processing"
	"github.com/menta2k/image-ocr/pkg/tesseract"
	"github.com/menta2k/image-ocr/pkg/types"
)

// prober is implemented by the model backends
type prober interface {
	SimpleQuery(ctx context.Context, prompt string, img image.Image) (string, error)
}

func main() {
	var configPath, dict, backend, url, model, lang, mode string
	var out string
	var copyResult, debug bool
	var sendFmt string
	var sendSize, sendQ int
	var probe string

	flag.StringVar(&configPath, "config", "", "config file (json or yaml), defaults to "+config.GetConfigPath()+" if present")
	flag.StringVar(&dict, "dict", "", "exclusion dictionary: UTF-8 text, one word per line")
	flag.StringVar(&backend, "backend", "ollama", "OCR backend: ollama|llamacpp|tesseract (tesseract needs a -tags tesseract build)")
	flag.StringVar(&url, "url", "", "server URL (defaults: ollama=http://localhost:11434, llamacpp=http://localhost:8080)")
	flag.StringVar(&model, "model", "", "vision model name (ollama default "+ollama.DefaultModel+")")
	flag.StringVar(&lang, "lang", "ja", "recognition language (BCP-47)")
	flag.StringVar(&mode, "mode", "accurate", "recognition mode: accurate|fast")

	flag.StringVar(&out, "out", "", "write the result to this file instead of stdout")
	flag.BoolVar(&copyResult, "copy", false, "copy the result to the clipboard")
	flag.BoolVar(&debug, "debug", false, "save images with recognized line boxes drawn on them")

	flag.StringVar(&sendFmt, "sendfmt", "png", "format sent to vision models: jpg|png")
	flag.IntVar(&sendSize, "sendsize", 2048, "max long side sent to vision models (px), 0=original")
	flag.IntVar(&sendQ, "sendq", 90, "JPEG quality for images sent to vision models (1-100)")

	flag.StringVar(&probe, "probe", "", "send this prompt with the first image to the model backend and print the raw reply")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] image|dir|URL...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	cfg.ApplyEnv()

	// Only flags given on the command line override file and environment
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dict":
			cfg.Output.Dictionary = dict
		case "backend":
			cfg.OCR.Backend = backend
		case "url":
			cfg.OCR.URL = url
		case "model":
			cfg.OCR.Model = model
		case "lang":
			cfg.OCR.Language = lang
		case "mode":
			cfg.OCR.Mode = mode
		case "copy":
			cfg.Output.CopyToClipboard = copyResult
		case "debug":
			cfg.Output.DebugOverlay = debug
		case "sendfmt":
			cfg.Input.SendFormat = sendFmt
		case "sendsize":
			cfg.Input.SendSize = sendSize
		case "sendq":
			cfg.Input.SendQuality = sendQ
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	sources, err := utils.ExpandSources(flag.Args(), cfg.Input.SupportedFormats)
	if err != nil {
		log.Fatal(err)
	}

	recognizer, err := newRecognizer(cfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	session := imageocr.NewWithOptions(recognizer, cfg.RecognitionOptions())
	if cfg.Output.Dictionary != "" {
		if err := session.LoadDictionary(cfg.Output.Dictionary); err != nil {
			log.Printf("dictionary: %v", err)
		}
	}
	log.Printf("backend=%s lang=%s mode=%s dictionary: %s",
		recognizer.Name(), cfg.OCR.Language, cfg.OCR.Mode, session.DictionaryStatus())

	selected := session.AddImages(sources...)
	for _, img := range selected {
		if !img.Decoded() {
			log.Printf("cannot load %s: %v", img.Source, img.DecodeErr)
		}
	}

	if probe != "" {
		runProbe(ctx, recognizer, probe, selected)
		return
	}

	processor := processing.NewProcessor()
	byID := make(map[uuid.UUID]types.SelectedImage, len(selected))
	for _, img := range selected {
		byID[img.ID] = img
	}

	err = session.RunWithProgress(ctx, func(ev batch.Event) {
		switch ev.Kind {
		case batch.KindProgress:
			log.Printf("progress %3.0f%% (%d/%d) %s", ev.Progress, ev.Completed, ev.Total, ev.Source)
			if ev.Err != nil {
				log.Printf("  %v", ev.Err)
			}
			if cfg.Output.DebugOverlay {
				saveOverlay(processor, cfg, byID[ev.ImageID], ev.Fragments)
			}
		case batch.KindMessage:
			log.Print(ev.Message)
		}
	})
	if err != nil {
		log.Fatalf("stopped: %v", err)
	}
	if !session.CanCopy() {
		os.Exit(1)
	}

	result := session.Result()
	if out != "" {
		if err := utils.EnsureDir(filepath.Dir(out)); err != nil {
			log.Fatal(err)
		}
		if err := os.WriteFile(out, []byte(result), 0o644); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote %s (%s)", out, utils.FormatFileSize(int64(len(result))))
	} else {
		fmt.Print(result)
	}

	if cfg.Output.CopyToClipboard {
		if err := clipboard.WriteAll(result); err != nil {
			log.Printf("clipboard: %v", err)
		} else {
			log.Printf("copied result to clipboard")
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	if def := config.GetConfigPath(); utils.FileExists(def) {
		return config.LoadFromFile(def)
	}
	return config.Default(), nil
}

func newRecognizer(cfg *config.Config) (client.Recognizer, error) {
	enc := processing.ModelEncoding{
		Format:  cfg.Input.SendFormat,
		MaxDim:  cfg.Input.SendSize,
		Quality: cfg.Input.SendQuality,
	}
	timeout := time.Duration(cfg.OCR.TimeoutSeconds) * time.Second

	switch cfg.OCR.Backend {
	case "tesseract":
		engine, err := tesseract.New()
		if errors.Is(err, client.ErrUnsupported) {
			return nil, fmt.Errorf("%w: rebuild with -tags tesseract or pick another backend", err)
		}
		if err != nil {
			return nil, err
		}
		return engine, nil
	case "ollama":
		u := cfg.OCR.URL
		if u == "" {
			u = "http://localhost:11434"
		}
		opts := []ollama.Option{ollama.WithEncoding(enc)}
		if timeout > 0 {
			opts = append(opts, ollama.WithTimeout(timeout))
		}
		c, err := ollama.NewClient(u, cfg.OCR.Model, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		return c, nil
	case "llamacpp":
		opts := []llamacpp.Option{llamacpp.WithEncoding(enc)}
		if timeout > 0 {
			opts = append(opts, llamacpp.WithTimeout(timeout))
		}
		c, err := llamacpp.NewClient(cfg.OCR.URL, cfg.OCR.Model, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown backend: %s (use tesseract, ollama or llamacpp)", cfg.OCR.Backend)
	}
}

func runProbe(ctx context.Context, recognizer client.Recognizer, prompt string, selected []types.SelectedImage) {
	p, ok := recognizer.(prober)
	if !ok {
		log.Fatalf("-probe needs a model backend, not %s", recognizer.Name())
	}
	for _, img := range selected {
		if !img.Decoded() {
			continue
		}
		reply, err := p.SimpleQuery(ctx, prompt, img.Image)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(reply)
		return
	}
	log.Fatal(batch.SelectImagesMessage)
}

func saveOverlay(processor *processing.Processor, cfg *config.Config, img types.SelectedImage, fragments []types.Fragment) {
	if !img.Decoded() {
		return
	}
	if err := utils.EnsureDir(cfg.Output.OutputDir); err != nil {
		log.Printf("debug overlay: %v", err)
		return
	}
	path := utils.GenerateOutputFilename(img.Source, cfg.Output.OutputDir, cfg.Output.Prefix, cfg.Output.Suffix+"_boxes", "png")
	overlay := processor.CreateDebugOverlay(img.Image, fragments)
	if err := processor.SaveImage(overlay, path, "png", 0, false); err != nil {
		log.Printf("debug overlay save failed: %v", err)
		return
	}
	log.Printf("wrote %s", path)
}
