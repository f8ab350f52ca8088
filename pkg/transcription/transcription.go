// Package transcription builds OCR prompts for vision language models and
// parses their replies into ordered text lines.
package transcription

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/menta2k/image-ocr/pkg/types"
)

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

const promptTemplate = `You are an OCR engine. Read every piece of %s text in the image.

Return JSON only:
{"lines": ["first line", "second line"]}

HARD RULES
- One entry per detected text line, ordered top-to-bottom, then left-to-right.
- Copy the text exactly as printed. Do not translate, romanize, correct or explain.
- %s
- If there is no text, return {"lines": []}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// ErrMalformedReply is returned when a reply that starts as JSON cannot be parsed,
// which usually means the model hit its output limit.
var ErrMalformedReply = errors.New("model reply is not valid JSON")

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLine     = regexp.MustCompile(`(?m)^\s*//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

// Prompt returns the transcription prompt for the given options
func Prompt(opts types.RecognitionOptions) string {
	detail := "Give the single most likely reading for each line."
	if opts.Mode == types.ModeFast {
		detail = "Speed matters more than perfect accuracy; skip tiny or decorative text."
	}
	return fmt.Sprintf(promptTemplate, types.LanguageName(opts.Language), detail)
}

type reply struct {
	Lines []string `json:"lines"`
}

// ParseLines extracts the recognized lines from a model reply. JSON replies of
// the form {"lines": [...]} are preferred; anything else is treated as plain
// text with one line per row. A reply that starts as JSON but does not parse
// even after cleanup is an error rather than text.
func ParseLines(raw string) ([]types.Fragment, error) {
	body := stripFences(raw)
	if !strings.HasPrefix(body, "{") {
		return toFragments(strings.Split(body, "\n")), nil
	}

	// Strict first: cleanup regexes would also rewrite the recognized strings
	var r reply
	err := json.Unmarshal([]byte(body), &r)
	if err == nil {
		return toFragments(r.Lines), nil
	}
	if cleaned := SanitizeModelJSON(raw); cleaned != body {
		var rc reply
		if json.Unmarshal([]byte(cleaned), &rc) == nil {
			return toFragments(rc.Lines), nil
		}
	}
	return nil, fmt.Errorf("%w: %w", ErrMalformedReply, err)
}

func toFragments(lines []string) []types.Fragment {
	out := make([]types.Fragment, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, types.Fragment{Text: l})
	}
	return out
}

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		} else {
			raw = ""
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	return strings.TrimSpace(raw)
}

// SanitizeModelJSON removes code fences, comments, and trailing commas from a
// JSON reply and keeps only the outermost object.
func SanitizeModelJSON(raw string) string {
	raw = stripFences(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlock.ReplaceAllString(raw, "")
	// Only whole-line // comments: recognized text may contain "//" (URLs).
	raw = reLine.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
