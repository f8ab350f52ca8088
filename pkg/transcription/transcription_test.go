package transcription

import (
	"errors"
	"strings"
	"testing"

	"github.com/menta2k/image-ocr/pkg/types"
)

func texts(fragments []types.Fragment) []string {
	out := make([]string, 0, len(fragments))
	for _, f := range fragments {
		out = append(out, f.Text)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPromptMentionsLanguage(t *testing.T) {
	prompt := Prompt(types.DefaultRecognitionOptions())

	if !strings.Contains(prompt, "Japanese") {
		t.Errorf("Expected prompt to name Japanese, got:\n%s", prompt)
	}
	if !strings.Contains(prompt, `{"lines"`) {
		t.Error("Expected prompt to describe the JSON reply")
	}
}

func TestPromptFastMode(t *testing.T) {
	opts := types.RecognitionOptions{Language: "en", Mode: types.ModeFast}
	prompt := Prompt(opts)

	if !strings.Contains(prompt, "English") {
		t.Errorf("Expected English in prompt, got:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Speed") {
		t.Error("Expected fast-mode hint")
	}
}

func parse(t *testing.T, raw string) []string {
	t.Helper()
	fragments, err := ParseLines(raw)
	if err != nil {
		t.Fatalf("ParseLines(%q) failed: %v", raw, err)
	}
	return texts(fragments)
}

func TestParseLinesJSON(t *testing.T) {
	raw := "```json\n{\"lines\": [\"ねこ\", \"いぬ\",]}\n```"

	got := parse(t, raw)
	if !equal(got, []string{"ねこ", "いぬ"}) {
		t.Errorf("Unexpected lines %q", got)
	}
}

func TestParseLinesKeepsValidJSONVerbatim(t *testing.T) {
	raw := `{"lines": ["価格 1,000,]", "a/*b*/c", "// 注記"]}`

	got := parse(t, raw)
	if !equal(got, []string{"価格 1,000,]", "a/*b*/c", "// 注記"}) {
		t.Errorf("Valid JSON lines must not be rewritten, got %q", got)
	}
}

func TestParseLinesWithComments(t *testing.T) {
	raw := `{
  // lines from the top of the page
  "lines": ["見出し", /* body */ "本文 https://example.com"]
}`

	got := parse(t, raw)
	if !equal(got, []string{"見出し", "本文 https://example.com"}) {
		t.Errorf("Unexpected lines %q", got)
	}
}

func TestParseLinesPlainText(t *testing.T) {
	raw := "ねこ\n\n  いぬ \n"

	got := parse(t, raw)
	if !equal(got, []string{"ねこ", "  いぬ"}) {
		t.Errorf("Unexpected lines %q", got)
	}
}

func TestParseLinesFencedPlainText(t *testing.T) {
	got := parse(t, "```\nねこ\nいぬ\n```")
	if !equal(got, []string{"ねこ", "いぬ"}) {
		t.Errorf("Unexpected lines %q", got)
	}
}

func TestParseLinesEmpty(t *testing.T) {
	if got := parse(t, `{"lines": []}`); len(got) != 0 {
		t.Errorf("Expected no lines, got %v", got)
	}
	if got := parse(t, ""); len(got) != 0 {
		t.Errorf("Expected no lines, got %v", got)
	}
}

func TestParseLinesTruncatedJSON(t *testing.T) {
	cases := map[string]string{
		"truncated":           `{"lines": ["ねこ", "いぬ"`,
		"unterminated fence":  "```json\n{\n  \"lines\": [\n    \"ねこ\",\n    \"いぬ\"\n  ]",
		"cut inside a string": `{"lines": ["ねこ", "い`,
	}

	for name, raw := range cases {
		fragments, err := ParseLines(raw)
		if !errors.Is(err, ErrMalformedReply) {
			t.Errorf("%s: expected ErrMalformedReply, got %v", name, err)
		}
		if len(fragments) != 0 {
			t.Errorf("%s: JSON syntax must not become lines, got %q", name, texts(fragments))
		}
	}
}
