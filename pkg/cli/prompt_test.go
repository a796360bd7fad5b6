package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func newTestPrompter(input string) (*Prompter, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &Prompter{In: strings.NewReader(input), Out: out}, out
}

func TestAsk(t *testing.T) {
	tests := []struct {
		name, input, def, want string
	}{
		{"answer", "hello\n", "default", "hello"},
		{"blank uses default", "\n", "fallback", "fallback"},
		{"whitespace uses default", "   \n", "fallback", "fallback"},
		{"trimmed", "  padded  \n", "", "padded"},
		{"eof uses default", "", "fallback", "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestPrompter(tt.input)
			if got := p.Ask("Q", tt.def); got != tt.want {
				t.Errorf("Ask() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAskShowsDefault(t *testing.T) {
	p, out := newTestPrompter("\n")
	p.Ask("Listen address", ":8080")
	if !strings.Contains(out.String(), "Listen address [:8080]: ") {
		t.Errorf("prompt = %q", out.String())
	}
}

func TestAskSecretFallback(t *testing.T) {
	p, _ := newTestPrompter("s3cret\n")
	if got := p.AskSecret("Password"); got != "s3cret" {
		t.Errorf("AskSecret() = %q", got)
	}
}

func TestAskValidRetries(t *testing.T) {
	p, out := newTestPrompter("ftp://x\nhttp://hr.local\n")
	validate := func(s string) error {
		if !strings.HasPrefix(s, "http") {
			return errors.New("must be an http(s) URL")
		}
		return nil
	}
	if got := p.AskValid("URL", "", validate); got != "http://hr.local" {
		t.Errorf("AskValid() = %q", got)
	}
	if !strings.Contains(out.String(), "must be an http(s) URL") {
		t.Error("validation error not shown")
	}
}

func TestAskValidStopsAtEOF(t *testing.T) {
	p, _ := newTestPrompter("bad\n")
	reject := func(string) error { return errors.New("no") }
	if got := p.AskValid("Q", "def", reject); got != "def" {
		t.Errorf("AskValid() = %q, want default after EOF", got)
	}
}

func TestChoose(t *testing.T) {
	opts := []string{"sqlite", "postgres"}
	tests := []struct {
		name, input, want string
	}{
		{"by number", "2\n", "postgres"},
		{"by name", "Postgres\n", "postgres"},
		{"default", "\n", "sqlite"},
		{"retry on invalid", "9\n1\n", "sqlite"},
		{"eof", "", "sqlite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestPrompter(tt.input)
			if got := p.Choose("Driver", opts, 0); got != tt.want {
				t.Errorf("Choose() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input      string
		defaultYes bool
		want       bool
	}{
		{"y\n", false, true},
		{"YES\n", false, true},
		{"n\n", true, false},
		{"\n", true, true},
		{"\n", false, false},
	}
	for _, tt := range tests {
		p, _ := newTestPrompter(tt.input)
		if got := p.Confirm("Continue?", tt.defaultYes); got != tt.want {
			t.Errorf("Confirm(%q, %v) = %v, want %v", tt.input, tt.defaultYes, got, tt.want)
		}
	}
}
