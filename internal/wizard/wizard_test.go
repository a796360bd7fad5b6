package wizard

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/tendawaks/dialogate/internal/config"
	"github.com/tendawaks/dialogate/pkg/cli"
)

func TestWizardInteractive(t *testing.T) {
	t.Setenv("NLU_ACCESS_TOKEN", "ya29.token")

	input := strings.Join([]string{
		":9090",                 // listen address
		"hr-agent",              // NLU project
		"",                      // language code: default
		"",                      // access token: env reference
		"ftp://nope",            // backend URL: rejected
		"http://hrms.local/api", // backend URL
		"y",                     // protect webhook
		"df",                    // webhook username
		"hookpass",              // webhook password
		"n",                     // LLM disabled
		"2",                     // session store: redis
		"",                      // redis address: default
		"1",                     // storage: sqlite
		"",                      // sqlite path: default
	}, "\n") + "\n"

	out := &bytes.Buffer{}
	p := &cli.Prompter{In: strings.NewReader(input), Out: out}
	path := filepath.Join(t.TempDir(), "dialogate.json")

	if err := New(p).Run(path); err != nil {
		t.Fatalf("Run: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}
	if len(cfg.Auth.JWTSecret) != 64 {
		t.Errorf("jwt_secret length = %d, want 64", len(cfg.Auth.JWTSecret))
	}
	if cfg.NLU.ProjectID != "hr-agent" || cfg.NLU.LanguageCode != "en-US" {
		t.Errorf("nlu = %+v", cfg.NLU)
	}
	if cfg.NLU.AccessToken != "ya29.token" {
		t.Errorf("nlu.access_token = %q, want env value", cfg.NLU.AccessToken)
	}
	if cfg.Backend.BaseURL != "http://hrms.local/api" {
		t.Errorf("backend.base_url = %q", cfg.Backend.BaseURL)
	}
	if cfg.Auth.WebhookUsername != "df" {
		t.Errorf("webhook_username = %q", cfg.Auth.WebhookUsername)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cfg.Auth.WebhookPasswordHash), []byte("hookpass")); err != nil {
		t.Errorf("webhook password hash does not match: %v", err)
	}
	if cfg.LLM.BaseURL != "" {
		t.Errorf("llm should be disabled, got %q", cfg.LLM.BaseURL)
	}
	if cfg.Session.Backend != "redis" || cfg.Session.Redis.Addr != "localhost:6379" {
		t.Errorf("session = %+v", cfg.Session)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.DSN != "dialogate.db" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if !strings.Contains(out.String(), "is not an http(s) URL") {
		t.Error("invalid backend URL was not reported")
	}
}

func TestWizardDefaultsYAML(t *testing.T) {
	t.Setenv("NLU_PROJECT_ID", "hr-agent")
	t.Setenv("HR_BACKEND_URL", "http://hrms.local/api")
	t.Setenv("DIALOGATE_ADDR", ":7000")

	p := &cli.Prompter{In: strings.NewReader(""), Out: &bytes.Buffer{}}
	path := filepath.Join(t.TempDir(), "dialogate.yaml")

	if err := New(p).RunDefaults(path); err != nil {
		t.Fatalf("RunDefaults: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}
	if cfg.NLU.ProjectID != "hr-agent" || cfg.Backend.BaseURL != "http://hrms.local/api" {
		t.Errorf("env references not resolved: %q %q", cfg.NLU.ProjectID, cfg.Backend.BaseURL)
	}
	if cfg.LLM.BaseURL != "" {
		t.Errorf("llm.base_url = %q, want empty when LLM_BASE_URL is unset", cfg.LLM.BaseURL)
	}
	if cfg.Auth.WebhookUsername != "" {
		t.Error("defaults should not configure webhook auth")
	}
}

func TestHTTPURL(t *testing.T) {
	for _, s := range []string{"http://a", "https://a.b/c"} {
		if err := httpURL(s); err != nil {
			t.Errorf("httpURL(%q) = %v", s, err)
		}
	}
	for _, s := range []string{"", "a.b", "ftp://a", "http://"} {
		if err := httpURL(s); err == nil {
			t.Errorf("httpURL(%q) accepted", s)
		}
	}
}
