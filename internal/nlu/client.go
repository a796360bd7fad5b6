// Package nlu sends user turns to a Dialogflow-compatible detectIntent API.
package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tendawaks/dialogate/internal/config"
	"github.com/tendawaks/dialogate/pkg/protocol"
)

// ErrInvalidQuery is returned when the text/event or the session is empty.
var ErrInvalidQuery = errors.New("nlu: message and session are required")

// Query is one user turn. Exactly one of Text or Event is used; Event wins
// when both are set.
type Query struct {
	SessionID    string
	Text         string
	Event        string
	LanguageCode string // empty means the configured default
}

// Result is what the NLU engine matched and replied.
type Result struct {
	FulfillmentText string
	Intent          string
	Confidence      float64
}

type textInput struct {
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode"`
}

type eventInput struct {
	Name         string `json:"name"`
	LanguageCode string `json:"languageCode"`
}

type queryInput struct {
	Text  *textInput  `json:"text,omitempty"`
	Event *eventInput `json:"event,omitempty"`
}

type detectIntentRequest struct {
	QueryInput queryInput `json:"queryInput"`
}

type detectIntentResponse struct {
	ResponseID  string               `json:"responseId"`
	QueryResult protocol.QueryResult `json:"queryResult"`
}

// Client calls detectIntent for a single agent.
type Client struct {
	baseURL      string
	projectID    string
	accessToken  string
	languageCode string
	http         *http.Client
	logger       *slog.Logger
}

// New creates a Client from configuration.
func New(cfg config.NLUConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		projectID:    cfg.ProjectID,
		accessToken:  cfg.AccessToken,
		languageCode: cfg.LanguageCode,
		http:         &http.Client{Timeout: cfg.Timeout.Duration},
		logger:       logger.With("component", "nlu"),
	}
}

// DetectIntent sends q and returns the engine's reply.
func (c *Client) DetectIntent(ctx context.Context, q Query) (*Result, error) {
	if strings.TrimSpace(q.SessionID) == "" ||
		(strings.TrimSpace(q.Text) == "" && strings.TrimSpace(q.Event) == "") {
		return nil, ErrInvalidQuery
	}

	lang := q.LanguageCode
	if lang == "" {
		lang = c.languageCode
	}

	var in queryInput
	if q.Event != "" {
		in.Event = &eventInput{Name: q.Event, LanguageCode: lang}
	} else {
		in.Text = &textInput{Text: q.Text, LanguageCode: lang}
	}

	body, err := json.Marshal(detectIntentRequest{QueryInput: in})
	if err != nil {
		return nil, fmt.Errorf("nlu: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v2/projects/%s/agent/sessions/%s:detectIntent",
		c.baseURL, url.PathEscape(c.projectID), url.PathEscape(q.SessionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("nlu: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nlu: detect intent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("nlu: detect intent: status %d: %s", resp.StatusCode, snippet)
	}

	var out detectIntentResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("nlu: decode response: %w", err)
	}

	c.logger.Debug("intent detected",
		"session_id", q.SessionID,
		"intent", out.QueryResult.Intent.DisplayName,
		"confidence", out.QueryResult.IntentDetectionConfidence)

	return &Result{
		FulfillmentText: out.QueryResult.FulfillmentText,
		Intent:          out.QueryResult.Intent.DisplayName,
		Confidence:      out.QueryResult.IntentDetectionConfidence,
	}, nil
}
