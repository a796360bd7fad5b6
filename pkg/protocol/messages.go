// Package protocol defines the JSON messages exchanged between dialogate and
// its clients: the chat API, the NLU fulfillment webhook, and the chat
// WebSocket.
package protocol

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ChatRequest is the body of POST /api/chat and the payload of a
// chat.message WebSocket frame.
type ChatRequest struct {
	Message      string `json:"message"`
	SessionID    string `json:"sessionId,omitempty"`
	EmployeeID   string `json:"employeeId,omitempty"`
	LanguageCode string `json:"languageCode,omitempty"`
	Event        string `json:"event,omitempty"` // triggers an event intent instead of text
}

// ChatReply is returned for every chat request, successful or not.
type ChatReply struct {
	Success    bool   `json:"success"`
	Reply      string `json:"reply"`
	SessionID  string `json:"sessionId"`
	EmployeeID string `json:"employeeId,omitempty"`
	Error      string `json:"error,omitempty"`
}

// WebhookRequest is the fulfillment call the NLU engine makes after
// matching an intent.
type WebhookRequest struct {
	ResponseID  string      `json:"responseId,omitempty"`
	Session     string      `json:"session"`
	QueryResult QueryResult `json:"queryResult"`
}

// SessionKey returns the last path segment of Session, e.g. "abc" for
// "projects/p/agent/sessions/abc".
func (w WebhookRequest) SessionKey() string {
	if i := strings.LastIndex(w.Session, "/"); i >= 0 {
		return w.Session[i+1:]
	}
	return w.Session
}

// QueryResult is the matched intent and its extracted parameters.
type QueryResult struct {
	QueryText                 string         `json:"queryText"`
	Parameters                map[string]any `json:"parameters,omitempty"`
	Intent                    Intent         `json:"intent"`
	IntentDetectionConfidence float64        `json:"intentDetectionConfidence,omitempty"`
	FulfillmentText           string         `json:"fulfillmentText,omitempty"`
	LanguageCode              string         `json:"languageCode,omitempty"`
}

// StringParams flattens Parameters into strings. Strings are kept as is,
// numbers and booleans are formatted, anything else is rendered as JSON.
func (q QueryResult) StringParams() map[string]string {
	out := make(map[string]string, len(q.Parameters))
	for k, v := range q.Parameters {
		switch val := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			b, _ := json.Marshal(val)
			out[k] = string(b)
		}
	}
	return out
}

// Intent identifies the matched intent.
type Intent struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName"`
}

// WebhookResponse is the reply to a fulfillment call.
type WebhookResponse struct {
	FulfillmentText string `json:"fulfillmentText"`
}

// Envelope wraps every WebSocket frame.
type Envelope struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"` // echoed on the reply
	Timestamp time.Time       `json:"ts"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// ErrorPayload is the payload of an error frame.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WebSocket frame types.
const (
	TypeChatMessage = "chat.message" // client → gateway, payload ChatRequest
	TypeChatReply   = "chat.reply"   // gateway → client, payload ChatReply
	TypePing        = "ping"
	TypePong        = "pong"
	TypeError       = "error"
)
