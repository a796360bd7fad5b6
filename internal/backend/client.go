// Package backend talks to the HR system of record.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tendawaks/dialogate/internal/config"
)

// maxResponseBytes bounds how much of a backend response is read.
const maxResponseBytes = 1 << 20

// Record is the "data" object of a backend response.
type Record map[string]any

// Text returns the value at key rendered as plain text, or "" when the key
// is absent or null.
func (r Record) Text(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

// Client fetches records from the HR backend. Responses look like
// {"status":"success","data":{...}}.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a Client with bounded connect and read timeouts.
func New(cfg config.BackendConfig, logger *slog.Logger) *Client {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout.Duration}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   cfg.ConnectTimeout.Duration,
		ResponseHeaderTimeout: cfg.ReadTimeout.Duration,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.ConnectTimeout.Duration + cfg.ReadTimeout.Duration,
		},
		logger: logger.With("component", "backend"),
	}
}

// LeaveBalance returns the employee's balance for leaveType.
func (c *Client) LeaveBalance(ctx context.Context, employeeID, leaveType string) (Record, error) {
	return c.fetch(ctx, "leave_balance", "/leavebalances/index", url.Values{
		"employee":  {employeeID},
		"leavetype": {leaveType},
	})
}

// PayrollInfo returns payroll details for the employee on topic.
func (c *Client) PayrollInfo(ctx context.Context, employeeID, topic string) (Record, error) {
	return c.fetch(ctx, "payroll_info", "/payroll/apilist", url.Values{
		"employee_id": {employeeID},
		"topic":       {topic},
	})
}

// HRContact returns the contact person for department.
func (c *Client) HRContact(ctx context.Context, department string) (Record, error) {
	return c.fetch(ctx, "hr_contact", "/hr-contacts/apilist", url.Values{
		"department": {department},
	})
}

// fetch performs a GET and returns the "data" object. A 2xx response whose
// data is missing or not an object yields a nil Record and no error.
func (c *Client) fetch(ctx context.Context, op, path string, query url.Values) (Record, error) {
	u := c.baseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &Error{Kind: KindRequest, Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend call", "op", op, "path", path,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, &Error{Kind: KindStatus, Op: op, Status: resp.StatusCode}
	}

	var envelope struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	dec := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes))
	if err := dec.Decode(&envelope); err != nil {
		if ne := transportError(op, err); ne.Kind == KindTimeout {
			return nil, ne
		}
		return nil, &Error{Kind: KindDecode, Op: op, Err: fmt.Errorf("decode envelope: %w", err)}
	}

	trimmed := strings.TrimSpace(string(envelope.Data))
	if !strings.HasPrefix(trimmed, "{") {
		return nil, nil
	}

	dataDec := json.NewDecoder(strings.NewReader(trimmed))
	dataDec.UseNumber()
	var rec Record
	if err := dataDec.Decode(&rec); err != nil {
		return nil, &Error{Kind: KindDecode, Op: op, Err: fmt.Errorf("decode data: %w", err)}
	}
	return rec, nil
}
