package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Client is the shared HTTP plumbing of the catalog gateways. It owns no
// state beyond the base URL and transport; every request carries a fresh
// correlation ID which also tags the request's log entries.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) url(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "encode request body")
		}
		body = bytes.NewReader(b)
	}
	return c.do(ctx, method, path, body, "application/json")
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	logger := log.WithFields(log.Fields{
		"method":    method,
		"url":       req.URL.String(),
		"requestID": requestID,
	})
	logger.Debug("gateway request")

	resp, err := c.http.Do(req)
	if err != nil {
		logger.WithError(err).Warn("gateway request failed")
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := errorFromResponse(resp.StatusCode, respBody)
		logger.WithField("status", resp.StatusCode).WithError(apiErr).Warn("gateway returned error")
		return nil, apiErr
	}
	return respBody, nil
}

// errorFromResponse extracts a human-readable message from an error body.
// Preference order: a validation error map joined with "; ", a structured
// message or title field, the raw string body, then a generic fallback.
func errorFromResponse(status int, body []byte) error {
	var payload struct {
		Message string              `json:"message"`
		Title   string              `json:"title"`
		Errors  map[string][]string `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if len(payload.Errors) > 0 {
			return errors.New(joinValidationErrors(payload.Errors))
		}
		if payload.Message != "" {
			return errors.New(payload.Message)
		}
		if payload.Title != "" {
			return errors.New(payload.Title)
		}
	}
	var asString string
	if err := json.Unmarshal(body, &asString); err == nil && asString != "" {
		return errors.New(asString)
	}
	if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "{") {
		return errors.New(text)
	}
	return errors.Errorf("request failed with status %d", status)
}

func joinValidationErrors(fields map[string][]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		parts = append(parts, fields[k]...)
	}
	return strings.Join(parts, "; ")
}
