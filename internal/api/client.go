// Package api implements the HTTP client for the remote companion service.
// The service speaks a small JSON protocol: POST /api/chat/ for live turns and
// session termination, GET /api/sessions/ for the closed-session archive.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/havenchat/haven-go/internal/config"
)

const endSessionAction = "end_session"

// Summary is the structured artifact the service produces when a session ends.
// Never mutated after creation.
type Summary struct {
	Emotions  []string
	Topics    []string
	Narrative string
}

// SessionRecord is one closed session as returned by the archive endpoint. The
// list payload already contains full detail, so no separate fetch exists.
type SessionRecord struct {
	ID           int64       `json:"id"`
	StartTime    time.Time   `json:"start_time"`
	EndTime      *time.Time  `json:"end_time"`
	Emotions     []string    `json:"emotions"`
	Topics       []string    `json:"topics"`
	Summary      string      `json:"summary"`
	Conversation [][2]string `json:"conversation"`
}

// ServiceError is a failure the service reported in its response body. Its
// message is shown to the user verbatim.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Client is a client for the companion service API
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new Client
func NewClient(cfg config.ServiceConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Action  string      `json:"action,omitempty"`
	Message string      `json:"message,omitempty"`
	UserID  string      `json:"user_id"`
	History [][2]string `json:"history"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type summaryResponse struct {
	Emotions  []string `json:"emotions"`
	Topics    []string `json:"topics"`
	Summary   string   `json:"summary"`
	SessionID int64    `json:"session_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// SendMessage sends one user message with the prior history and returns the
// assistant's reply. The new message travels in its own field; it is never
// folded into the history array.
func (c *Client) SendMessage(ctx context.Context, userID, message string, history [][2]string) (string, error) {
	var out chatResponse
	err := c.postChat(ctx, chatRequest{
		Message: message,
		UserID:  userID,
		History: history,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Reply, nil
}

// EndSession sends the full history with the end directive and returns the
// summary the service produced for it.
func (c *Client) EndSession(ctx context.Context, userID string, history [][2]string) (Summary, error) {
	var out summaryResponse
	err := c.postChat(ctx, chatRequest{
		Action:  endSessionAction,
		UserID:  userID,
		History: history,
	}, &out)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Emotions:  out.Emotions,
		Topics:    out.Topics,
		Narrative: out.Summary,
	}, nil
}

// ListSessions retrieves the user's closed sessions. Order is whatever the
// service returned; the client does not re-sort.
func (c *Client) ListSessions(ctx context.Context, userID string) ([]SessionRecord, error) {
	u := fmt.Sprintf("%s/api/sessions/?user_id=%s", c.baseURL, url.QueryEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var records []SessionRecord
	if err := decodeResponse(resp, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) postChat(ctx context.Context, payload chatRequest, out any) error {
	if payload.History == nil {
		// the service expects an array, not null
		payload.History = [][2]string{}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat/", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

// decodeResponse maps the service's two failure shapes onto errors: a body
// with an "error" field becomes a ServiceError carried verbatim, any other
// non-2xx status becomes a generic status error.
func decodeResponse(resp *http.Response, out any) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var svcErr errorResponse
	if json.Unmarshal(raw, &svcErr) == nil && svcErr.Error != "" {
		return &ServiceError{Status: resp.StatusCode, Message: svcErr.Error}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return json.Unmarshal(raw, out)
}
