package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Answer is the model's reply to one question.
type Answer struct {
	Answer   string   `json:"answer"`
	Category string   `json:"category,omitempty"`
	Sources  []string `json:"sources,omitempty"`
}

// Health reports the upstream model service status.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// APIError carries an upstream error with its HTTP status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client calls the externally hosted chatbot model over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a chatbot client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type askRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"sessionId,omitempty"`
}

// Ask forwards a question and returns the generated answer.
func (c *Client) Ask(ctx context.Context, question, sessionID string) (Answer, error) {
	var ans Answer
	err := c.post(ctx, "/ask", askRequest{Question: question, SessionID: sessionID}, &ans)
	return ans, err
}

// DetectCategory classifies a question (Admissions, Fees, Academics, ...).
func (c *Client) DetectCategory(ctx context.Context, question string) (string, error) {
	var out struct {
		Category string `json:"category"`
	}
	if err := c.post(ctx, "/detect-category", askRequest{Question: question}, &out); err != nil {
		return "", err
	}
	return out.Category, nil
}

// ClearMemory drops the conversation state for a session.
func (c *Client) ClearMemory(ctx context.Context, sessionID string) error {
	payload := struct {
		SessionID string `json:"sessionId"`
	}{SessionID: sessionID}
	return c.post(ctx, "/clear-memory", payload, nil)
}

// HealthCheck queries the upstream health endpoint.
func (c *Client) HealthCheck(ctx context.Context) (Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return Health{}, err
	}
	var h Health
	if err := c.do(req, &h); err != nil {
		return Health{}, err
	}
	return h, nil
}

// Ping issues a lightweight GET against the docs page. The hosted model
// spins down when idle; any successful response is enough to keep it warm.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/docs", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
