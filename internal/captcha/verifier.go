package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config holds verification settings, bound once at startup.
type Config struct {
	// Enabled false short-circuits Verify to true for local/dev environments.
	Enabled   bool
	Secret    string
	VerifyURL string
	Timeout   time.Duration
}

// Client checks captcha tokens against the external verification service.
type Client struct {
	enabled    bool
	secret     string
	verifyURL  string
	httpClient *http.Client
}

// New constructs a verifier client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		enabled:    cfg.Enabled,
		secret:     cfg.Secret,
		verifyURL:  cfg.VerifyURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify forwards the token and requester address to the verification
// service and returns its trust decision. A rejection comes back as
// (false, nil); transport or decode failures come back as (false, err) so
// the caller can tell a hard service fault from a rejected token.
// One attempt per call, no retries.
func (c *Client) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	if !c.enabled {
		return true, nil
	}

	form := url.Values{}
	form.Set("secret", c.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("call verify service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("verify service returned status %d", resp.StatusCode)
	}

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("decode verify response: %w", err)
	}
	return out.Success, nil
}
