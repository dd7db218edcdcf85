// Package email sends transactional mail through Postmark.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"
)

const defaultAPIURL = "https://api.postmarkapp.com/email"

type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	apiURL      string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithAPIURL overrides the Postmark endpoint. Used in tests.
func WithAPIURL(url string) Option {
	return func(cl *Client) {
		cl.apiURL = url
	}
}

func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		apiURL:      defaultAPIURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendSignInCode emails both credentials for a sign-in request: the magic
// link built from the raw token, and the 6-digit code for manual entry.
func (c *Client) SendSignInCode(toEmail, code, rawToken string) error {
	// The address goes through url.Values so plus-addressed emails survive
	// the round trip; a raw "+" decodes as a space on the verify side.
	q := url.Values{}
	q.Set("email", toEmail)
	q.Set("token", rawToken)
	link := fmt.Sprintf("%s/auth/verify?%s", c.baseURL, q.Encode())
	textBody := fmt.Sprintf(
		"Your Courtside sign-in code is %s.\n\nOr click the link below to sign in:\n\n%s\n\nBoth expire in 15 minutes.",
		code, link,
	)
	htmlBody := fmt.Sprintf(
		`<p>Your Courtside sign-in code is <strong>%s</strong>.</p><p>Or <a href="%s">click here to sign in</a>.</p><p>Both expire in 15 minutes.</p>`,
		code, link,
	)
	return c.send(postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  "Sign in to Courtside",
		HtmlBody: htmlBody,
		TextBody: textBody,
	})
}

// SendInvite emails a family invite code to the contact it was issued for.
func (c *Client) SendInvite(toEmail, code, playerName, role string) error {
	link := fmt.Sprintf("%s/invite/accept?code=%s", c.baseURL, code)
	textBody := fmt.Sprintf(
		"You've been invited to follow %s on Courtside as %s.\n\nYour code is %s, or accept here:\n\n%s\n\nThe code expires in 24 hours.",
		playerName, role, code, link,
	)
	htmlBody := fmt.Sprintf(
		`<p>You've been invited to follow %s on Courtside as %s.</p><p>Your code is <strong>%s</strong>, or <a href="%s">accept your invitation</a>.</p><p>The code expires in 24 hours.</p>`,
		playerName, role, code, link,
	)
	return c.send(postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  fmt.Sprintf("You've been invited to follow %s on Courtside", playerName),
		HtmlBody: htmlBody,
		TextBody: textBody,
	})
}

func (c *Client) send(payload postmarkEmail) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	// Transient Postmark outages get a couple of retries; 4xx responses are
	// our fault and fail immediately.
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(500*time.Millisecond))
	return retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Postmark-Server-Token", c.serverToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("send email: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("postmark API error: status %d", resp.StatusCode))
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
		}
		return nil
	})
}
