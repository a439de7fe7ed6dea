// Package mail sends transactional emails through a Resend-compatible HTTP API.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/mrlokans/kitaplik/internal/config"
)

const defaultTimeout = 15 * time.Second

// ErrDeliveryFailed is returned for any failure to hand a message to the provider.
var ErrDeliveryFailed = errors.New("mail could not be delivered")

// Sender delivers the account emails.
type Sender interface {
	SendVerification(ctx context.Context, to, username, link string) error
	SendPasswordReset(ctx context.Context, to, link string) error
}

type Client struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
	from       string
}

func NewClient(cfg config.Mail) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		apiURL:     cfg.APIURL,
		apiKey:     cfg.APIKey,
		from:       cfg.From,
	}
}

type message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (c *Client) SendVerification(ctx context.Context, to, username, link string) error {
	body, err := renderVerification(username, link)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return c.send(ctx, message{From: c.from, To: []string{to}, Subject: verificationSubject, HTML: body})
}

func (c *Client) SendPasswordReset(ctx context.Context, to, link string) error {
	body, err := renderPasswordReset(link)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return c.send(ctx, message{From: c.from, To: []string{to}, Subject: passwordResetSubject, HTML: body})
}

// send posts one message. There are no retries.
func (c *Client) send(ctx context.Context, msg message) error {
	if c.apiKey == "" {
		log.Printf("[MAIL] API key not configured, cannot send %q", msg.Subject)
		return fmt.Errorf("%w: api key not configured", ErrDeliveryFailed)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrDeliveryFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[MAIL] Request failed: %v", err)
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("[MAIL] Provider rejected %q: HTTP %d: %s", msg.Subject, resp.StatusCode, string(respBody))
		return fmt.Errorf("%w: unexpected status %d", ErrDeliveryFailed, resp.StatusCode)
	}

	log.Printf("[MAIL] Sent %q", msg.Subject)
	return nil
}
