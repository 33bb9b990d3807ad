package shortener

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Shortener turns a long URL into a short one.
type Shortener interface {
	Shorten(ctx context.Context, longURL string) (string, error)
}

// ErrNotConfigured is returned when no access token is set.
var ErrNotConfigured = errors.New("link shortener not configured")

// APIError is a non-2xx answer from the shortening API.
type APIError struct {
	StatusCode  int
	Message     string
	Description string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Description != "" {
		msg += ": " + e.Description
	}
	return fmt.Sprintf("shorten failed (%d): %s", e.StatusCode, msg)
}

// Bitly calls the Bitly v4 API.
type Bitly struct {
	apiBase string
	token   string
	client  *http.Client
}

func NewBitly(apiBase, token string, timeout time.Duration) *Bitly {
	return &Bitly{
		apiBase: strings.TrimRight(apiBase, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

type shortenRequest struct {
	LongURL string `json:"long_url"`
}

type shortenResponse struct {
	Link        string `json:"link"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

func (b *Bitly) Shorten(ctx context.Context, longURL string) (string, error) {
	if b.token == "" {
		return "", ErrNotConfigured
	}
	payload, err := json.Marshal(shortenRequest{LongURL: longURL})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.apiBase+"/v4/shorten", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+b.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out shortenResponse
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", err
	}
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{StatusCode: resp.StatusCode, Message: out.Message, Description: out.Description}
	}
	if out.Link == "" {
		return "", &APIError{StatusCode: resp.StatusCode, Message: "response carries no link"}
	}
	return out.Link, nil
}
