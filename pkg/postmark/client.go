package postmark

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

	"github.com/statbricks/mbiz-backend/pkg/config"
	pkgerrors "github.com/statbricks/mbiz-backend/pkg/errors"
	"github.com/statbricks/mbiz-backend/pkg/logger"
)

var (
	errServerTokenRequired = errors.New("postmark server token is required")
	errLoggerRequired      = errors.New("postmark logger is required")
)

type httpDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client wraps Postmark's email API.
type Client struct {
	http        httpDoer
	baseURL     string
	serverToken string
	fromEmail   string
	logger      *logger.Logger
}

// NewClient initializes the Postmark wrapper.
func NewClient(ctx context.Context, cfg config.PostmarkConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	serverToken := strings.TrimSpace(cfg.ServerToken)
	if serverToken == "" {
		return nil, errServerTokenRequired
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.postmarkapp.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		http:        &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		serverToken: serverToken,
		fromEmail:   strings.TrimSpace(cfg.FromEmail),
		logger:      logg,
	}

	logg.Info(ctx, "postmark client initialized")
	return c, nil
}

// Message describes an outbound email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
	Tag      string
}

// Send delivers a single email through Postmark.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient email is required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email subject is required")
	}
	if msg.HTMLBody == "" && msg.TextBody == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email body is required")
	}

	payload := map[string]any{
		"From":    c.fromEmail,
		"To":      msg.To,
		"Subject": msg.Subject,
	}
	if msg.HTMLBody != "" {
		payload["HtmlBody"] = msg.HTMLBody
	}
	if msg.TextBody != "" {
		payload["TextBody"] = msg.TextBody
	}
	if msg.Tag != "" {
		payload["Tag"] = msg.Tag
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding postmark request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/email", bytes.NewReader(raw))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building postmark request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling postmark")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr struct {
			ErrorCode int    `json:"ErrorCode"`
			Message   string `json:"Message"`
		}
		message := fmt.Sprintf("postmark returned status %d", resp.StatusCode)
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			message = apiErr.Message
		}
		c.logger.Error(ctx, "postmark send failed", errors.New(message))
		return pkgerrors.New(pkgerrors.CodeDependency, message)
	}

	ctx = c.logger.WithFields(ctx, map[string]any{"subject": msg.Subject, "tag": msg.Tag})
	c.logger.Info(ctx, "postmark email sent")
	return nil
}
