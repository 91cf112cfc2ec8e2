package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
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

const (
	statusSuccess   = "success"
	statusFailed    = "failed"
	statusAbandoned = "abandoned"
)

var (
	errSecretKeyRequired = errors.New("paystack secret key is required")
	errLoggerRequired    = errors.New("paystack logger is required")
)

type httpDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client wraps Paystack's REST API with centralized auth, logging, and error mapping.
type Client struct {
	http          httpDoer
	baseURL       string
	secretKey     string
	webhookSecret string
	callbackURL   string
	logger        *logger.Logger
}

// NewClient initializes the Paystack wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.PaystackConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}
	webhookSecret := strings.TrimSpace(cfg.WebhookSecret)
	if webhookSecret == "" {
		webhookSecret = secretKey
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		http:          &http.Client{Timeout: timeout},
		baseURL:       baseURL,
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		callbackURL:   strings.TrimSpace(cfg.CallbackURL),
		logger:        logg,
	}

	logg.Info(ctx, "paystack client initialized")
	return c, nil
}

// InitializeParams describes a hosted-checkout initialization.
type InitializeParams struct {
	Email       string
	AmountKobo  int64
	Reference   string
	CallbackURL string
	Metadata    map[string]any
}

// InitializeResult carries the checkout handoff returned by Paystack.
type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// VerifyResult carries the settled state of a transaction.
type VerifyResult struct {
	Reference  string
	Status     string
	AmountKobo int64
	Currency   string
	Channel    string
	PaidAt     *time.Time
}

// Succeeded reports whether Paystack settled the charge.
func (r VerifyResult) Succeeded() bool {
	return r.Status == statusSuccess
}

// Failed reports whether the charge terminally failed.
func (r VerifyResult) Failed() bool {
	return r.Status == statusFailed || r.Status == statusAbandoned
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitializeTransaction creates a pending charge and returns the hosted checkout URL.
func (c *Client) InitializeTransaction(ctx context.Context, params InitializeParams) (*InitializeResult, error) {
	if strings.TrimSpace(params.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}
	if params.AmountKobo <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if strings.TrimSpace(params.Reference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference is required")
	}

	callback := params.CallbackURL
	if callback == "" {
		callback = c.callbackURL
	}
	body := map[string]any{
		"email":     params.Email,
		"amount":    params.AmountKobo,
		"reference": params.Reference,
	}
	if callback != "" {
		body["callback_url"] = callback
	}
	if len(params.Metadata) > 0 {
		body["metadata"] = params.Metadata
	}

	c.log(ctx, "request", "initialize_transaction", map[string]any{
		"reference": params.Reference,
		"amount":    params.AmountKobo,
	})

	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	}
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		c.log(ctx, "error", "initialize_transaction", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "initialize_transaction", map[string]any{"reference": data.Reference})
	return &InitializeResult{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
	}, nil
}

// VerifyTransaction fetches the settled state of a charge by reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference is required")
	}

	c.log(ctx, "request", "verify_transaction", map[string]any{"reference": reference})

	var data struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		Channel   string `json:"channel"`
		PaidAt    string `json:"paid_at"`
	}
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &data); err != nil {
		c.log(ctx, "error", "verify_transaction", map[string]any{"error": err.Error()})
		return nil, err
	}

	result := &VerifyResult{
		Reference:  data.Reference,
		Status:     strings.ToLower(data.Status),
		AmountKobo: data.Amount,
		Currency:   data.Currency,
		Channel:    data.Channel,
	}
	if data.PaidAt != "" {
		if paidAt, err := time.Parse(time.RFC3339, data.PaidAt); err == nil {
			result.PaidAt = &paidAt
		}
	}

	c.log(ctx, "response", "verify_transaction", map[string]any{
		"reference": result.Reference,
		"status":    result.Status,
	})
	return result, nil
}

// VerifyWebhookSignature checks the x-paystack-signature header against
// the HMAC-SHA512 of the raw body keyed with the webhook secret.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(c.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding paystack request")
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building paystack request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling paystack")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading paystack response")
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding paystack response")
	}

	if resp.StatusCode >= 400 || !envelope.Status {
		message := envelope.Message
		if message == "" {
			message = fmt.Sprintf("paystack returned status %d", resp.StatusCode)
		}
		return pkgerrors.New(domainCodeForStatus(resp.StatusCode), message)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding paystack payload")
		}
	}
	return nil
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("paystack %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("paystack %s", phase))
	}
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}
