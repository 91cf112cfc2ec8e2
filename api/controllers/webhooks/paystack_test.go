package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	subsvc "github.com/statbricks/mbiz-backend/internal/subscriptions"
	"github.com/statbricks/mbiz-backend/pkg/logger"
)

type hmacVerifier struct {
	secret string
}

func (v hmacVerifier) VerifyWebhookSignature(body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(v.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

type stubSettler struct {
	references []string
	err        error
}

func (s *stubSettler) Verify(ctx context.Context, reference string) (*subsvc.VerifyOutcome, error) {
	s.references = append(s.references, reference)
	if s.err != nil {
		return nil, s.err
	}
	return &subsvc.VerifyOutcome{}, nil
}

func signPayload(secret string, payload []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestPaystackWebhookRejectsMissingSignature(t *testing.T) {
	settler := &stubSettler{}
	handler := PaystackWebhook(hmacVerifier{secret: "sk_test"}, settler, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", bytes.NewBufferString(`{}`))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if len(settler.references) != 0 {
		t.Fatal("settler should not be called")
	}
}

func TestPaystackWebhookRejectsBadSignature(t *testing.T) {
	settler := &stubSettler{}
	handler := PaystackWebhook(hmacVerifier{secret: "sk_test"}, settler, testLogger())

	payload := []byte(`{"event":"charge.success","data":{"reference":"sub-abc"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", bytes.NewBuffer(payload))
	req.Header.Set("X-Paystack-Signature", signPayload("wrong-secret", payload))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if len(settler.references) != 0 {
		t.Fatal("settler should not be called")
	}
}

func TestPaystackWebhookSettlesChargeSuccess(t *testing.T) {
	settler := &stubSettler{}
	handler := PaystackWebhook(hmacVerifier{secret: "sk_test"}, settler, testLogger())

	payload := []byte(`{"event":"charge.success","data":{"reference":"sub-abc"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", bytes.NewBuffer(payload))
	req.Header.Set("X-Paystack-Signature", signPayload("sk_test", payload))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if len(settler.references) != 1 || settler.references[0] != "sub-abc" {
		t.Fatalf("unexpected settler calls %v", settler.references)
	}
}

func TestPaystackWebhookIgnoresOtherEvents(t *testing.T) {
	settler := &stubSettler{}
	handler := PaystackWebhook(hmacVerifier{secret: "sk_test"}, settler, testLogger())

	payload := []byte(`{"event":"transfer.success","data":{"reference":"tr-1"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", bytes.NewBuffer(payload))
	req.Header.Set("X-Paystack-Signature", signPayload("sk_test", payload))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if len(settler.references) != 0 {
		t.Fatal("settler should not be called for non-charge events")
	}
}
