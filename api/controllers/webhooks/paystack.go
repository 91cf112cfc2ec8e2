package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/statbricks/mbiz-backend/api/responses"
	subsvc "github.com/statbricks/mbiz-backend/internal/subscriptions"
	pkgerrors "github.com/statbricks/mbiz-backend/pkg/errors"
	"github.com/statbricks/mbiz-backend/pkg/logger"
)

type signatureVerifier interface {
	VerifyWebhookSignature(body []byte, signature string) bool
}

type paymentSettler interface {
	Verify(ctx context.Context, reference string) (*subsvc.VerifyOutcome, error)
}

type paystackEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// PaystackWebhook settles charge events pushed by the gateway. The
// payload is trusted only after its HMAC signature checks out against
// the secret key.
func PaystackWebhook(verifier signatureVerifier, settler paymentSettler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if verifier == nil || settler == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook handler unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get("X-Paystack-Signature")
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "paystack signature missing"))
			return
		}
		if !verifier.VerifyWebhookSignature(payload, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid paystack signature"))
			return
		}

		var event paystackEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}

		if event.Event != "charge.success" {
			if logg != nil {
				logg.Info(logg.WithField(ctx, "event", event.Event), "paystack event ignored")
			}
			responses.WriteSuccess(w, map[string]string{"status": "ignored"})
			return
		}

		reference := strings.TrimSpace(event.Data.Reference)
		if reference == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "event reference missing"))
			return
		}

		outcome, err := settler.Verify(ctx, reference)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithFields(ctx, map[string]any{
				"reference":         reference,
				"already_processed": outcome.AlreadyProcessed,
			}), "paystack charge settled")
		}
		responses.WriteSuccess(w, map[string]string{"status": "processed"})
	}
}
