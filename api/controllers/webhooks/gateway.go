package webhooks

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopcore-io/shopcore-backend/api/responses"
	"github.com/shopcore-io/shopcore-backend/api/validators"
	"github.com/shopcore-io/shopcore-backend/internal/payments"
	"github.com/shopcore-io/shopcore-backend/pkg/enums"
	pkgerrors "github.com/shopcore-io/shopcore-backend/pkg/errors"
	"github.com/shopcore-io/shopcore-backend/pkg/logger"
)

// gatewayEventRequest is the normalized payload the external webhook
// receiver forwards after verifying the raw gateway signature.
type gatewayEventRequest struct {
	Reference     string  `json:"reference" validate:"required"`
	GatewayStatus string  `json:"gateway_status" validate:"required"`
	Amount        string  `json:"amount" validate:"required"`
	PaidAt        *string `json:"paid_at,omitempty"`
}

func GatewayEvent(guard payments.Guard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req gatewayEventRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status, err := enums.ParseGatewayStatus(req.GatewayStatus)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
			return
		}
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a decimal amount"))
			return
		}

		event := payments.GatewayEvent{
			Reference: req.Reference,
			Status:    status,
			Amount:    amount,
		}
		if req.PaidAt != nil {
			paidAt, err := time.Parse(time.RFC3339, *req.PaidAt)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "paid_at must be RFC3339"))
				return
			}
			event.PaidAt = &paidAt
		}

		if err := guard.Apply(ctx, event); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "accepted"})
	}
}
