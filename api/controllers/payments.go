package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopcore-io/shopcore-backend/api/responses"
	"github.com/shopcore-io/shopcore-backend/api/validators"
	"github.com/shopcore-io/shopcore-backend/internal/payments"
	"github.com/shopcore-io/shopcore-backend/pkg/enums"
	pkgerrors "github.com/shopcore-io/shopcore-backend/pkg/errors"
	"github.com/shopcore-io/shopcore-backend/pkg/logger"
)

type registerPaymentRequest struct {
	OrderID          string `json:"order_id" validate:"required,uuid"`
	GatewayReference string `json:"gateway_reference" validate:"required"`
	Amount           string `json:"amount" validate:"required"`
	Currency         string `json:"currency,omitempty"`
}

func RegisterPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req registerPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a decimal amount"))
			return
		}

		payment, err := svc.Register(ctx, payments.RegisterInput{
			OrderID:          orderID,
			GatewayReference: req.GatewayReference,
			Amount:           amount,
			Currency:         enums.Currency(req.Currency),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}

func PaymentDetail(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		paymentID, err := uuid.Parse(chi.URLParam(r, "paymentId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment id"))
			return
		}
		payment, err := svc.Find(ctx, paymentID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}
