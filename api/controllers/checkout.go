package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopcore-io/shopcore-backend/api/responses"
	"github.com/shopcore-io/shopcore-backend/api/validators"
	"github.com/shopcore-io/shopcore-backend/internal/orders"
	pkgerrors "github.com/shopcore-io/shopcore-backend/pkg/errors"
	"github.com/shopcore-io/shopcore-backend/pkg/logger"
)

type checkoutLineRequest struct {
	ProductID string  `json:"product_id" validate:"required,uuid"`
	VariantID *string `json:"variant_id,omitempty" validate:"omitempty,uuid"`
	Qty       int     `json:"qty" validate:"required,gt=0"`
}

type checkoutCouponRequest struct {
	Code  string `json:"code" validate:"required"`
	Value string `json:"value" validate:"required"`
}

type checkoutRequest struct {
	Lines          []checkoutLineRequest  `json:"lines" validate:"required,min=1,dive"`
	ShippingMethod string                 `json:"shipping_method" validate:"required"`
	Jurisdiction   string                 `json:"jurisdiction"`
	Coupon         *checkoutCouponRequest `json:"coupon,omitempty"`
	Currency       string                 `json:"currency,omitempty"`
}

func Checkout(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := orders.BuildInput{
			ShippingMethodCode: req.ShippingMethod,
			Jurisdiction:       req.Jurisdiction,
			Currency:           req.Currency,
		}
		for _, line := range req.Lines {
			productID, err := uuid.Parse(line.ProductID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id"))
				return
			}
			cartLine := orders.CartLine{ProductID: productID, Qty: line.Qty}
			if line.VariantID != nil {
				variantID, err := uuid.Parse(*line.VariantID)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid variant id"))
					return
				}
				cartLine.VariantID = &variantID
			}
			input.Lines = append(input.Lines, cartLine)
		}
		if req.Coupon != nil {
			value, err := decimal.NewFromString(req.Coupon.Value)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "coupon value must be a decimal amount"))
				return
			}
			input.Coupon = &orders.Coupon{Code: req.Coupon.Code, Value: value}
		}

		order, err := svc.Build(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
