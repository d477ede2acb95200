package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopcore-io/shopcore-backend/api/responses"
	"github.com/shopcore-io/shopcore-backend/api/validators"
	"github.com/shopcore-io/shopcore-backend/internal/pricing"
	pkgerrors "github.com/shopcore-io/shopcore-backend/pkg/errors"
	"github.com/shopcore-io/shopcore-backend/pkg/logger"
)

type pricePeriodRequest struct {
	SalePrice      string  `json:"sale_price" validate:"required"`
	CompareAtPrice *string `json:"compare_at_price,omitempty"`
	CostPrice      *string `json:"cost_price,omitempty"`
	EffectiveFrom  string  `json:"effective_from" validate:"required"`
	EffectiveTo    *string `json:"effective_to,omitempty"`
}

func ResolvePrice(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		productID, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id"))
			return
		}

		asOf := time.Now()
		if raw := r.URL.Query().Get("asof"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "asof must be RFC3339"))
				return
			}
			asOf = parsed
		}

		period, err := svc.Resolve(ctx, productID, asOf)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, period)
	}
}

func ListPricePeriods(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		productID, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id"))
			return
		}
		periods, err := svc.ListPeriods(ctx, productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, periods)
	}
}

func CreatePricePeriod(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		productID, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id"))
			return
		}

		var req pricePeriodRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		input, err := periodInputFromRequest(productID, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		period, err := svc.AddPeriod(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, period)
	}
}

func UpdatePricePeriod(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		productID, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id"))
			return
		}
		periodID, err := uuid.Parse(chi.URLParam(r, "periodId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid period id"))
			return
		}

		var req pricePeriodRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		input, err := periodInputFromRequest(productID, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		period, err := svc.UpdatePeriod(ctx, periodID, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, period)
	}
}

func DeletePricePeriod(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		periodID, err := uuid.Parse(chi.URLParam(r, "periodId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid period id"))
			return
		}
		if err := svc.RemovePeriod(ctx, periodID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func periodInputFromRequest(productID uuid.UUID, req pricePeriodRequest) (pricing.PeriodInput, error) {
	salePrice, err := decimal.NewFromString(req.SalePrice)
	if err != nil {
		return pricing.PeriodInput{}, pkgerrors.New(pkgerrors.CodeValidation, "sale_price must be a decimal amount")
	}
	input := pricing.PeriodInput{ProductID: productID, SalePrice: salePrice}

	if req.CompareAtPrice != nil {
		parsed, err := decimal.NewFromString(*req.CompareAtPrice)
		if err != nil {
			return pricing.PeriodInput{}, pkgerrors.New(pkgerrors.CodeValidation, "compare_at_price must be a decimal amount")
		}
		input.CompareAtPrice = &parsed
	}
	if req.CostPrice != nil {
		parsed, err := decimal.NewFromString(*req.CostPrice)
		if err != nil {
			return pricing.PeriodInput{}, pkgerrors.New(pkgerrors.CodeValidation, "cost_price must be a decimal amount")
		}
		input.CostPrice = &parsed
	}

	from, err := time.Parse(time.RFC3339, req.EffectiveFrom)
	if err != nil {
		return pricing.PeriodInput{}, pkgerrors.New(pkgerrors.CodeValidation, "effective_from must be RFC3339")
	}
	input.EffectiveFrom = from

	if req.EffectiveTo != nil {
		to, err := time.Parse(time.RFC3339, *req.EffectiveTo)
		if err != nil {
			return pricing.PeriodInput{}, pkgerrors.New(pkgerrors.CodeValidation, "effective_to must be RFC3339")
		}
		input.EffectiveTo = &to
	}
	return input, nil
}
