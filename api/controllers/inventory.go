package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shopcore-io/shopcore-backend/api/responses"
	"github.com/shopcore-io/shopcore-backend/api/validators"
	"github.com/shopcore-io/shopcore-backend/internal/inventory"
	pkgerrors "github.com/shopcore-io/shopcore-backend/pkg/errors"
	"github.com/shopcore-io/shopcore-backend/pkg/logger"
)

type adjustStockRequest struct {
	ProductID   string `json:"product_id" validate:"required,uuid"`
	WarehouseID string `json:"warehouse_id" validate:"required,uuid"`
	Delta       int    `json:"delta" validate:"required"`
	Reason      string `json:"reason" validate:"required"`
}

func StockLevels(ledger inventory.Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		productID, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id"))
			return
		}
		levels, err := ledger.Levels(ctx, productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, levels)
	}
}

func AdjustStock(ledger inventory.Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req adjustStockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		productID, err := uuid.Parse(req.ProductID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id"))
			return
		}
		warehouseID, err := uuid.Parse(req.WarehouseID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid warehouse id"))
			return
		}

		record, err := ledger.Adjust(ctx, inventory.AdjustInput{
			ProductID:   productID,
			WarehouseID: warehouseID,
			Delta:       req.Delta,
			Reason:      req.Reason,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}
