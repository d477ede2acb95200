package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopcore-io/shopcore-backend/internal/catalog"
	"github.com/shopcore-io/shopcore-backend/internal/inventory"
	"github.com/shopcore-io/shopcore-backend/internal/pricing"
	"github.com/shopcore-io/shopcore-backend/internal/shipping"
	"github.com/shopcore-io/shopcore-backend/internal/tax"
	"github.com/shopcore-io/shopcore-backend/pkg/db/models"
	"github.com/shopcore-io/shopcore-backend/pkg/enums"
	pkgerrors "github.com/shopcore-io/shopcore-backend/pkg/errors"
	"github.com/shopcore-io/shopcore-backend/pkg/logger"
	"github.com/shopcore-io/shopcore-backend/pkg/money"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service assembles orders from cart lines and drives their lifecycle.
type Service interface {
	Build(ctx context.Context, input BuildInput) (*models.Order, error)
	Transition(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus, actor string) (*models.Order, error)
	Find(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

// ServiceParams wire the aggregator's collaborators.
type ServiceParams struct {
	Repo      Repository
	Tx        txRunner
	Pricing   pricing.Service
	Inventory inventory.Ledger
	Catalog   catalog.Service
	Tax       tax.Service
	Shipping  shipping.Service
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	tx        txRunner
	pricing   pricing.Service
	inventory inventory.Ledger
	catalog   catalog.Service
	tax       tax.Service
	shipping  shipping.Service
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Pricing == nil {
		return nil, fmt.Errorf("pricing service required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if params.Tax == nil {
		return nil, fmt.Errorf("tax service required")
	}
	if params.Shipping == nil {
		return nil, fmt.Errorf("shipping service required")
	}
	return &service{
		repo:      params.Repo,
		tx:        params.Tx,
		pricing:   params.Pricing,
		inventory: params.Inventory,
		catalog:   params.Catalog,
		tax:       params.Tax,
		shipping:  params.Shipping,
		logg:      params.Logger,
		now:       time.Now,
	}, nil
}

// Build assembles an order inside one transaction: price snapshots, stock
// holds, totals. Any failure rolls the whole attempt back, so no reservation
// or movement from a failed build survives.
func (s *service) Build(ctx context.Context, input BuildInput) (*models.Order, error) {
	if err := validateBuildInput(input); err != nil {
		return nil, err
	}

	currency := enums.CurrencyUSD
	if input.Currency != "" {
		parsed, err := enums.ParseCurrency(input.Currency)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		currency = parsed
	}

	productIDs := make([]uuid.UUID, 0, len(input.Lines))
	for _, line := range input.Lines {
		productIDs = append(productIDs, line.ProductID)
	}
	products, err := s.catalog.FindMany(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	asOf := s.now()
	var order *models.Order

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		items := make([]models.OrderItem, 0, len(input.Lines))
		subtotalRaw := decimal.Zero
		weightGrams := 0

		for _, line := range input.Lines {
			price, err := s.pricing.Resolve(ctx, line.ProductID, asOf)
			if err != nil {
				return err
			}

			reservation, err := s.inventory.ReserveInTx(ctx, tx, inventory.ReserveInput{
				ProductID: line.ProductID,
				Qty:       line.Qty,
			})
			if err != nil {
				return err
			}

			lineTotal := money.Line(price.SalePrice, line.Qty)
			items = append(items, models.OrderItem{
				ProductID:     line.ProductID,
				VariantID:     line.VariantID,
				UnitPrice:     price.SalePrice,
				Qty:           line.Qty,
				TotalPrice:    money.Round2(lineTotal),
				ReservationID: reservation.ID,
			})
			subtotalRaw = subtotalRaw.Add(lineTotal)

			product := products[line.ProductID]
			if product.ShippingEligible {
				weightGrams += product.WeightGrams * line.Qty
			}
		}

		itemsSubtotal := money.Round2(subtotalRaw)

		shippingTotal, err := s.shipping.Estimate(ctx, shipping.Quote{
			MethodCode:  input.ShippingMethodCode,
			WeightGrams: weightGrams,
			Subtotal:    itemsSubtotal,
		})
		if err != nil {
			return err
		}

		discountTotal := money.Zero
		if input.Coupon != nil {
			discountTotal = money.Round2(money.Cap(input.Coupon.Value, itemsSubtotal))
		}

		rate, err := s.tax.RateFor(ctx, input.Jurisdiction)
		if err != nil {
			return err
		}
		// The discount reduces the taxable base, not just the total.
		taxable := subtotalRaw.Sub(discountTotal)
		if taxable.Sign() < 0 {
			taxable = money.Zero
		}
		taxTotal := money.Round2(taxable.Mul(rate))

		grandTotal := money.Round2(itemsSubtotal.Add(shippingTotal).Add(taxTotal).Sub(discountTotal))

		candidate := &models.Order{
			Status:        enums.OrderStatusPending,
			ItemsSubtotal: itemsSubtotal,
			ShippingTotal: shippingTotal,
			TaxTotal:      taxTotal,
			DiscountTotal: discountTotal,
			GrandTotal:    grandTotal,
			Currency:      currency,
			Items:         items,
		}
		if !candidate.Validate() {
			return pkgerrors.New(pkgerrors.CodeInvariant, "order totals failed the grand-total check").
				WithDetails(map[string]any{
					"items_subtotal": itemsSubtotal.String(),
					"shipping_total": shippingTotal.String(),
					"tax_total":      taxTotal.String(),
					"discount_total": discountTotal.String(),
					"grand_total":    grandTotal.String(),
				})
		}

		if err := s.repo.WithTx(tx).Create(ctx, candidate); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		order = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Info(logCtx, "order built")
	}
	return order, nil
}

func (s *service) Transition(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus, actor string) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown target status")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if !CanTransition(order.Status, target) {
			return transitionError(order.Status, target)
		}

		if target == enums.OrderStatusProcessing {
			if err := s.requireCompletedPayment(ctx, repo, order.ID); err != nil {
				return err
			}
		}

		var placedAt *time.Time
		if order.Status == enums.OrderStatusPending && order.PlacedAt == nil {
			stamp := s.now()
			placedAt = &stamp
		}

		moved, err := repo.TransitionStatus(ctx, order.ID, order.Status, target, placedAt)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "order changed during transition")
		}

		switch target {
		case enums.OrderStatusCancelled:
			if err := s.forEachReservation(ctx, tx, order, s.inventory.ReleaseInTx); err != nil {
				return err
			}
		case enums.OrderStatusShipped:
			if err := s.forEachReservation(ctx, tx, order, s.inventory.CommitInTx); err != nil {
				return err
			}
		}

		order.Status = target
		if placedAt != nil {
			order.PlacedAt = placedAt
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id": result.ID.String(),
			"status":   target.String(),
			"actor":    actor,
		})
		s.logg.Info(logCtx, "order transitioned")
	}
	return result, nil
}

func (s *service) Find(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) requireCompletedPayment(ctx context.Context, repo Repository, orderID uuid.UUID) error {
	payment, err := repo.FindPaymentForOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no payment to process against")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.Status != enums.PaymentStatusCompleted {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment must be completed before processing").
			WithDetails(map[string]any{"payment_status": payment.Status.String()})
	}
	return nil
}

// forEachReservation applies a ledger operation to the distinct reservation
// tokens held by the order's items.
func (s *service) forEachReservation(ctx context.Context, tx *gorm.DB, order *models.Order, op func(context.Context, *gorm.DB, uuid.UUID) error) error {
	seen := make(map[uuid.UUID]struct{}, len(order.Items))
	for _, item := range order.Items {
		if _, ok := seen[item.ReservationID]; ok {
			continue
		}
		seen[item.ReservationID] = struct{}{}
		if err := op(ctx, tx, item.ReservationID); err != nil {
			return err
		}
	}
	return nil
}

func validateBuildInput(input BuildInput) error {
	if len(input.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart must contain at least one line")
	}
	for _, line := range input.Lines {
		if line.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart line missing product id")
		}
		if line.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart line quantity must be positive")
		}
	}
	if input.ShippingMethodCode == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping method required")
	}
	if input.Coupon != nil && input.Coupon.Value.Sign() < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon value must not be negative")
	}
	return nil
}
