package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopcore-io/shopcore-backend/pkg/db/models"
)

// Repository persists price periods.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockProduct(ctx context.Context, productID uuid.UUID) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PricePeriod, error)
	FindActive(ctx context.Context, productID uuid.UUID, asOf time.Time) (*models.PricePeriod, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.PricePeriod, error)
	Create(ctx context.Context, period *models.PricePeriod) error
	Update(ctx context.Context, period *models.PricePeriod) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a price period repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// LockProduct takes the product's row lock for the duration of the
// transaction, so period writers for the same product run one at a time.
// Returns false when the product does not exist.
func (r *repository) LockProduct(ctx context.Context, productID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE products
		SET updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, productID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PricePeriod, error) {
	var period models.PricePeriod
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&period).Error
	if err != nil {
		return nil, err
	}
	return &period, nil
}

func (r *repository) FindActive(ctx context.Context, productID uuid.UUID, asOf time.Time) (*models.PricePeriod, error) {
	var period models.PricePeriod
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Where("effective_from <= ?", asOf).
		Where("effective_to IS NULL OR effective_to >= ?", asOf).
		First(&period).Error
	if err != nil {
		return nil, err
	}
	return &period, nil
}

func (r *repository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.PricePeriod, error) {
	var periods []models.PricePeriod
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("effective_from ASC").
		Find(&periods).Error
	if err != nil {
		return nil, err
	}
	return periods, nil
}

func (r *repository) Create(ctx context.Context, period *models.PricePeriod) error {
	return r.db.WithContext(ctx).Create(period).Error
}

func (r *repository) Update(ctx context.Context, period *models.PricePeriod) error {
	return r.db.WithContext(ctx).Save(period).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.PricePeriod{}, "id = ?", id).Error
}
