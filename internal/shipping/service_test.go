package shipping

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopcore-io/shopcore-backend/pkg/config"
	"github.com/shopcore-io/shopcore-backend/pkg/db"
	"github.com/shopcore-io/shopcore-backend/pkg/db/models"
	pkgerrors "github.com/shopcore-io/shopcore-backend/pkg/errors"
	"github.com/shopcore-io/shopcore-backend/pkg/migrate"
	"github.com/shopcore-io/shopcore-backend/pkg/money"
)

func setupShippingTest(t *testing.T) (*db.Client, Service) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	client, err := db.New(context.Background(), config.DBConfig{DSN: dsn}, true, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.DB().AutoMigrate(migrate.AllModels()...))

	svc, err := NewService(client.DB())
	require.NoError(t, err)
	return client, svc
}

func TestEstimateChargesBasePlusWeight(t *testing.T) {
	t.Parallel()

	client, svc := setupShippingTest(t)
	require.NoError(t, client.DB().Create(&models.ShippingMethod{
		Code:      "express",
		Name:      "Express",
		BaseCost:  money.MustParse("9.99"),
		PerKgCost: money.MustParse("2.50"),
	}).Error)

	cost, err := svc.Estimate(context.Background(), Quote{
		MethodCode:  "express",
		WeightGrams: 1500,
		Subtotal:    money.MustParse("50.00"),
	})
	require.NoError(t, err)
	// 9.99 + 2.50 * 1.5
	assert.True(t, cost.Equal(money.MustParse("13.74")), cost.String())
}

func TestEstimateWaivesCostAboveThreshold(t *testing.T) {
	t.Parallel()

	client, svc := setupShippingTest(t)
	threshold := money.MustParse("100.00")
	require.NoError(t, client.DB().Create(&models.ShippingMethod{
		Code:                  "standard",
		Name:                  "Standard",
		BaseCost:              money.MustParse("9.99"),
		PerKgCost:             money.MustParse("1.00"),
		FreeShippingThreshold: &threshold,
	}).Error)

	cost, err := svc.Estimate(context.Background(), Quote{
		MethodCode:  "standard",
		WeightGrams: 2000,
		Subtotal:    money.MustParse("100.00"),
	})
	require.NoError(t, err)
	assert.True(t, cost.IsZero())

	cost, err = svc.Estimate(context.Background(), Quote{
		MethodCode:  "standard",
		WeightGrams: 2000,
		Subtotal:    money.MustParse("99.99"),
	})
	require.NoError(t, err)
	assert.True(t, cost.Equal(money.MustParse("11.99")), cost.String())
}

func TestEstimateUnknownMethod(t *testing.T) {
	t.Parallel()

	_, svc := setupShippingTest(t)

	_, err := svc.Estimate(context.Background(), Quote{MethodCode: "overnight"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
