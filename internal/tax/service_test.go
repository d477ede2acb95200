package tax

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
	"github.com/shopcore-io/shopcore-backend/pkg/migrate"
	"github.com/shopcore-io/shopcore-backend/pkg/money"
)

func setupTaxTest(t *testing.T) (*db.Client, Service) {
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

func TestRateForKnownJurisdiction(t *testing.T) {
	t.Parallel()

	client, svc := setupTaxTest(t)
	require.NoError(t, client.DB().Create(&models.TaxRate{
		Jurisdiction: "CA",
		Rate:         money.MustParse("0.0800"),
	}).Error)

	rate, err := svc.RateFor(context.Background(), "CA")
	require.NoError(t, err)
	assert.True(t, rate.Equal(money.MustParse("0.08")))
}

func TestRateForUnknownJurisdictionIsZero(t *testing.T) {
	t.Parallel()

	_, svc := setupTaxTest(t)

	rate, err := svc.RateFor(context.Background(), "ZZ")
	require.NoError(t, err)
	assert.True(t, rate.IsZero())

	rate, err = svc.RateFor(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, rate.IsZero())
}
