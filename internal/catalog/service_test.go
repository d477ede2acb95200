package catalog

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
)

func setupCatalogTest(t *testing.T) (*db.Client, Service) {
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

func TestFindManyReturnsAllOrFails(t *testing.T) {
	t.Parallel()

	client, svc := setupCatalogTest(t)
	ctx := context.Background()

	first := models.Product{Name: "first", WeightGrams: 100}
	second := models.Product{Name: "second", WeightGrams: 200}
	require.NoError(t, client.DB().Create(&first).Error)
	require.NoError(t, client.DB().Create(&second).Error)

	products, err := svc.FindMany(ctx, []uuid.UUID{first.ID, second.ID})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "first", products[first.ID].Name)

	_, err = svc.FindMany(ctx, []uuid.UUID{first.ID, uuid.New()})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	empty, err := svc.FindMany(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFindUnknownProduct(t *testing.T) {
	t.Parallel()

	_, svc := setupCatalogTest(t)

	_, err := svc.Find(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
