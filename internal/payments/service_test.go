package payments

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shopcore-io/shopcore-backend/pkg/config"
	"github.com/shopcore-io/shopcore-backend/pkg/db"
	"github.com/shopcore-io/shopcore-backend/pkg/db/models"
	"github.com/shopcore-io/shopcore-backend/pkg/enums"
	pkgerrors "github.com/shopcore-io/shopcore-backend/pkg/errors"
	"github.com/shopcore-io/shopcore-backend/pkg/migrate"
	"github.com/shopcore-io/shopcore-backend/pkg/money"
)

func setupPaymentsTest(t *testing.T) (*db.Client, Service, Guard) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	client, err := db.New(context.Background(), config.DBConfig{DSN: dsn}, true, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.DB().AutoMigrate(migrate.AllModels()...))

	repo := NewRepository(client.DB())
	svc, err := NewService(repo, client, nil)
	require.NoError(t, err)

	guard, err := NewGuard(GuardParams{Repo: repo, Tx: client}, svc)
	require.NoError(t, err)
	return client, svc, guard
}

func registerPayment(t *testing.T, svc Service, reference string) *models.Payment {
	t.Helper()
	payment, err := svc.Register(context.Background(), RegisterInput{
		OrderID:          uuid.New(),
		GatewayReference: reference,
		Amount:           money.MustParse("50.00"),
	})
	require.NoError(t, err)
	return payment
}

func loadPayment(t *testing.T, client *db.Client, id uuid.UUID) models.Payment {
	t.Helper()
	var payment models.Payment
	require.NoError(t, client.DB().First(&payment, "id = ?", id).Error)
	return payment
}

func TestRegisterValidatesInput(t *testing.T) {
	t.Parallel()

	_, svc, _ := setupPaymentsTest(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{GatewayReference: "ref", Amount: money.MustParse("10.00")})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.Register(ctx, RegisterInput{OrderID: uuid.New(), Amount: money.MustParse("10.00")})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.Register(ctx, RegisterInput{OrderID: uuid.New(), GatewayReference: "ref", Amount: money.MustParse("0.00")})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	payment := registerPayment(t, svc, "pay_ok")
	assert.Equal(t, enums.PaymentStatusPending, payment.Status)
	assert.Equal(t, enums.CurrencyUSD, payment.Currency)
	assert.Nil(t, payment.PaidAt)
}

func TestSuccessEventCompletesPaymentAndStampsPaidAt(t *testing.T) {
	t.Parallel()

	client, svc, guard := setupPaymentsTest(t)
	ctx := context.Background()
	payment := registerPayment(t, svc, "pay_success")

	paidAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, guard.Apply(ctx, GatewayEvent{
		Reference: "pay_success",
		Status:    enums.GatewayStatusSuccess,
		Amount:    money.MustParse("50.00"),
		PaidAt:    &paidAt,
	}))

	stored := loadPayment(t, client, payment.ID)
	assert.Equal(t, enums.PaymentStatusCompleted, stored.Status)
	require.NotNil(t, stored.PaidAt)
	assert.True(t, stored.PaidAt.Equal(paidAt))
}

func TestDuplicateDeliveryAppliesOnce(t *testing.T) {
	t.Parallel()

	client, svc, guard := setupPaymentsTest(t)
	ctx := context.Background()
	payment := registerPayment(t, svc, "pay_dup")

	paidAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	event := GatewayEvent{
		Reference: "pay_dup",
		Status:    enums.GatewayStatusSuccess,
		Amount:    money.MustParse("50.00"),
		PaidAt:    &paidAt,
	}

	require.NoError(t, guard.Apply(ctx, event))

	// Redelivery of the identical event is swallowed, and the original
	// paid_at survives even when the duplicate carries a different stamp.
	later := paidAt.Add(time.Hour)
	event.PaidAt = &later
	require.NoError(t, guard.Apply(ctx, event))

	stored := loadPayment(t, client, payment.ID)
	assert.Equal(t, enums.PaymentStatusCompleted, stored.Status)
	require.NotNil(t, stored.PaidAt)
	assert.True(t, stored.PaidAt.Equal(paidAt))

	var eventCount int64
	require.NoError(t, client.DB().
		Model(&models.WebhookEvent{}).
		Where("reference = ?", "pay_dup").
		Count(&eventCount).Error)
	assert.Equal(t, int64(1), eventCount)
}

func TestBackwardEventsAreIgnored(t *testing.T) {
	t.Parallel()

	client, svc, guard := setupPaymentsTest(t)
	ctx := context.Background()
	payment := registerPayment(t, svc, "pay_backward")

	require.NoError(t, guard.Apply(ctx, GatewayEvent{
		Reference: "pay_backward",
		Status:    enums.GatewayStatusSuccess,
		Amount:    money.MustParse("50.00"),
	}))
	completed := loadPayment(t, client, payment.ID)
	require.NotNil(t, completed.PaidAt)
	firstStamp := *completed.PaidAt

	// A processing event arriving after settlement changes nothing.
	require.NoError(t, guard.Apply(ctx, GatewayEvent{
		Reference: "pay_backward",
		Status:    enums.GatewayStatusProcessing,
		Amount:    money.MustParse("50.00"),
	}))

	// So does a late failure.
	require.NoError(t, guard.Apply(ctx, GatewayEvent{
		Reference: "pay_backward",
		Status:    enums.GatewayStatusFailed,
		Amount:    money.MustParse("50.00"),
	}))

	stored := loadPayment(t, client, payment.ID)
	assert.Equal(t, enums.PaymentStatusCompleted, stored.Status)
	require.NotNil(t, stored.PaidAt)
	assert.True(t, stored.PaidAt.Equal(firstStamp))
}

func TestRefundEventRequiresCompletedPayment(t *testing.T) {
	t.Parallel()

	client, svc, guard := setupPaymentsTest(t)
	ctx := context.Background()
	payment := registerPayment(t, svc, "pay_early_refund")

	err := guard.Apply(ctx, GatewayEvent{
		Reference: "pay_early_refund",
		Status:    enums.GatewayStatusRefunded,
		Amount:    money.MustParse("50.00"),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	stored := loadPayment(t, client, payment.ID)
	assert.Equal(t, enums.PaymentStatusPending, stored.Status)
}

func TestApplyRejectsUnknownReference(t *testing.T) {
	t.Parallel()

	_, _, guard := setupPaymentsTest(t)

	err := guard.Apply(context.Background(), GatewayEvent{
		Reference: "pay_missing",
		Status:    enums.GatewayStatusSuccess,
		Amount:    money.MustParse("50.00"),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestMarkRefundedMovesCompletedPayment(t *testing.T) {
	t.Parallel()

	client, svc, guard := setupPaymentsTest(t)
	ctx := context.Background()
	payment := registerPayment(t, svc, "pay_refund")

	require.NoError(t, guard.Apply(ctx, GatewayEvent{
		Reference: "pay_refund",
		Status:    enums.GatewayStatusSuccess,
		Amount:    money.MustParse("50.00"),
	}))

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.MarkRefunded(ctx, tx, payment.ID)
	}))

	stored := loadPayment(t, client, payment.ID)
	assert.Equal(t, enums.PaymentStatusRefunded, stored.Status)
	require.NotNil(t, stored.PaidAt)
}

func TestDecideClassifiesTransitions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		current enums.PaymentStatus
		target  enums.PaymentStatus
		want    transitionAction
	}{
		{"forward pending to processing", enums.PaymentStatusPending, enums.PaymentStatusProcessing, actionApply},
		{"forward pending to completed", enums.PaymentStatusPending, enums.PaymentStatusCompleted, actionApply},
		{"same status", enums.PaymentStatusProcessing, enums.PaymentStatusProcessing, actionNoop},
		{"backward completed to processing", enums.PaymentStatusCompleted, enums.PaymentStatusProcessing, actionNoop},
		{"backward processing to pending", enums.PaymentStatusProcessing, enums.PaymentStatusPending, actionNoop},
		{"fail before settlement", enums.PaymentStatusProcessing, enums.PaymentStatusFailed, actionApply},
		{"fail after settlement", enums.PaymentStatusCompleted, enums.PaymentStatusFailed, actionNoop},
		{"fail after failure", enums.PaymentStatusFailed, enums.PaymentStatusFailed, actionNoop},
		{"refund completed", enums.PaymentStatusCompleted, enums.PaymentStatusRefunded, actionApply},
		{"refund pending", enums.PaymentStatusPending, enums.PaymentStatusRefunded, actionReject},
		{"cancel completed", enums.PaymentStatusCompleted, enums.PaymentStatusCancelled, actionApply},
		{"cancel failed", enums.PaymentStatusFailed, enums.PaymentStatusCancelled, actionReject},
		{"revive failed payment", enums.PaymentStatusFailed, enums.PaymentStatusCompleted, actionReject},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, decide(tc.current, tc.target))
		})
	}
}
