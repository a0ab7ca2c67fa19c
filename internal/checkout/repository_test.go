package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/deliverycart/pkg/db/models"
	"github.com/angelmondragon/deliverycart/pkg/enums"
	pkgerrors "github.com/angelmondragon/deliverycart/pkg/errors"
	"github.com/angelmondragon/deliverycart/pkg/outbox"
)

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.CheckoutAttempt{}, &models.CheckoutAttemptVendor{}, &models.OutboxEvent{}))
	return db
}

func strPtr(v string) *string { return &v }

type failingEmitter struct{}

func (failingEmitter) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error {
	return errors.New("outbox unavailable")
}

func testDomainEvent(attemptID uuid.UUID) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventCheckoutReconciled,
		AggregateType: enums.AggregateCheckoutAttempt,
		AggregateID:   attemptID,
		Data:          map[string]string{"status": "success"},
		OccurredAt:    time.Now(),
	}
}

func TestRepositoryCreateAndFind(t *testing.T) {
	db := setupCheckoutTestDB(t)
	repo := NewRepository(db, nil)
	ctx := context.Background()

	attempt := &models.CheckoutAttempt{
		SessionID:        "sess-1",
		UserID:           "user-1",
		Status:           enums.CheckoutStatusPartialSuccess,
		Address:          "Calle Mayor 1",
		PaymentMethod:    enums.PaymentMethodCash,
		SubtotalAmount:   decimal.RequireFromString("12.50"),
		DeliveryFeeTotal: decimal.RequireFromString("4.00"),
		Vendors: []models.CheckoutAttemptVendor{
			{VendorID: 10, Outcome: enums.VendorOrderOutcomeSucceeded, ItemCount: 3, SubtotalAmount: decimal.RequireFromString("7.50"), DeliveryFee: decimal.RequireFromString("2.00"), OrderPin: strPtr("PIN-A")},
			{VendorID: 20, Outcome: enums.VendorOrderOutcomeFailed, ItemCount: 1, SubtotalAmount: decimal.RequireFromString("5.00"), DeliveryFee: decimal.RequireFromString("2.00"), ErrorMessage: strPtr("closed")},
		},
	}
	require.NoError(t, repo.Create(ctx, attempt))
	require.NotEqual(t, uuid.Nil, attempt.ID)

	found, err := repo.FindByID(ctx, "sess-1", attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutStatusPartialSuccess, found.Status)
	assert.True(t, found.SubtotalAmount.Equal(decimal.RequireFromString("12.50")))
	require.Len(t, found.Vendors, 2)
	assert.Equal(t, int64(10), found.Vendors[0].VendorID)
	assert.Equal(t, 0, found.Vendors[0].Position)
	assert.Equal(t, "PIN-A", *found.Vendors[0].OrderPin)
	assert.Equal(t, int64(20), found.Vendors[1].VendorID)
	assert.Equal(t, "closed", *found.Vendors[1].ErrorMessage)
}

func TestRepositoryFindIsScopedToSession(t *testing.T) {
	db := setupCheckoutTestDB(t)
	repo := NewRepository(db, nil)
	ctx := context.Background()

	attempt := &models.CheckoutAttempt{
		SessionID:        "sess-1",
		Status:           enums.CheckoutStatusSuccess,
		Address:          "x",
		PaymentMethod:    enums.PaymentMethodCard,
		SubtotalAmount:   decimal.Zero,
		DeliveryFeeTotal: decimal.Zero,
	}
	require.NoError(t, repo.Create(ctx, attempt))

	_, err := repo.FindByID(ctx, "sess-2", attempt.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = repo.FindByID(ctx, "sess-1", uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRepositoryCreateQueuesEventsWithAttempt(t *testing.T) {
	db := setupCheckoutTestDB(t)
	repo := NewRepository(db, outbox.NewService(outbox.NewRepository(db), nil))
	ctx := context.Background()

	attempt := &models.CheckoutAttempt{
		ID:               uuid.New(),
		SessionID:        "sess-1",
		Status:           enums.CheckoutStatusSuccess,
		Address:          "x",
		PaymentMethod:    enums.PaymentMethodCash,
		SubtotalAmount:   decimal.Zero,
		DeliveryFeeTotal: decimal.Zero,
	}
	require.NoError(t, repo.Create(ctx, attempt, testDomainEvent(attempt.ID)))

	var rows []models.OutboxEvent
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, attempt.ID, rows[0].AggregateID)
	assert.Equal(t, enums.EventCheckoutReconciled, rows[0].EventType)
}

func TestRepositoryCreateRollsBackWhenEmitFails(t *testing.T) {
	db := setupCheckoutTestDB(t)
	repo := NewRepository(db, failingEmitter{})
	ctx := context.Background()

	attempt := &models.CheckoutAttempt{
		ID:               uuid.New(),
		SessionID:        "sess-1",
		Status:           enums.CheckoutStatusSuccess,
		Address:          "x",
		PaymentMethod:    enums.PaymentMethodCash,
		SubtotalAmount:   decimal.Zero,
		DeliveryFeeTotal: decimal.Zero,
		Vendors: []models.CheckoutAttemptVendor{
			{VendorID: 10, Outcome: enums.VendorOrderOutcomeSucceeded, ItemCount: 1, SubtotalAmount: decimal.Zero, DeliveryFee: decimal.Zero},
		},
	}
	err := repo.Create(ctx, attempt, testDomainEvent(attempt.ID))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	_, err = repo.FindByID(ctx, "sess-1", attempt.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteAttemptsBeforeRemovesVendorRows(t *testing.T) {
	db := setupCheckoutTestDB(t)
	repo := NewRepository(db, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	newAttempt := func(createdAt time.Time) *models.CheckoutAttempt {
		return &models.CheckoutAttempt{
			SessionID:        "sess-1",
			Status:           enums.CheckoutStatusSuccess,
			Address:          "x",
			PaymentMethod:    enums.PaymentMethodCash,
			SubtotalAmount:   decimal.Zero,
			DeliveryFeeTotal: decimal.Zero,
			CreatedAt:        createdAt,
			Vendors: []models.CheckoutAttemptVendor{
				{VendorID: 10, Outcome: enums.VendorOrderOutcomeSucceeded, ItemCount: 1, SubtotalAmount: decimal.Zero, DeliveryFee: decimal.Zero},
			},
		}
	}
	expired := newAttempt(now.Add(-100 * 24 * time.Hour))
	fresh := newAttempt(now.Add(-time.Hour))
	require.NoError(t, repo.Create(ctx, expired))
	require.NoError(t, repo.Create(ctx, fresh))

	deleted, err := DeleteAttemptsBefore(ctx, db, now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.FindByID(ctx, "sess-1", expired.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	found, err := repo.FindByID(ctx, "sess-1", fresh.ID)
	require.NoError(t, err)
	assert.Len(t, found.Vendors, 1)

	var vendorRows int64
	require.NoError(t, db.Model(&models.CheckoutAttemptVendor{}).Count(&vendorRows).Error)
	assert.Equal(t, int64(1), vendorRows)
}
