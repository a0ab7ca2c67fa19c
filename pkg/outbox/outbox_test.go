package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/deliverycart/pkg/db/models"
	"github.com/angelmondragon/deliverycart/pkg/enums"
	"github.com/angelmondragon/deliverycart/pkg/logger"
	"github.com/angelmondragon/deliverycart/pkg/outbox/payloads"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.OutboxEvent{}, &models.OutboxDLQ{}))
	return db
}

func reconciledEvent(attemptID uuid.UUID) DomainEvent {
	return DomainEvent{
		EventType:     enums.EventCheckoutReconciled,
		AggregateType: enums.AggregateCheckoutAttempt,
		AggregateID:   attemptID,
		Actor:         &ActorRef{UserID: "user-1"},
		Data: payloads.CheckoutReconciledEvent{
			AttemptID: attemptID,
			Status:    enums.CheckoutStatusSuccess,
		},
	}
}

func TestEmitStoresEnvelope(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := NewService(NewRepository(db), logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	attemptID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, reconciledEvent(attemptID))
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventCheckoutReconciled, rows[0].EventType)
	assert.Equal(t, attemptID, rows[0].AggregateID)
	assert.Nil(t, rows[0].PublishedAt)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, "user-1", envelope.Actor.UserID)

	var data payloads.CheckoutReconciledEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, attemptID, data.AttemptID)
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, reconciledEvent(uuid.New())); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitRejectsUnknownTypes(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)

	event := reconciledEvent(uuid.New())
	event.EventType = enums.OutboxEventType("cart.updated")
	require.Error(t, svc.Emit(context.Background(), db, event))
	require.Error(t, svc.Emit(context.Background(), nil, reconciledEvent(uuid.New())))
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	first := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventCheckoutReconciled,
		AggregateType: enums.AggregateCheckoutAttempt,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
		CreatedAt:     time.Now().Add(-time.Minute),
	}
	second := first
	second.ID = uuid.New()
	second.CreatedAt = time.Now()
	require.NoError(t, repo.Insert(db, first))
	require.NoError(t, repo.Insert(db, second))

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, first.ID, rows[0].ID)

	require.NoError(t, repo.MarkPublishedTx(db, first.ID))
	require.NoError(t, repo.MarkFailedTx(db, second.ID, errors.New("unavailable")))

	rows, err = repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, second.ID, rows[0].ID)
	assert.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	assert.Equal(t, "unavailable", *rows[0].LastError)

	require.NoError(t, repo.MarkTerminalTx(db, second.ID, errors.New("gave up"), 3))
	rows, err = repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDLQRepositoryInsertTruncates(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewDLQRepository(db)
	eventID := uuid.New()

	long := make([]byte, maxDLQErrorLen+50)
	for i := range long {
		long[i] = 'x'
	}
	msg := string(long)
	require.NoError(t, repo.InsertTx(db, models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventCheckoutReconciled,
		AggregateType: enums.AggregateCheckoutAttempt,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
		AttemptCount:  3,
		FailedAt:      time.Now().UTC(),
	}))

	var found models.OutboxDLQ
	require.NoError(t, db.Where("event_id = ?", eventID).First(&found).Error)
	assert.NotEqual(t, uuid.Nil, found.ID)
	require.NotNil(t, found.ErrorMessage)
	assert.Len(t, *found.ErrorMessage, maxDLQErrorLen)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, found.ErrorReason)

	assert.Error(t, repo.InsertTx(db, models.OutboxDLQ{EventID: uuid.New(), ErrorReason: "gave_up"}))
}

func TestDeletePublishedBeforeKeepsPendingRows(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	oldPublished := now.Add(-48 * time.Hour)
	recentPublished := now.Add(-time.Hour)
	rows := []models.OutboxEvent{
		{ID: uuid.New(), PublishedAt: &oldPublished},
		{ID: uuid.New(), PublishedAt: &recentPublished},
		{ID: uuid.New()},
	}
	for _, row := range rows {
		row.EventType = enums.EventCheckoutReconciled
		row.AggregateType = enums.AggregateCheckoutAttempt
		row.AggregateID = uuid.New()
		row.Payload = json.RawMessage(`{}`)
		require.NoError(t, repo.Insert(db, row))
	}

	deleted, err := repo.DeletePublishedBefore(context.Background(), db, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&remaining).Error)
	assert.Equal(t, int64(2), remaining)
}

func TestDecodeEnvelopeChecksRequiredFields(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"version":1,"eventId":"e1","occurredAt":"2026-03-01T10:00:00Z","data":{"attemptId":"a"}}`))
	require.NoError(t, err)
	assert.Equal(t, "e1", env.EventID)
	assert.JSONEq(t, `{"attemptId":"a"}`, string(env.Data))

	for _, raw := range []string{
		`{"version":0,"eventId":"e1","data":{}}`,
		`{"version":2,"eventId":"e1","data":{}}`,
		`{"version":1,"data":{}}`,
		`{"version":1,"eventId":"e1","data":null}`,
		`{"version":1,"eventId":"e1"}`,
		`not json`,
	} {
		_, err := DecodeEnvelope([]byte(raw))
		assert.Error(t, err, raw)
	}
}
