package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/deliverycart/pkg/db/models"
	pkgerrors "github.com/angelmondragon/deliverycart/pkg/errors"
	"github.com/angelmondragon/deliverycart/pkg/outbox"
)

// AttemptRepository stores checkout attempts. Events passed to Create are queued in
// the same transaction as the attempt.
type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.CheckoutAttempt, events ...outbox.DomainEvent) error
	FindByID(ctx context.Context, sessionID string, id uuid.UUID) (*models.CheckoutAttempt, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type repository struct {
	db     *gorm.DB
	outbox outboxEmitter
}

// NewRepository binds the attempt repository to db. A nil emitter drops events.
func NewRepository(db *gorm.DB, emitter outboxEmitter) AttemptRepository {
	return &repository{db: db, outbox: emitter}
}

func (r *repository) Create(ctx context.Context, attempt *models.CheckoutAttempt, events ...outbox.DomainEvent) error {
	if attempt == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "attempt required")
	}
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	for i := range attempt.Vendors {
		if attempt.Vendors[i].ID == uuid.Nil {
			attempt.Vendors[i].ID = uuid.New()
		}
		attempt.Vendors[i].AttemptID = attempt.ID
		attempt.Vendors[i].Position = i
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Vendors").Create(attempt).Error; err != nil {
			return err
		}
		if len(attempt.Vendors) > 0 {
			if err := tx.Create(&attempt.Vendors).Error; err != nil {
				return err
			}
		}
		if r.outbox == nil {
			return nil
		}
		for _, event := range events {
			if err := r.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record checkout attempt")
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, sessionID string, id uuid.UUID) (*models.CheckoutAttempt, error) {
	var attempt models.CheckoutAttempt
	err := r.db.WithContext(ctx).
		Preload("Vendors", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ? AND session_id = ?", id, sessionID).
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout attempt not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout attempt")
	}
	return &attempt, nil
}

// DeleteAttemptsBefore removes attempts created before cutoff with their vendor rows.
func DeleteAttemptsBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	if tx == nil {
		return 0, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	tx = tx.WithContext(ctx)
	expired := tx.Model(&models.CheckoutAttempt{}).Select("id").Where("created_at < ?", cutoff)
	if err := tx.Where("attempt_id IN (?)", expired).Delete(&models.CheckoutAttemptVendor{}).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete expired attempt vendors")
	}
	res := tx.Where("created_at < ?", cutoff).Delete(&models.CheckoutAttempt{})
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "delete expired attempts")
	}
	return res.RowsAffected, nil
}
