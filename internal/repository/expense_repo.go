package repository

import (
	"context"
	"fmt"
	"time"

	"driver_ledger/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExpenseRepository persists fuel purchases and oil changes. Every query is
// scoped to the owning user.
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create inserts e. The caller sets UserID and Kind.
func (r *ExpenseRepository) Create(ctx context.Context, e *domain.ExpenseEvent) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	e.OccurredAt = e.OccurredAt.UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(e).Error; err != nil {
			return fmt.Errorf("create expense: %w", err)
		}
		return nil
	})
}

// Get returns the expense with the given id when it belongs to userID and has the given kind
func (r *ExpenseRepository) Get(ctx context.Context, userID, id uint, kind domain.ExpenseKind) (*domain.ExpenseEvent, error) {
	var e domain.ExpenseEvent
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND kind = ?", id, userID, kind).
		First(&e).Error
	if err != nil {
		return nil, notFound(err, "get expense")
	}
	return &e, nil
}

// Update overwrites the editable fields of an owned expense
func (r *ExpenseRepository) Update(ctx context.Context, e *domain.ExpenseEvent) error {
	e.OccurredAt = e.OccurredAt.UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current domain.ExpenseEvent
		err := tx.Where("id = ? AND user_id = ? AND kind = ?", e.ID, e.UserID, e.Kind).First(&current).Error
		if err != nil {
			return notFound(err, "load expense for update")
		}
		e.CreatedAt = current.CreatedAt
		if err := tx.Save(e).Error; err != nil {
			return fmt.Errorf("update expense: %w", err)
		}
		return nil
	})
}

// Delete removes an owned expense
func (r *ExpenseRepository) Delete(ctx context.Context, userID, id uint, kind domain.ExpenseKind) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND kind = ?", id, userID, kind).
		Delete(&domain.ExpenseEvent{})
	if res.Error != nil {
		return fmt.Errorf("delete expense: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByKind returns every expense of one kind, newest first
func (r *ExpenseRepository) ListByKind(ctx context.Context, userID uint, kind domain.ExpenseKind) ([]domain.ExpenseEvent, error) {
	var events []domain.ExpenseEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND kind = ?", userID, kind).
		Order("occurred_at desc").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return events, nil
}

// Latest returns the most recent expense of one kind, or nil when there is none
func (r *ExpenseRepository) Latest(ctx context.Context, userID uint, kind domain.ExpenseKind) (*domain.ExpenseEvent, error) {
	var events []domain.ExpenseEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND kind = ?", userID, kind).
		Order("occurred_at desc").Order("id desc").
		Limit(1).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("latest expense: %w", err)
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

// Recent returns up to limit expenses of any kind, newest first
func (r *ExpenseRepository) Recent(ctx context.Context, userID uint, limit int) ([]domain.ExpenseEvent, error) {
	var events []domain.ExpenseEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("occurred_at desc").Order("id desc").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("recent expenses: %w", err)
	}
	return events, nil
}

// SumCost adds up the cost of a user's expenses. An empty kind sums every kind and
// a zero since sums all time.
func (r *ExpenseRepository) SumCost(ctx context.Context, userID uint, kind domain.ExpenseKind, since time.Time) (decimal.Decimal, error) {
	q := r.db.WithContext(ctx).Model(&domain.ExpenseEvent{}).Where("user_id = ?", userID)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if !since.IsZero() {
		q = q.Where("occurred_at >= ?", since.UTC())
	}
	return sumColumn(q, "cost")
}

// sumColumn runs SELECT COALESCE(SUM(col), 0) on q
func sumColumn(q *gorm.DB, column string) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := q.Select("COALESCE(SUM(" + column + "), 0)").Row().Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum %s: %w", column, err)
	}
	// SQLite sums decimals as REAL
	return total.Round(2), nil
}
