package repository

import (
	"context"
	"fmt"
	"time"

	"driver_ledger/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// IncomeRepository persists earnings. Every query is scoped to the owning user.
type IncomeRepository struct {
	db *gorm.DB
}

func NewIncomeRepository(db *gorm.DB) *IncomeRepository {
	return &IncomeRepository{db: db}
}

func (r *IncomeRepository) Create(ctx context.Context, i *domain.IncomeEvent) error {
	if i.OccurredAt.IsZero() {
		i.OccurredAt = time.Now()
	}
	i.OccurredAt = i.OccurredAt.UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(i).Error; err != nil {
			return fmt.Errorf("create income: %w", err)
		}
		return nil
	})
}

func (r *IncomeRepository) Get(ctx context.Context, userID, id uint) (*domain.IncomeEvent, error) {
	var i domain.IncomeEvent
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&i).Error; err != nil {
		return nil, notFound(err, "get income")
	}
	return &i, nil
}

func (r *IncomeRepository) Update(ctx context.Context, i *domain.IncomeEvent) error {
	i.OccurredAt = i.OccurredAt.UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current domain.IncomeEvent
		if err := tx.Where("id = ? AND user_id = ?", i.ID, i.UserID).First(&current).Error; err != nil {
			return notFound(err, "load income for update")
		}
		i.CreatedAt = current.CreatedAt
		if err := tx.Save(i).Error; err != nil {
			return fmt.Errorf("update income: %w", err)
		}
		return nil
	})
}

func (r *IncomeRepository) Delete(ctx context.Context, userID, id uint) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.IncomeEvent{})
	if res.Error != nil {
		return fmt.Errorf("delete income: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *IncomeRepository) Recent(ctx context.Context, userID uint, limit int) ([]domain.IncomeEvent, error) {
	var incomes []domain.IncomeEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("occurred_at desc").Order("id desc").
		Limit(limit).
		Find(&incomes).Error
	if err != nil {
		return nil, fmt.Errorf("recent incomes: %w", err)
	}
	return incomes, nil
}

// SumAmount adds up a user's earnings. An empty source sums every source and a
// zero since sums all time.
func (r *IncomeRepository) SumAmount(ctx context.Context, userID uint, source domain.IncomeSource, since time.Time) (decimal.Decimal, error) {
	q := r.db.WithContext(ctx).Model(&domain.IncomeEvent{}).Where("user_id = ?", userID)
	if source != "" {
		q = q.Where("source = ?", source)
	}
	if !since.IsZero() {
		q = q.Where("occurred_at >= ?", since.UTC())
	}
	return sumColumn(q, "amount")
}
