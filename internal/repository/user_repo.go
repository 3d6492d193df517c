package repository

import (
	"context"
	"errors"
	"fmt"

	"driver_ledger/internal/domain"

	"gorm.io/gorm"
)

// UserRepository persists users
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user, failing with domain.ErrDuplicateUser when the username is taken
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrDuplicateUser
		}
		return tx.Create(user).Error
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrDuplicateUser), errors.Is(err, gorm.ErrDuplicatedKey):
		// The unique index catches the race between the count and the insert
		return domain.ErrDuplicateUser
	default:
		return fmt.Errorf("create user: %w", err)
	}
}

// GetByUsername looks a user up by login name
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err, "get user by username")
	}
	return &user, nil
}

// GetByID looks a user up by primary key
func (r *UserRepository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, "get user by id")
	}
	return &user, nil
}

// notFound maps gorm's missing-row error onto domain.ErrNotFound and wraps the rest
func notFound(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
