package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	if err := conn(ctx, r.db).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrUserAlreadyExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	if err := conn(ctx, r.db).Omit(clause.Associations).Save(u).Error; err != nil {
		return fmt.Errorf("updating user %d: %w", u.ID, err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *UserRepository) GetByCIN(ctx context.Context, cin string) (*domain.User, error) {
	return r.first(ctx, "cin = ?", strings.TrimSpace(cin))
}

func (r *UserRepository) first(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var u domain.User
	err := conn(ctx, r.db).Where(query, args...).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}

// ListByRoles returns users holding any of the roles with the given active
// flag, in id order.
func (r *UserRepository) ListByRoles(ctx context.Context, roles []domain.Role, active bool) ([]*domain.User, error) {
	var users []*domain.User
	err := conn(ctx, r.db).
		Where("role IN ? AND is_active = ?", roles, active).
		Order("id ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("listing users by role: %w", err)
	}
	return users, nil
}

func (r *UserRepository) CountByRole(ctx context.Context, role domain.Role) (int64, error) {
	var n int64
	if err := conn(ctx, r.db).Model(&domain.User{}).Where("role = ?", role).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

func (r *UserRepository) SetActive(ctx context.Context, id uint, active bool) error {
	res := conn(ctx, r.db).Model(&domain.User{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return fmt.Errorf("updating user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	res := conn(ctx, r.db).Delete(&domain.User{}, id)
	if res.Error != nil {
		return fmt.Errorf("deleting user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) RecordLoginSuccess(ctx context.Context, id uint, at time.Time) error {
	return conn(ctx, r.db).Model(&domain.User{}).Where("id = ?", id).Updates(map[string]any{
		"failed_login_count": 0,
		"locked_until":       nil,
		"last_login_at":      at,
	}).Error
}

// RecordLoginFailure increments the failure counter and applies lockUntil
// when the caller decided the threshold was reached.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, id uint, lockUntil *time.Time) error {
	updates := map[string]any{"failed_login_count": gorm.Expr("failed_login_count + 1")}
	if lockUntil != nil {
		updates["locked_until"] = *lockUntil
	}
	return conn(ctx, r.db).Model(&domain.User{}).Where("id = ?", id).Updates(updates).Error
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return conn(ctx, r.db).Model(&domain.User{}).Where("id = ?", id).Update("password_hash", hash).Error
}
