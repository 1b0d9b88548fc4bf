package repository

import (
	"context"
	"errors"
	"merchant-phone-search/internal/model"
	"time"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByPhone(ctx context.Context, phone string) (*model.User, error)
	UpdateMembership(ctx context.Context, id string, tier model.MembershipType, expiry time.Time) error
	// ResetExportCountIfStale zeroes the counter when the stored reset date
	// predates dayStart.
	ResetExportCountIfStale(ctx context.Context, id string, dayStart time.Time) error
	IncrementExportCount(ctx context.Context, id string, n int) error
}

type userRepoImpl struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepoImpl{
		db: db,
	}
}

func (r *userRepoImpl) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepoImpl) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &user, nil
}

func (r *userRepoImpl) FindByPhone(ctx context.Context, phone string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("phone = ?", phone).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &user, nil
}

func (r *userRepoImpl) UpdateMembership(ctx context.Context, id string, tier model.MembershipType, expiry time.Time) error {
	result := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"membership_type":   tier,
			"membership_expiry": expiry,
			"updated_at":        time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepoImpl) ResetExportCountIfStale(ctx context.Context, id string, dayStart time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND daily_export_reset_date < ?", id, dayStart).
		Updates(map[string]interface{}{
			"daily_export_count":      0,
			"daily_export_reset_date": dayStart,
		}).Error
}

func (r *userRepoImpl) IncrementExportCount(ctx context.Context, id string, n int) error {
	result := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"daily_export_count": gorm.Expr("daily_export_count + ?", n),
			"updated_at":         time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
