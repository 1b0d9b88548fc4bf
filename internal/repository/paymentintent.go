package repository

import (
	"context"
	"errors"
	"merchant-phone-search/internal/model"
	"time"

	"gorm.io/gorm"
)

type PaymentIntentRepository interface {
	Create(ctx context.Context, intent *model.PaymentIntent) error
	FindByOutTradeNo(ctx context.Context, outTradeNo string) (*model.PaymentIntent, error)
	FindByOutTradeNoAndUser(ctx context.Context, outTradeNo, userID string) (*model.PaymentIntent, error)
	// MarkPaid transitions pending → paid in a single conditional update and
	// reports whether this call performed the transition. Duplicate
	// notifications observe false.
	MarkPaid(ctx context.Context, outTradeNo, transactionID string, paidAt time.Time) (bool, error)
	// MarkFailed transitions pending → failed, recording the reason.
	MarkFailed(ctx context.Context, outTradeNo, reason string) (bool, error)
}

type paymentIntentRepoImpl struct {
	db *gorm.DB
}

func NewPaymentIntentRepository(db *gorm.DB) PaymentIntentRepository {
	return &paymentIntentRepoImpl{
		db: db,
	}
}

func (r *paymentIntentRepoImpl) Create(ctx context.Context, intent *model.PaymentIntent) error {
	return r.db.WithContext(ctx).Create(intent).Error
}

func (r *paymentIntentRepoImpl) FindByOutTradeNo(ctx context.Context, outTradeNo string) (*model.PaymentIntent, error) {
	var intent model.PaymentIntent
	err := r.db.WithContext(ctx).
		Where("out_trade_no = ?", outTradeNo).
		First(&intent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &intent, nil
}

func (r *paymentIntentRepoImpl) FindByOutTradeNoAndUser(ctx context.Context, outTradeNo, userID string) (*model.PaymentIntent, error) {
	var intent model.PaymentIntent
	err := r.db.WithContext(ctx).
		Where("out_trade_no = ? AND user_id = ?", outTradeNo, userID).
		First(&intent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &intent, nil
}

func (r *paymentIntentRepoImpl) MarkPaid(ctx context.Context, outTradeNo, transactionID string, paidAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.PaymentIntent{}).
		Where("out_trade_no = ? AND status = ?", outTradeNo, model.PaymentPending).
		Updates(map[string]interface{}{
			"status":         model.PaymentPaid,
			"transaction_id": transactionID,
			"paid_at":        paidAt,
			"updated_at":     time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *paymentIntentRepoImpl) MarkFailed(ctx context.Context, outTradeNo, reason string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.PaymentIntent{}).
		Where("out_trade_no = ? AND status = ?", outTradeNo, model.PaymentPending).
		Updates(map[string]interface{}{
			"status":     model.PaymentFailed,
			"error":      reason,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
