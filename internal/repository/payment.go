package repository

import (
	"context"
	"time"

	"storefront-backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, payment *model.Payment) error
	FindByID(ctx context.Context, id string) (*model.Payment, error)
	FindByGatewayID(ctx context.Context, gatewayID string) (*model.Payment, error)
	FindLatestByOrder(ctx context.Context, orderID string) (*model.Payment, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.Payment, error)
	HasPaidForOrder(ctx context.Context, orderID string) (bool, error)
	// ListPendingWithGatewayRef feeds the reconciliation sweep.
	ListPendingWithGatewayRef(ctx context.Context) ([]*model.Payment, error)
	SetGatewayRef(ctx context.Context, tx *gorm.DB, paymentID, gatewayID, statusDetail string) error
	// UpdateStatus is status-guarded the same way order transitions are.
	UpdateStatus(ctx context.Context, tx *gorm.DB, paymentID string, from []string, to, statusDetail string) (int64, error)
	// ReplacePixArtifact overwrites the gateway fields of a still-pending
	// PIX payment; regeneration retries the same logical attempt.
	ReplacePixArtifact(ctx context.Context, tx *gorm.DB, paymentID, gatewayID, qrCode, qrCodeBase64, ticketURL string, expiresAt *time.Time) error
}

type paymentRepoImpl struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepoImpl{
		db: db,
	}
}

func (r *paymentRepoImpl) Create(ctx context.Context, tx *gorm.DB, payment *model.Payment) error {
	return tx.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepoImpl) FindByID(ctx context.Context, id string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&payment).Error

	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *paymentRepoImpl) FindByGatewayID(ctx context.Context, gatewayID string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).
		Where("gateway_id = ?", gatewayID).
		First(&payment).Error

	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *paymentRepoImpl) FindLatestByOrder(ctx context.Context, orderID string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&payment).Error

	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *paymentRepoImpl) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.Payment, error) {
	var payment model.Payment
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&payment).Error

	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *paymentRepoImpl) HasPaidForOrder(ctx context.Context, orderID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("order_id = ? AND status = ?", orderID, model.PaymentPaid).
		Count(&count).Error

	return count > 0, err
}

func (r *paymentRepoImpl) ListPendingWithGatewayRef(ctx context.Context) ([]*model.Payment, error) {
	var payments []*model.Payment
	err := r.db.WithContext(ctx).
		Where("status = ? AND gateway_id <> ''", model.PaymentPending).
		Order("created_at ASC").
		Find(&payments).Error

	if err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepoImpl) SetGatewayRef(ctx context.Context, tx *gorm.DB, paymentID, gatewayID, statusDetail string) error {
	return tx.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ?", paymentID).
		Updates(map[string]interface{}{
			"gateway_id":    gatewayID,
			"status_detail": statusDetail,
			"updated_at":    time.Now(),
		}).Error
}

func (r *paymentRepoImpl) UpdateStatus(ctx context.Context, tx *gorm.DB, paymentID string, from []string, to, statusDetail string) (int64, error) {
	result := tx.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ? AND status IN ?", paymentID, from).
		Updates(map[string]interface{}{
			"status":        to,
			"status_detail": statusDetail,
			"updated_at":    time.Now(),
		})

	return result.RowsAffected, result.Error
}

func (r *paymentRepoImpl) ReplacePixArtifact(ctx context.Context, tx *gorm.DB, paymentID, gatewayID, qrCode, qrCodeBase64, ticketURL string, expiresAt *time.Time) error {
	result := tx.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ? AND status = ?", paymentID, model.PaymentPending).
		Updates(map[string]interface{}{
			"gateway_id":         gatewayID,
			"pix_qr_code":        qrCode,
			"pix_qr_code_base64": qrCodeBase64,
			"pix_ticket_url":     ticketURL,
			"pix_expires_at":     expiresAt,
			"updated_at":         time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
