package repository

import (
	"time"

	"walletbot/internal/domain"
	"walletbot/internal/models"

	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(p *models.Payment) error {
	return r.db.Create(p).Error
}

func (r *PaymentRepository) GetByProviderRef(ref string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where("provider_ref = ?", ref).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPendingByExternalID returns the newest pending intent for an external id.
// External ids repeat when a user tops up the same amount twice.
func (r *PaymentRepository) GetPendingByExternalID(externalID string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where("external_id = ? AND status = ?", externalID, domain.PaymentPending).
		Order("id DESC").First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) Update(p *models.Payment) error {
	return r.db.Save(p).Error
}

// Transition moves a pending intent to status. It reports false when the row was
// no longer pending, so only one caller wins a settlement.
func (r *PaymentRepository) Transition(id uint, status string, completedAt *time.Time) (bool, error) {
	res := r.db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, domain.PaymentPending).
		Updates(map[string]any{"status": status, "completed_at": completedAt})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
