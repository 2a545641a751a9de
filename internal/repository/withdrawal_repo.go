package repository

import (
	"time"

	"walletbot/internal/domain"
	"walletbot/internal/models"

	"gorm.io/gorm"
)

type WithdrawalRepository struct {
	db *gorm.DB
}

func NewWithdrawalRepository(db *gorm.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

func (r *WithdrawalRepository) Create(w *models.Withdrawal) error {
	return r.db.Create(w).Error
}

func (r *WithdrawalRepository) GetByProviderRef(ref string) (*models.Withdrawal, error) {
	var w models.Withdrawal
	err := r.db.Where("provider_ref = ?", ref).First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WithdrawalRepository) GetPendingByExternalID(externalID string) (*models.Withdrawal, error) {
	var w models.Withdrawal
	err := r.db.Where("external_id = ? AND status = ?", externalID, domain.WithdrawalPending).
		Order("id DESC").First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WithdrawalRepository) Update(w *models.Withdrawal) error {
	return r.db.Save(w).Error
}

// Transition moves a pending withdrawal to status, reporting false when another
// callback already finished it.
func (r *WithdrawalRepository) Transition(id uint, status, failureCode string, completedAt *time.Time) (bool, error) {
	res := r.db.Model(&models.Withdrawal{}).
		Where("id = ? AND status = ?", id, domain.WithdrawalPending).
		Updates(map[string]any{"status": status, "failure_code": failureCode, "completed_at": completedAt})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
