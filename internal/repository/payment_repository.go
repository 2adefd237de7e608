package repository

import (
	"tutor_market_backend/internal/model"

	"gorm.io/gorm"
)

type PaymentRepository struct {
	DB *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{DB: tx}
}

func (r *PaymentRepository) Create(p *model.Payment) error {
	return r.DB.Create(p).Error
}

func (r *PaymentRepository) FindByID(id string) (*model.Payment, error) {
	var p model.Payment
	err := r.DB.First(&p, "id = ?", id).Error
	return &p, err
}

// UpdateStatus 条件更新，防止并发确认/取消互相覆盖
func (r *PaymentRepository) UpdateStatus(id string, from, to model.PaymentStatus) (bool, error) {
	res := r.DB.Model(&model.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}
