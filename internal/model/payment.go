package model

import "github.com/shopspring/decimal"

type PaymentStatus string

const (
	PaymentRequiresConfirmation PaymentStatus = "requires_confirmation"
	PaymentSucceeded            PaymentStatus = "succeeded"
	PaymentCanceled             PaymentStatus = "canceled"
)

// Payment 模拟支付意图，不对接真实网关
// swagger:model Payment
type Payment struct {
	UUIDBase
	UserID       uint            `gorm:"index;not null" json:"userId"`
	CourseID     string          `gorm:"type:varchar(36);index;not null" json:"courseId"`
	Amount       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency     string          `gorm:"size:10;default:'usd'" json:"currency"`
	Status       PaymentStatus   `gorm:"size:30;index" json:"status"`
	ClientSecret string          `gorm:"size:100" json:"clientSecret,omitempty"`
}

func (Payment) TableName() string {
	return "payments"
}
