package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type CourseStatus string

const (
	CourseDraft     CourseStatus = "draft"
	CoursePending   CourseStatus = "pending"
	CoursePublished CourseStatus = "published"
	CourseRejected  CourseStatus = "rejected"
	CourseArchived  CourseStatus = "archived"
)

// swagger:model Course
type Course struct {
	UUIDBase

	TeacherID     uint            `gorm:"index;not null" json:"teacherId"`
	Title         string          `gorm:"size:255;not null" json:"title"`
	Description   string          `gorm:"type:text" json:"description"`
	Category      string          `gorm:"size:100;index" json:"category"`
	Level         string          `gorm:"size:50" json:"level"` // beginner / intermediate / advanced
	CoverURL      string          `gorm:"size:255" json:"coverUrl"`
	Status        CourseStatus    `gorm:"size:20;index;default:'draft'" json:"status"`
	RejectReason  string          `gorm:"type:text" json:"rejectReason,omitempty"`
	Price         decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"price"`
	DiscountPrice decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"discountPrice"`
	Version       int             `gorm:"not null;default:0" json:"version"`
	PublishedAt   *time.Time      `json:"publishedAt,omitempty"`

	Topics []Topic `gorm:"foreignKey:CourseID" json:"topics,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// EffectivePrice 有折扣价时使用折扣价
func (c *Course) EffectivePrice() decimal.Decimal {
	if c.DiscountPrice.IsPositive() && c.DiscountPrice.LessThan(c.Price) {
		return c.DiscountPrice
	}
	return c.Price
}

func (c *Course) IsFree() bool {
	return !c.EffectivePrice().IsPositive()
}
