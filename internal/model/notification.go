package model

const (
	NotificationCourse  = "course"
	NotificationPayment = "payment"
	NotificationSystem  = "system"
)

// swagger:model Notification
type Notification struct {
	BaseModel
	UserID  uint   `gorm:"index;not null" json:"userId"`
	Title   string `gorm:"size:255;not null" json:"title"`
	Message string `gorm:"type:text" json:"message"`
	Type    string `gorm:"size:30;index" json:"type"`
	Link    string `gorm:"size:500" json:"link"`
	IsRead  bool   `gorm:"default:false;index" json:"isRead"`
}

func (Notification) TableName() string {
	return "notifications"
}
