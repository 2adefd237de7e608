package model

type Enrollment struct {
	BaseModel
	UserID    uint    `gorm:"uniqueIndex:idx_enrollment_user_course;not null" json:"userId"`
	CourseID  string  `gorm:"type:varchar(36);uniqueIndex:idx_enrollment_user_course;not null" json:"courseId"`
	PaymentID *string `gorm:"type:varchar(36)" json:"paymentId,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

type Review struct {
	BaseModel
	UserID   uint   `gorm:"index;not null" json:"userId"`
	CourseID string `gorm:"type:varchar(36);index;not null" json:"courseId"`
	Rating   int    `gorm:"not null" json:"rating"`
	Comment  string `gorm:"type:text" json:"comment"`
}

func (Review) TableName() string {
	return "reviews"
}

type Certificate struct {
	BaseModel
	UserID   uint   `gorm:"index;not null" json:"userId"`
	CourseID string `gorm:"type:varchar(36);index;not null" json:"courseId"`
	Code     string `gorm:"size:64;uniqueIndex" json:"code"`
}

func (Certificate) TableName() string {
	return "certificates"
}

// BundleCourse 课程包与课程的关联
type BundleCourse struct {
	BaseModel
	BundleID string `gorm:"type:varchar(36);index;not null" json:"bundleId"`
	CourseID string `gorm:"type:varchar(36);index;not null" json:"courseId"`
}

func (BundleCourse) TableName() string {
	return "bundle_courses"
}

type SavedCourse struct {
	BaseModel
	UserID   uint   `gorm:"uniqueIndex:idx_saved_user_course;not null" json:"userId"`
	CourseID string `gorm:"type:varchar(36);uniqueIndex:idx_saved_user_course;not null" json:"courseId"`
}

func (SavedCourse) TableName() string {
	return "saved_courses"
}

type LikedCourse struct {
	BaseModel
	UserID   uint   `gorm:"uniqueIndex:idx_liked_user_course;not null" json:"userId"`
	CourseID string `gorm:"type:varchar(36);uniqueIndex:idx_liked_user_course;not null" json:"courseId"`
}

func (LikedCourse) TableName() string {
	return "liked_courses"
}
