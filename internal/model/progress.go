package model

import (
	"time"

	"gorm.io/datatypes"
)

// LessonProgress 学员课时完成记录
type LessonProgress struct {
	BaseModel
	UserID      uint       `gorm:"index;not null" json:"userId"`
	LessonID    string     `gorm:"type:varchar(36);index;not null" json:"lessonId"`
	Completed   bool       `gorm:"default:false" json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func (LessonProgress) TableName() string {
	return "lesson_progress"
}

type QuizAttempt struct {
	BaseModel
	UserID  uint           `gorm:"index;not null" json:"userId"`
	QuizID  string         `gorm:"type:varchar(36);index;not null" json:"quizId"`
	Score   int            `gorm:"default:0" json:"score"`
	Passed  bool           `gorm:"default:false" json:"passed"`
	Answers datatypes.JSON `json:"answers"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

const (
	SubmissionSubmitted = "submitted"
	SubmissionGraded    = "graded"
)

type AssignmentSubmission struct {
	BaseModel
	UserID       uint   `gorm:"index;not null" json:"userId"`
	AssignmentID string `gorm:"type:varchar(36);index;not null" json:"assignmentId"`
	Content      string `gorm:"type:text" json:"content"`
	FileURL      string `gorm:"size:500" json:"fileUrl"`
	Score        *int   `json:"score,omitempty"`
	Status       string `gorm:"size:20;default:'submitted'" json:"status"`
}

func (AssignmentSubmission) TableName() string {
	return "assignment_submissions"
}

// CalendarEvent 学员日历，可关联到课程或具体课时
type CalendarEvent struct {
	BaseModel
	UserID   uint      `gorm:"index;not null" json:"userId"`
	CourseID *string   `gorm:"type:varchar(36);index" json:"courseId,omitempty"`
	LessonID *string   `gorm:"type:varchar(36);index" json:"lessonId,omitempty"`
	Title    string    `gorm:"size:255" json:"title"`
	StartsAt time.Time `json:"startsAt"`
}

func (CalendarEvent) TableName() string {
	return "calendar_events"
}
