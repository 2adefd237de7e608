package model

import (
	"time"

	"gorm.io/datatypes"
)

type LessonType string

const (
	LessonTypeLesson     LessonType = "lesson"
	LessonTypeQuiz       LessonType = "quiz"
	LessonTypeAssignment LessonType = "assignment"
)

const (
	QuestionSingle    = "single"
	QuestionMultiple  = "multiple"
	QuestionTrueFalse = "true_false"
	QuestionOrder     = "order"
)

// swagger:model Topic
type Topic struct {
	UUIDBase

	CourseID    string `gorm:"type:varchar(36);index;not null" json:"courseId"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	OrderIndex  int    `gorm:"not null;default:0" json:"orderIndex"`

	Lessons []Lesson `gorm:"foreignKey:TopicID" json:"lessons,omitempty"`
}

func (Topic) TableName() string {
	return "topics"
}

// swagger:model Lesson
type Lesson struct {
	UUIDBase

	TopicID     string     `gorm:"type:varchar(36);index;not null" json:"topicId"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	VideoURL    string     `gorm:"size:500" json:"videoUrl"`
	Content     string     `gorm:"type:text" json:"content"`  // markdown
	Duration    int        `gorm:"default:0" json:"duration"` // 分钟
	OrderIndex  int        `gorm:"not null;default:0" json:"orderIndex"`
	Type        LessonType `gorm:"size:20;not null;default:'lesson'" json:"type"`

	ContentHTML string `gorm:"-" json:"contentHtml,omitempty"`

	Quiz       *Quiz       `gorm:"foreignKey:LessonID" json:"quiz,omitempty"`
	Assignment *Assignment `gorm:"foreignKey:LessonID" json:"assignment,omitempty"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// swagger:model Quiz
type Quiz struct {
	UUIDBase

	LessonID     string `gorm:"type:varchar(36);uniqueIndex;not null" json:"lessonId"`
	Title        string `gorm:"size:255" json:"title"`
	Description  string `gorm:"type:text" json:"description"`
	PassingScore int    `gorm:"default:60" json:"passingScore"`
	TimeLimit    int    `gorm:"default:0" json:"timeLimit"` // 分钟，0 表示不限时

	Questions []Question `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// swagger:model Question
type Question struct {
	UUIDBase

	QuizID         string         `gorm:"type:varchar(36);index;not null" json:"quizId"`
	Question       string         `gorm:"type:text;not null" json:"question"`
	Type           string         `gorm:"size:20;not null" json:"type"` // single, multiple, true_false, order
	Options        datatypes.JSON `json:"options"`                      // JSON array of strings
	CorrectAnswers datatypes.JSON `json:"correctAnswers,omitempty"`     // JSON array of option indices
	Points         int            `gorm:"default:1" json:"points"`
	Explanation    string         `gorm:"type:text" json:"explanation"`
	OrderIndex     int            `gorm:"not null;default:0" json:"orderIndex"`
}

func (Question) TableName() string {
	return "questions"
}

// swagger:model Assignment
type Assignment struct {
	UUIDBase

	LessonID         string         `gorm:"type:varchar(36);uniqueIndex;not null" json:"lessonId"`
	Title            string         `gorm:"size:255;not null" json:"title"`
	Description      string         `gorm:"type:text" json:"description"`
	DueDate          *time.Time     `json:"dueDate,omitempty"`
	MaxScore         int            `gorm:"default:100" json:"maxScore"`
	AllowFileUpload  bool           `gorm:"default:false" json:"allowFileUpload"`
	AllowedFileTypes datatypes.JSON `json:"allowedFileTypes"`
	UnitTests        datatypes.JSON `json:"unitTests,omitempty"`
}

func (Assignment) TableName() string {
	return "assignments"
}
