package coursetree

import (
	"encoding/json"
	"time"
	"tutor_market_backend/internal/model"
)

// TopicPayload 客户端提交的期望状态。带 id 表示更新，不带 id 表示新建，
// 已存在但未出现在列表中的 id 将被删除（连同其依赖数据）。
// swagger:model TopicPayload
type TopicPayload struct {
	ID          string          `json:"id,omitempty"`
	Title       string          `json:"title" binding:"required,max=255"`
	Description string          `json:"description,omitempty"`
	Lessons     []LessonPayload `json:"lessons,omitempty" binding:"dive"`
}

// swagger:model LessonPayload
type LessonPayload struct {
	ID          string             `json:"id,omitempty"`
	Title       string             `json:"title" binding:"required,max=255"`
	Description string             `json:"description,omitempty"`
	VideoURL    string             `json:"videoUrl,omitempty" binding:"omitempty,max=500"`
	Content     string             `json:"content,omitempty"`
	Duration    int                `json:"duration,omitempty" binding:"min=0"`
	Type        model.LessonType   `json:"type" binding:"required,oneof=lesson quiz assignment"`
	Quiz        *QuizPayload       `json:"quiz,omitempty"`
	Assignment  *AssignmentPayload `json:"assignment,omitempty"`
}

// QuizPayload 课时与测验一对一，id 可省略
// swagger:model QuizPayload
type QuizPayload struct {
	ID           string            `json:"id,omitempty"`
	Title        string            `json:"title,omitempty" binding:"max=255"`
	Description  string            `json:"description,omitempty"`
	PassingScore int               `json:"passingScore,omitempty" binding:"min=0,max=100"`
	TimeLimit    int               `json:"timeLimit,omitempty" binding:"min=0"`
	Questions    []QuestionPayload `json:"questions,omitempty" binding:"dive"`
}

// swagger:model QuestionPayload
type QuestionPayload struct {
	ID             string   `json:"id,omitempty"`
	Question       string   `json:"question" binding:"required"`
	Type           string   `json:"type" binding:"required,oneof=single multiple true_false order"`
	Options        []string `json:"options,omitempty" binding:"dive,required"`
	CorrectAnswers []int    `json:"correctAnswers,omitempty"`
	Points         int      `json:"points,omitempty" binding:"min=0"`
	Explanation    string   `json:"explanation,omitempty"`
}

// swagger:model AssignmentPayload
type AssignmentPayload struct {
	ID               string          `json:"id,omitempty"`
	Title            string          `json:"title,omitempty" binding:"max=255"`
	Description      string          `json:"description,omitempty"`
	DueDate          *time.Time      `json:"dueDate,omitempty"`
	MaxScore         int             `json:"maxScore,omitempty" binding:"min=0"`
	AllowFileUpload  bool            `json:"allowFileUpload,omitempty"`
	AllowedFileTypes []string        `json:"allowedFileTypes,omitempty"`
	UnitTests        json.RawMessage `json:"unitTests,omitempty" swaggertype:"object"`
}
