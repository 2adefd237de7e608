package service

import (
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tutor_market_backend/internal/config"
	"tutor_market_backend/internal/coursetree"
	"tutor_market_backend/internal/model"
	"tutor_market_backend/internal/repository"
	"tutor_market_backend/pkg/database"
	"tutor_market_backend/pkg/locker"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitDB(&config.DatabaseConfig{
		Driver:   "sqlite",
		Path:     "file:" + filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)",
		LogLevel: "silent",
	}, true)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type sentNotification struct {
	UserID uint
	Title  string
	Type   string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(userID uint, title, message, notificationType, link string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UserID: userID, Title: title, Type: notificationType})
}

func (n *recordingNotifier) all() []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentNotification(nil), n.sent...)
}

type fixture struct {
	db       *gorm.DB
	courses  *repository.CourseRepository
	content  *CourseContentService
	locker   *locker.LocalLocker
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	db := newTestDB(t)
	repo := repository.NewCourseRepository(db)
	lk := locker.NewLocalLocker(20 * time.Millisecond)
	return &fixture{
		db:       db,
		courses:  repo,
		content:  NewCourseContentService(db, repo, lk),
		locker:   lk,
		notifier: &recordingNotifier{},
	}
}

func (f *fixture) seedCourse(t *testing.T, teacherID uint, status model.CourseStatus, price string) *model.Course {
	t.Helper()
	c := &model.Course{
		TeacherID: teacherID,
		Title:     "Go for tutors",
		Status:    status,
		Price:     decimal.RequireFromString(price),
	}
	c.ID = model.GenerateUUID()
	if status == model.CoursePublished {
		now := time.Now()
		c.PublishedAt = &now
	}
	require.NoError(t, f.courses.Create(c))
	return c
}

func (f *fixture) count(t *testing.T, m interface{}, where ...interface{}) int64 {
	t.Helper()
	var n int64
	q := f.db.Unscoped().Model(m)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

// toPayload 把已持久化的树还原成请求体，模拟客户端回传全部 id
func toPayload(topics []model.Topic) []coursetree.TopicPayload {
	out := make([]coursetree.TopicPayload, 0, len(topics))
	for _, t := range topics {
		tp := coursetree.TopicPayload{ID: t.ID, Title: t.Title, Description: t.Description}
		for _, l := range t.Lessons {
			lp := coursetree.LessonPayload{
				ID: l.ID, Title: l.Title, Description: l.Description, VideoURL: l.VideoURL,
				Content: l.Content, Duration: l.Duration, Type: l.Type,
			}
			if l.Quiz != nil {
				qp := &coursetree.QuizPayload{
					ID: l.Quiz.ID, Title: l.Quiz.Title, Description: l.Quiz.Description,
					PassingScore: l.Quiz.PassingScore, TimeLimit: l.Quiz.TimeLimit,
				}
				for _, q := range l.Quiz.Questions {
					var options []string
					var answers []int
					mustUnmarshal(q.Options, &options)
					mustUnmarshal(q.CorrectAnswers, &answers)
					qp.Questions = append(qp.Questions, coursetree.QuestionPayload{
						ID: q.ID, Question: q.Question, Type: q.Type, Options: options,
						CorrectAnswers: answers, Points: q.Points, Explanation: q.Explanation,
					})
				}
				lp.Quiz = qp
			}
			if l.Assignment != nil {
				var types []string
				mustUnmarshal(l.Assignment.AllowedFileTypes, &types)
				lp.Assignment = &coursetree.AssignmentPayload{
					ID: l.Assignment.ID, Title: l.Assignment.Title, Description: l.Assignment.Description,
					DueDate: l.Assignment.DueDate, MaxScore: l.Assignment.MaxScore,
					AllowFileUpload: l.Assignment.AllowFileUpload, AllowedFileTypes: types,
					UnitTests: []byte(l.Assignment.UnitTests),
				}
			}
			tp.Lessons = append(tp.Lessons, lp)
		}
		out = append(out, tp)
	}
	return out
}

func quizLesson(title string, questions int) coursetree.LessonPayload {
	qp := &coursetree.QuizPayload{Title: title + " quiz"}
	for i := 0; i < questions; i++ {
		qp.Questions = append(qp.Questions, coursetree.QuestionPayload{
			Question:       title + " question",
			Type:           model.QuestionSingle,
			Options:        []string{"yes", "no"},
			CorrectAnswers: []int{0},
		})
	}
	return coursetree.LessonPayload{Title: title, Type: model.LessonTypeQuiz, Quiz: qp}
}

func mustUnmarshal(data []byte, v interface{}) {
	if len(data) == 0 {
		return
	}
	if err := json.Unmarshal(data, v); err != nil {
		panic(err)
	}
}
