package repository

import (
	"errors"
	"time"

	"tutor_market_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) WithTx(tx *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: tx}
}

func (r *EnrollmentRepository) IsEnrolled(userID uint, courseID string) (bool, error) {
	var n int64
	err := r.DB.Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&n).Error
	return n > 0, err
}

func (r *EnrollmentRepository) Create(e *model.Enrollment) error {
	return r.DB.Create(e).Error
}

func (r *EnrollmentRepository) ListByUser(userID uint) ([]model.Enrollment, error) {
	var list []model.Enrollment
	err := r.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error
	return list, err
}

// CompleteLesson 幂等：已存在则仅刷新完成状态
func (r *EnrollmentRepository) CompleteLesson(userID uint, lessonID string, at time.Time) (*model.LessonProgress, error) {
	var progress model.LessonProgress
	err := r.DB.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&progress).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	progress.UserID = userID
	progress.LessonID = lessonID
	progress.Completed = true
	if progress.CompletedAt == nil {
		progress.CompletedAt = &at
	}
	return &progress, r.DB.Save(&progress).Error
}

func (r *EnrollmentRepository) CreateQuizAttempt(a *model.QuizAttempt) error {
	return r.DB.Create(a).Error
}

func (r *EnrollmentRepository) CreateSubmission(s *model.AssignmentSubmission) error {
	return r.DB.Create(s).Error
}

// ToggleSaved 返回切换后的状态
func (r *EnrollmentRepository) ToggleSaved(userID uint, courseID string) (bool, error) {
	return toggle(r.DB, &model.SavedCourse{UserID: userID, CourseID: courseID}, userID, courseID)
}

func (r *EnrollmentRepository) ToggleLiked(userID uint, courseID string) (bool, error) {
	return toggle(r.DB, &model.LikedCourse{UserID: userID, CourseID: courseID}, userID, courseID)
}

func toggle(db *gorm.DB, marker interface{}, userID uint, courseID string) (bool, error) {
	var on bool
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Unscoped().Where("user_id = ? AND course_id = ?", userID, courseID).Delete(marker)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		on = true
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(marker).Error
	})
	return on, err
}
