package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tutor_market_backend/internal/coursetree"
	"tutor_market_backend/internal/model"
	"tutor_market_backend/internal/repository"
	"tutor_market_backend/internal/util"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CourseService struct {
	Repo     *repository.CourseRepository
	Content  *CourseContentService
	Notifier Notifier
}

func NewCourseService(repo *repository.CourseRepository, content *CourseContentService, notifier Notifier) *CourseService {
	return &CourseService{Repo: repo, Content: content, Notifier: notifier}
}

// swagger:model CourseRequest
type CourseRequest struct {
	Title         string                    `json:"title" binding:"required,max=255"`
	Description   string                    `json:"description"`
	Category      string                    `json:"category" binding:"max=100"`
	Level         string                    `json:"level" binding:"omitempty,oneof=beginner intermediate advanced"`
	CoverURL      string                    `json:"coverUrl" binding:"omitempty,max=255"`
	Price         decimal.Decimal           `json:"price" swaggertype:"string"`
	DiscountPrice decimal.Decimal           `json:"discountPrice" swaggertype:"string"`
	Topics        []coursetree.TopicPayload `json:"topics" binding:"dive"`
}

// UpdateCourseRequest 标量字段为空表示不修改；topics 缺省表示不动内容树，[] 表示清空
// swagger:model UpdateCourseRequest
type UpdateCourseRequest struct {
	Title         *string                   `json:"title" binding:"omitempty,min=1,max=255"`
	Description   *string                   `json:"description"`
	Category      *string                   `json:"category" binding:"omitempty,max=100"`
	Level         *string                   `json:"level" binding:"omitempty,oneof=beginner intermediate advanced"`
	CoverURL      *string                   `json:"coverUrl" binding:"omitempty,max=255"`
	Price         *decimal.Decimal          `json:"price" swaggertype:"string"`
	DiscountPrice *decimal.Decimal          `json:"discountPrice" swaggertype:"string"`
	Topics        []coursetree.TopicPayload `json:"topics" binding:"dive"`
	Version       *int                      `json:"version"`
}

// Viewer 当前访问者，匿名时 UserID 为 0
type Viewer struct {
	UserID uint
	Role   model.UserRole
}

func (v Viewer) canEdit(course *model.Course) bool {
	return v.Role == model.Admin || (v.UserID != 0 && course.TeacherID == v.UserID)
}

func validatePrices(price, discount decimal.Decimal) error {
	if price.IsNegative() {
		return util.Invalid("price", "must not be negative")
	}
	if discount.IsNegative() {
		return util.Invalid("discountPrice", "must not be negative")
	}
	if discount.IsPositive() && discount.GreaterThanOrEqual(price) {
		return util.Invalid("discountPrice", "must be lower than price")
	}
	return nil
}

// CreateCourse 新课程为草稿状态，可同时提交初始内容树
func (s *CourseService) CreateCourse(ctx context.Context, teacherID uint, req *CourseRequest) (*model.Course, error) {
	if err := validatePrices(req.Price, req.DiscountPrice); err != nil {
		return nil, err
	}
	if err := coursetree.Validate(req.Topics); err != nil {
		return nil, err
	}

	course := &model.Course{
		TeacherID:     teacherID,
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Level:         req.Level,
		CoverURL:      req.CoverURL,
		Price:         req.Price,
		DiscountPrice: req.DiscountPrice,
		Status:        model.CourseDraft,
	}
	course.ID = model.GenerateUUID()
	if err := s.Content.CreateWithTree(ctx, course, req.Topics); err != nil {
		return nil, err
	}
	return course, nil
}

// UpdateCourse 标量字段与内容树在同一事务中更新
func (s *CourseService) UpdateCourse(ctx context.Context, viewer Viewer, courseID string, req *UpdateCourseRequest) (*model.Course, error) {
	if req.Topics != nil {
		if err := coursetree.Validate(req.Topics); err != nil {
			return nil, err
		}
	}

	var (
		updated *model.Course
		plan    *coursetree.Plan
	)
	err := s.Content.Mutate(ctx, "update", courseID, func(ctx context.Context, repo *repository.CourseRepository, course *model.Course) error {
		if !viewer.canEdit(course) {
			return util.ErrPermissionDenied
		}
		if course.Status == model.CourseArchived {
			return &util.ConflictError{Reason: "archived course cannot be edited"}
		}
		if req.Version != nil && *req.Version != course.Version {
			return &util.ConflictError{Reason: fmt.Sprintf("course version is %d, request was based on %d", course.Version, *req.Version)}
		}

		applyCourseFields(course, req)
		if err := validatePrices(course.Price, course.DiscountPrice); err != nil {
			return err
		}
		if err := repo.Save(course); err != nil {
			return err
		}

		if req.Topics != nil {
			var err error
			if plan, err = s.Content.SyncTree(ctx, repo, course, req.Topics); err != nil {
				return err
			}
		} else if err := repo.BumpVersion(course); err != nil {
			return err
		}
		updated = course
		return nil
	})
	if err != nil {
		return nil, err
	}
	recordPlan(plan)
	return updated, nil
}

func applyCourseFields(course *model.Course, req *UpdateCourseRequest) {
	if req.Title != nil {
		course.Title = *req.Title
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Category != nil {
		course.Category = *req.Category
	}
	if req.Level != nil {
		course.Level = *req.Level
	}
	if req.CoverURL != nil {
		course.CoverURL = *req.CoverURL
	}
	if req.Price != nil {
		course.Price = *req.Price
	}
	if req.DiscountPrice != nil {
		course.DiscountPrice = *req.DiscountPrice
	}
}

// GetCourse 已发布课程所有人可见，其余仅作者与管理员可见。非作者看不到正确答案。
func (s *CourseService) GetCourse(courseID string, viewer Viewer) (*model.Course, error) {
	course, err := s.Repo.FindWithTree(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NewNotFoundError("course", courseID)
		}
		return nil, err
	}

	editor := viewer.canEdit(course)
	if course.Status != model.CoursePublished && !editor {
		// 不暴露未发布课程的存在
		return nil, util.NewNotFoundError("course", courseID)
	}

	for i := range course.Topics {
		for j := range course.Topics[i].Lessons {
			l := &course.Topics[i].Lessons[j]
			l.ContentHTML = renderMarkdown(l.Content)
			if l.Quiz != nil && !editor {
				for k := range l.Quiz.Questions {
					l.Quiz.Questions[k].CorrectAnswers = nil
					l.Quiz.Questions[k].Explanation = ""
				}
			}
		}
	}
	return course, nil
}

func (s *CourseService) ListPublished(page, limit int, category string) ([]model.Course, int64, error) {
	return s.Repo.ListPublished((page-1)*limit, limit, category)
}

func (s *CourseService) ListByTeacher(teacherID uint, page, limit int) ([]model.Course, int64, error) {
	return s.Repo.ListByTeacher(teacherID, (page-1)*limit, limit)
}

// 状态机：草稿/驳回 -> 待审核 -> 发布/驳回，发布 -> 归档
var courseTransitions = map[model.CourseStatus][]model.CourseStatus{
	model.CourseDraft:     {model.CoursePending},
	model.CourseRejected:  {model.CoursePending},
	model.CoursePending:   {model.CoursePublished, model.CourseRejected},
	model.CoursePublished: {model.CourseArchived},
}

func canTransition(from, to model.CourseStatus) bool {
	for _, s := range courseTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s *CourseService) transition(ctx context.Context, operation, courseID string, to model.CourseStatus, check func(*repository.CourseRepository, *model.Course) error) (*model.Course, error) {
	var updated *model.Course
	err := s.Content.Mutate(ctx, operation, courseID, func(ctx context.Context, repo *repository.CourseRepository, course *model.Course) error {
		if err := check(repo, course); err != nil {
			return err
		}
		if !canTransition(course.Status, to) {
			return &util.ConflictError{Reason: fmt.Sprintf("course status %s cannot change to %s", course.Status, to)}
		}
		course.Status = to
		if to == model.CoursePublished {
			now := time.Now()
			course.PublishedAt = &now
			course.RejectReason = ""
		}
		if err := repo.Save(course); err != nil {
			return err
		}
		updated = course
		return nil
	})
	return updated, err
}

// SubmitForReview 仅作者可提交，且课程至少有一个课时
func (s *CourseService) SubmitForReview(ctx context.Context, teacherID uint, courseID string) (*model.Course, error) {
	return s.transition(ctx, "submit", courseID, model.CoursePending, func(repo *repository.CourseRepository, course *model.Course) error {
		if course.TeacherID != teacherID {
			return util.ErrPermissionDenied
		}
		n, err := repo.CountLessons(course.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return util.Invalid("topics", "course must contain at least one lesson before review")
		}
		return nil
	})
}

// ReviewCourse 管理员审核，结果通知教师
func (s *CourseService) ReviewCourse(ctx context.Context, courseID string, approve bool, reason string) (*model.Course, error) {
	to := model.CoursePublished
	if !approve {
		to = model.CourseRejected
		if reason == "" {
			return nil, util.Invalid("reason", "is required when rejecting")
		}
	}

	course, err := s.transition(ctx, "review", courseID, to, func(_ *repository.CourseRepository, course *model.Course) error {
		if !approve {
			course.RejectReason = reason
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	link := "/teacher/courses/" + course.ID
	if approve {
		s.Notifier.Notify(course.TeacherID, "课程已发布", fmt.Sprintf("你的课程《%s》已通过审核", course.Title), model.NotificationCourse, link)
	} else {
		s.Notifier.Notify(course.TeacherID, "课程未通过审核", fmt.Sprintf("你的课程《%s》未通过审核：%s", course.Title, reason), model.NotificationCourse, link)
	}
	return course, nil
}

func (s *CourseService) ArchiveCourse(ctx context.Context, viewer Viewer, courseID string) (*model.Course, error) {
	return s.transition(ctx, "archive", courseID, model.CourseArchived, func(_ *repository.CourseRepository, course *model.Course) error {
		if !viewer.canEdit(course) {
			return util.ErrPermissionDenied
		}
		return nil
	})
}

// DeleteCourse 作者或管理员删除课程及全部依赖数据
func (s *CourseService) DeleteCourse(ctx context.Context, viewer Viewer, courseID string) error {
	course, err := s.Repo.FindByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.NewNotFoundError("course", courseID)
		}
		return err
	}
	if !viewer.canEdit(course) {
		return util.ErrPermissionDenied
	}
	return s.Content.DeleteCourse(ctx, courseID)
}
