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
	"tutor_market_backend/pkg/locker"
	"tutor_market_backend/pkg/logger"
	"tutor_market_backend/pkg/monitoring"
	"tutor_market_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CourseContentService 课程内容树的同步与级联删除。
// 所有修改都在课程锁 + 单个数据库事务内完成：加载快照 -> 计算计划 -> 执行。
type CourseContentService struct {
	DB      *gorm.DB
	Repo    *repository.CourseRepository
	Locker  locker.Locker
	Planner *coursetree.Planner
}

func NewCourseContentService(db *gorm.DB, repo *repository.CourseRepository, lk locker.Locker) *CourseContentService {
	return &CourseContentService{
		DB:      db,
		Repo:    repo,
		Locker:  lk,
		Planner: coursetree.NewPlanner(),
	}
}

func courseLockKey(courseID string) string {
	return "course:tree:" + courseID
}

// MutateFunc 在事务内执行，repo 已绑定事务
type MutateFunc func(ctx context.Context, repo *repository.CourseRepository, course *model.Course) error

// Mutate 加锁并在事务中加载课程后执行 fn。课程不存在返回 NotFoundError，锁冲突返回 ConflictError。
func (s *CourseContentService) Mutate(ctx context.Context, operation, courseID string, fn MutateFunc) (err error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "course."+operation, attribute.String("course.id", courseID))
	defer func() {
		result := "ok"
		switch {
		case util.IsNotFound(err):
			result = "not_found"
		case util.IsValidation(err):
			result = "invalid"
		case util.IsConflict(err):
			result = "conflict"
		case err != nil:
			result = "error"
		}
		monitoring.CourseTreeDuration.WithLabelValues(operation, result).Observe(time.Since(start).Seconds())
		tracing.EndSpan(span, err)
	}()

	release, err := s.Locker.Acquire(ctx, courseLockKey(courseID))
	if err != nil {
		if errors.Is(err, locker.ErrNotAcquired) {
			monitoring.CourseLockContention.Inc()
			return &util.ConflictError{Reason: "course is being edited by another request"}
		}
		return err
	}
	defer release()

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)
		course, err := repo.FindByID(courseID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.NewNotFoundError("course", courseID)
		}
		if err != nil {
			return err
		}
		return fn(ctx, repo, course)
	})
}

// Synchronize 将课程内容树调整为 topics 描述的状态，空列表表示删除全部主题
func (s *CourseContentService) Synchronize(ctx context.Context, courseID string, topics []coursetree.TopicPayload) error {
	var plan *coursetree.Plan
	err := s.Mutate(ctx, "sync", courseID, func(ctx context.Context, repo *repository.CourseRepository, course *model.Course) error {
		var err error
		plan, err = s.SyncTree(ctx, repo, course, topics)
		return err
	})
	if err != nil {
		return err
	}
	recordPlan(plan)
	return nil
}

// SyncTree 在调用方的事务中同步内容树并递增版本号。调用方需已持有课程锁。
func (s *CourseContentService) SyncTree(ctx context.Context, repo *repository.CourseRepository, course *model.Course, topics []coursetree.TopicPayload) (*coursetree.Plan, error) {
	existing, err := repo.LoadTopics(course.ID)
	if err != nil {
		return nil, err
	}
	plan, err := s.Planner.PlanSync(course.ID, existing, topics)
	if err != nil {
		return nil, err
	}
	if err := apply(ctx, repo, plan); err != nil {
		return nil, err
	}
	if err := repo.BumpVersion(course); err != nil {
		return nil, err
	}

	logger.Log.Info("Course tree synchronized",
		zap.String("courseId", course.ID),
		zap.Int("deletes", len(plan.Deletes)),
		zap.Int("writes", len(plan.Writes)),
		zap.Int("version", course.Version))
	return plan, nil
}

// CreateWithTree 新课程与初始内容树在同一事务中写入
func (s *CourseContentService) CreateWithTree(ctx context.Context, course *model.Course, topics []coursetree.TopicPayload) error {
	ctx, span := tracing.StartSpan(ctx, "course.create")
	var plan *coursetree.Plan
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)
		if err := repo.Create(course); err != nil {
			return err
		}
		var err error
		plan, err = s.SyncTree(ctx, repo, course, topics)
		return err
	})
	tracing.EndSpan(span, err)
	if err != nil {
		return err
	}
	recordPlan(plan)
	return nil
}

// DeleteCourse 删除课程及其全部依赖数据
func (s *CourseContentService) DeleteCourse(ctx context.Context, courseID string) error {
	var plan *coursetree.Plan
	err := s.Mutate(ctx, "delete", courseID, func(ctx context.Context, repo *repository.CourseRepository, course *model.Course) error {
		topics, err := repo.LoadTopics(course.ID)
		if err != nil {
			return err
		}
		course.Topics = topics
		plan = s.Planner.PlanCourseDelete(course)
		return apply(ctx, repo, plan)
	})
	if err != nil {
		return err
	}
	recordPlan(plan)
	logger.Log.Info("Course deleted", zap.String("courseId", courseID), zap.Int("deletes", len(plan.Deletes)))
	return nil
}

func apply(ctx context.Context, repo *repository.CourseRepository, plan *coursetree.Plan) error {
	for _, op := range plan.Ops() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := repo.Apply(op); err != nil {
			target := op.ID
			if target == "" {
				target = op.ParentColumn() + "=" + op.ParentID
			}
			return fmt.Errorf("%s %s %s: %w", op.Action, op.Entity, target, err)
		}
	}
	return nil
}

// recordPlan 只在事务提交后计数
func recordPlan(plan *coursetree.Plan) {
	if plan == nil {
		return
	}
	for _, op := range plan.Ops() {
		monitoring.CourseTreeOps.WithLabelValues(string(op.Entity), string(op.Action)).Inc()
	}
}
