package repository

import (
	"fmt"

	"tutor_market_backend/internal/coursetree"
	"tutor_market_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

// WithTx 返回绑定到事务的副本
func (r *CourseRepository) WithTx(tx *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: tx}
}

// entityModels 计划中的实体与表模型的对应关系
var entityModels = map[coursetree.Entity]func() interface{}{
	coursetree.EntityCourse:         func() interface{} { return &model.Course{} },
	coursetree.EntityTopic:          func() interface{} { return &model.Topic{} },
	coursetree.EntityLesson:         func() interface{} { return &model.Lesson{} },
	coursetree.EntityQuiz:           func() interface{} { return &model.Quiz{} },
	coursetree.EntityQuestion:       func() interface{} { return &model.Question{} },
	coursetree.EntityAssignment:     func() interface{} { return &model.Assignment{} },
	coursetree.EntityLessonProgress: func() interface{} { return &model.LessonProgress{} },
	coursetree.EntityQuizAttempt:    func() interface{} { return &model.QuizAttempt{} },
	coursetree.EntitySubmission:     func() interface{} { return &model.AssignmentSubmission{} },
	coursetree.EntityCalendarEvent:  func() interface{} { return &model.CalendarEvent{} },
	coursetree.EntityEnrollment:     func() interface{} { return &model.Enrollment{} },
	coursetree.EntityReview:         func() interface{} { return &model.Review{} },
	coursetree.EntityCertificate:    func() interface{} { return &model.Certificate{} },
	coursetree.EntityBundleCourse:   func() interface{} { return &model.BundleCourse{} },
	coursetree.EntitySavedCourse:    func() interface{} { return &model.SavedCourse{} },
	coursetree.EntityLikedCourse:    func() interface{} { return &model.LikedCourse{} },
}

func (r *CourseRepository) Create(course *model.Course) error {
	return r.DB.Omit(clause.Associations).Create(course).Error
}

// Save 只保存课程本身的字段，不级联 Topics
func (r *CourseRepository) Save(course *model.Course) error {
	return r.DB.Omit(clause.Associations).Save(course).Error
}

func (r *CourseRepository) FindByID(id string) (*model.Course, error) {
	var course model.Course
	err := r.DB.First(&course, "id = ?", id).Error
	return &course, err
}

// FindWithTree 课程及完整内容树，各层按 order_index 排序
func (r *CourseRepository) FindWithTree(id string) (*model.Course, error) {
	course, err := r.FindByID(id)
	if err != nil {
		return nil, err
	}
	topics, err := r.LoadTopics(id)
	if err != nil {
		return nil, err
	}
	course.Topics = topics
	return course, nil
}

// LoadTopics 一次性加载课程的内容树快照
func (r *CourseRepository) LoadTopics(courseID string) ([]model.Topic, error) {
	byOrder := func(db *gorm.DB) *gorm.DB {
		return db.Order("order_index ASC")
	}
	var topics []model.Topic
	err := r.DB.Where("course_id = ?", courseID).
		Order("order_index ASC").
		Preload("Lessons", byOrder).
		Preload("Lessons.Quiz").
		Preload("Lessons.Quiz.Questions", byOrder).
		Preload("Lessons.Assignment").
		Find(&topics).Error
	return topics, err
}

// Apply 执行计划中的单个操作。删除均为物理删除。
func (r *CourseRepository) Apply(op coursetree.Op) error {
	switch op.Action {
	case coursetree.ActionCreate:
		return r.DB.Omit(clause.Associations).Create(op.Record).Error
	case coursetree.ActionUpdate:
		return r.DB.Omit(clause.Associations).Save(op.Record).Error
	case coursetree.ActionDelete:
		newModel, ok := entityModels[op.Entity]
		if !ok {
			return fmt.Errorf("unknown entity %q", op.Entity)
		}
		query := r.DB.Unscoped()
		if op.ID != "" {
			query = query.Where("id = ?", op.ID)
		} else {
			query = query.Where(op.ParentColumn()+" = ?", op.ParentID)
		}
		return query.Delete(newModel()).Error
	default:
		return fmt.Errorf("unknown action %q", op.Action)
	}
}

// BumpVersion 版本号自增并同步到 course
func (r *CourseRepository) BumpVersion(course *model.Course) error {
	err := r.DB.Model(&model.Course{}).
		Where("id = ?", course.ID).
		Update("version", gorm.Expr("version + 1")).Error
	if err != nil {
		return err
	}
	course.Version++
	return nil
}

func (r *CourseRepository) ListPublished(offset, limit int, category string) ([]model.Course, int64, error) {
	var courses []model.Course
	var total int64

	query := r.DB.Model(&model.Course{}).Where("status = ?", model.CoursePublished)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("published_at DESC").Offset(offset).Limit(limit).Find(&courses).Error
	return courses, total, err
}

func (r *CourseRepository) ListByTeacher(teacherID uint, offset, limit int) ([]model.Course, int64, error) {
	var courses []model.Course
	var total int64

	query := r.DB.Model(&model.Course{}).Where("teacher_id = ?", teacherID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("updated_at DESC").Offset(offset).Limit(limit).Find(&courses).Error
	return courses, total, err
}

// CourseIDOfLesson 通过主题反查课时所属课程
func (r *CourseRepository) CourseIDOfLesson(lessonID string) (string, error) {
	var courseID string
	err := r.DB.Model(&model.Lesson{}).
		Select("topics.course_id").
		Joins("JOIN topics ON topics.id = lessons.topic_id").
		Where("lessons.id = ?", lessonID).
		Scan(&courseID).Error
	if err == nil && courseID == "" {
		err = gorm.ErrRecordNotFound
	}
	return courseID, err
}

func (r *CourseRepository) CountLessons(courseID string) (int64, error) {
	var n int64
	err := r.DB.Model(&model.Lesson{}).
		Joins("JOIN topics ON topics.id = lessons.topic_id").
		Where("topics.course_id = ?", courseID).
		Count(&n).Error
	return n, err
}

func (r *CourseRepository) FindQuiz(id string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_index ASC")
	}).First(&quiz, "id = ?", id).Error
	return &quiz, err
}

func (r *CourseRepository) FindAssignment(id string) (*model.Assignment, error) {
	var assignment model.Assignment
	err := r.DB.First(&assignment, "id = ?", id).Error
	return &assignment, err
}

// CountRows 统计某实体的行数，测试与运维检查孤儿数据时使用
func (r *CourseRepository) CountRows(entity coursetree.Entity, column, value string) (int64, error) {
	newModel, ok := entityModels[entity]
	if !ok {
		return 0, fmt.Errorf("unknown entity %q", entity)
	}
	var n int64
	query := r.DB.Unscoped().Model(newModel())
	if column != "" {
		query = query.Where(column+" = ?", value)
	}
	err := query.Count(&n).Error
	return n, err
}
