package coursetree

import (
	"bytes"
	"encoding/json"
	"fmt"

	"tutor_market_backend/internal/model"
	"tutor_market_backend/internal/util"

	"gorm.io/datatypes"
)

// Planner 纯函数的差异计算器，不访问数据库
type Planner struct {
	NewID func() string
}

func NewPlanner() *Planner {
	return &Planner{NewID: model.GenerateUUID}
}

// PlanSync 计算将 existing（按 orderIndex 排序、已预加载子节点）调整为 desired 所需的操作。
func (p *Planner) PlanSync(courseID string, existing []model.Topic, desired []TopicPayload) (*Plan, error) {
	b := &builder{plan: &Plan{}, newID: p.NewID}
	if err := reconcile(b, topicLevel(courseID), "topics", existing, desired); err != nil {
		return nil, err
	}
	return b.plan, nil
}

// PlanCourseDelete 课程整体删除：先删课程级关联，再逐主题级联，最后删课程
func (p *Planner) PlanCourseDelete(course *model.Course) *Plan {
	b := &builder{plan: &Plan{}, newID: p.NewID}
	for _, e := range []Entity{
		EntityEnrollment, EntityReview, EntityCertificate, EntityBundleCourse,
		EntitySavedCourse, EntityLikedCourse, EntityCalendarEvent,
	} {
		b.deleteByParent(e, EntityCourse, course.ID)
	}
	for i := range course.Topics {
		removeTopic(b, &course.Topics[i])
	}
	b.delete(EntityCourse, course.ID)
	return b.plan
}

type builder struct {
	plan  *Plan
	newID func() string
}

func (b *builder) create(e Entity, id string, record interface{}) {
	b.plan.Writes = append(b.plan.Writes, Op{Action: ActionCreate, Entity: e, ID: id, Record: record})
}

func (b *builder) update(e Entity, id string, record interface{}) {
	b.plan.Writes = append(b.plan.Writes, Op{Action: ActionUpdate, Entity: e, ID: id, Record: record})
}

func (b *builder) delete(e Entity, id string) {
	b.plan.Deletes = append(b.plan.Deletes, Op{Action: ActionDelete, Entity: e, ID: id})
}

func (b *builder) deleteByParent(e, parent Entity, parentID string) {
	b.plan.Deletes = append(b.plan.Deletes, Op{Action: ActionDelete, Entity: e, Parent: parent, ParentID: parentID})
}

// level 描述树的一层：如何取 id、如何新建/更新/删除一个节点
type level[E, P any] struct {
	existingID func(*E) string
	payloadID  func(*P) string
	create     func(b *builder, p *P, order int, path string) error
	update     func(b *builder, e *E, p *P, order int, path string) error
	remove     func(b *builder, e *E)
}

// reconcile 同一父节点下的子列表对齐。
// 带 id 且命中：更新；无 id 或 id 不属于该父节点：新建；未被引用的现有节点：删除。
func reconcile[E, P any](b *builder, lv level[E, P], path string, existing []E, desired []P) error {
	byID := make(map[string]*E, len(existing))
	for i := range existing {
		byID[lv.existingID(&existing[i])] = &existing[i]
	}

	seen := make(map[string]bool, len(desired))
	for i := range desired {
		p := &desired[i]
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		id := lv.payloadID(p)
		if id != "" {
			if seen[id] {
				return util.Invalid(itemPath+".id", "duplicate id %s", id)
			}
			seen[id] = true
		}
		if e, ok := byID[id]; ok && id != "" {
			if err := lv.update(b, e, p, i, itemPath); err != nil {
				return err
			}
			continue
		}
		if err := lv.create(b, p, i, itemPath); err != nil {
			return err
		}
	}

	for i := range existing {
		if !seen[lv.existingID(&existing[i])] {
			lv.remove(b, &existing[i])
		}
	}
	return nil
}

func topicLevel(courseID string) level[model.Topic, TopicPayload] {
	return level[model.Topic, TopicPayload]{
		existingID: func(t *model.Topic) string { return t.ID },
		payloadID:  func(p *TopicPayload) string { return p.ID },
		create: func(b *builder, p *TopicPayload, order int, path string) error {
			t := &model.Topic{CourseID: courseID}
			t.ID = b.newID()
			applyTopic(t, p, order)
			b.create(EntityTopic, t.ID, t)
			return reconcile(b, lessonLevel(t.ID), path+".lessons", nil, p.Lessons)
		},
		update: func(b *builder, e *model.Topic, p *TopicPayload, order int, path string) error {
			t := *e
			t.Lessons = nil
			applyTopic(&t, p, order)
			if t.Title != e.Title || t.Description != e.Description || t.OrderIndex != e.OrderIndex {
				b.update(EntityTopic, t.ID, &t)
			}
			return reconcile(b, lessonLevel(t.ID), path+".lessons", e.Lessons, p.Lessons)
		},
		remove: removeTopic,
	}
}

func applyTopic(t *model.Topic, p *TopicPayload, order int) {
	t.Title = p.Title
	t.Description = p.Description
	t.OrderIndex = order
}

func removeTopic(b *builder, t *model.Topic) {
	for i := range t.Lessons {
		removeLesson(b, &t.Lessons[i])
	}
	b.delete(EntityTopic, t.ID)
}

func lessonLevel(topicID string) level[model.Lesson, LessonPayload] {
	return level[model.Lesson, LessonPayload]{
		existingID: func(l *model.Lesson) string { return l.ID },
		payloadID:  func(p *LessonPayload) string { return p.ID },
		create: func(b *builder, p *LessonPayload, order int, path string) error {
			if err := checkLessonType(p, path); err != nil {
				return err
			}
			l := &model.Lesson{TopicID: topicID}
			l.ID = b.newID()
			applyLesson(l, p, order)
			b.create(EntityLesson, l.ID, l)
			return syncLessonContent(b, l.ID, nil, p, path)
		},
		update: func(b *builder, e *model.Lesson, p *LessonPayload, order int, path string) error {
			if err := checkLessonType(p, path); err != nil {
				return err
			}
			l := *e
			l.Quiz, l.Assignment = nil, nil
			applyLesson(&l, p, order)
			if lessonChanged(e, &l) {
				b.update(EntityLesson, l.ID, &l)
			}
			return syncLessonContent(b, l.ID, e, p, path)
		},
		remove: removeLesson,
	}
}

func applyLesson(l *model.Lesson, p *LessonPayload, order int) {
	l.Title = p.Title
	l.Description = p.Description
	l.VideoURL = p.VideoURL
	l.Content = p.Content
	l.Duration = p.Duration
	l.Type = p.Type
	l.OrderIndex = order
}

func lessonChanged(a, b *model.Lesson) bool {
	return a.Title != b.Title || a.Description != b.Description || a.VideoURL != b.VideoURL ||
		a.Content != b.Content || a.Duration != b.Duration || a.Type != b.Type ||
		a.OrderIndex != b.OrderIndex
}

func checkLessonType(p *LessonPayload, path string) error {
	if p.Quiz != nil && p.Type != model.LessonTypeQuiz {
		return util.Invalid(path+".quiz", "quiz payload requires lesson type %q, got %q", model.LessonTypeQuiz, p.Type)
	}
	if p.Assignment != nil && p.Type != model.LessonTypeAssignment {
		return util.Invalid(path+".assignment", "assignment payload requires lesson type %q, got %q", model.LessonTypeAssignment, p.Type)
	}
	return nil
}

// syncLessonContent 处理课时的测验/作业。类型变化时先删除不再匹配的子实体。
func syncLessonContent(b *builder, lessonID string, existing *model.Lesson, p *LessonPayload, path string) error {
	var curQuiz *model.Quiz
	var curAssignment *model.Assignment
	if existing != nil {
		curQuiz, curAssignment = existing.Quiz, existing.Assignment
	}

	if curQuiz != nil && p.Type != model.LessonTypeQuiz {
		removeQuiz(b, curQuiz)
		curQuiz = nil
	}
	if curAssignment != nil && p.Type != model.LessonTypeAssignment {
		removeAssignment(b, curAssignment)
		curAssignment = nil
	}

	switch {
	case p.Quiz != nil:
		return syncQuiz(b, lessonID, curQuiz, p.Quiz, path+".quiz")
	case p.Assignment != nil:
		syncAssignment(b, lessonID, curAssignment, p.Assignment, p.Title)
	}
	return nil
}

func removeLesson(b *builder, l *model.Lesson) {
	if l.Quiz != nil {
		removeQuiz(b, l.Quiz)
	}
	if l.Assignment != nil {
		removeAssignment(b, l.Assignment)
	}
	b.deleteByParent(EntityLessonProgress, EntityLesson, l.ID)
	b.deleteByParent(EntityCalendarEvent, EntityLesson, l.ID)
	b.delete(EntityLesson, l.ID)
}

func syncQuiz(b *builder, lessonID string, cur *model.Quiz, p *QuizPayload, path string) error {
	if cur == nil {
		q := &model.Quiz{LessonID: lessonID}
		q.ID = b.newID()
		applyQuiz(q, p)
		b.create(EntityQuiz, q.ID, q)
		return reconcile(b, questionLevel(q.ID), path+".questions", nil, p.Questions)
	}

	q := *cur
	q.Questions = nil
	applyQuiz(&q, p)
	if q.Title != cur.Title || q.Description != cur.Description ||
		q.PassingScore != cur.PassingScore || q.TimeLimit != cur.TimeLimit {
		b.update(EntityQuiz, q.ID, &q)
	}
	return reconcile(b, questionLevel(q.ID), path+".questions", cur.Questions, p.Questions)
}

func applyQuiz(q *model.Quiz, p *QuizPayload) {
	q.Title = p.Title
	q.Description = p.Description
	q.PassingScore = p.PassingScore
	if q.PassingScore == 0 {
		q.PassingScore = DefaultPassingScore
	}
	q.TimeLimit = p.TimeLimit
}

// removeQuiz 顺序：答题记录 -> 题目 -> 测验
func removeQuiz(b *builder, q *model.Quiz) {
	b.deleteByParent(EntityQuizAttempt, EntityQuiz, q.ID)
	b.deleteByParent(EntityQuestion, EntityQuiz, q.ID)
	b.delete(EntityQuiz, q.ID)
}

func questionLevel(quizID string) level[model.Question, QuestionPayload] {
	return level[model.Question, QuestionPayload]{
		existingID: func(q *model.Question) string { return q.ID },
		payloadID:  func(p *QuestionPayload) string { return p.ID },
		create: func(b *builder, p *QuestionPayload, order int, path string) error {
			q := &model.Question{QuizID: quizID}
			q.ID = b.newID()
			if err := applyQuestion(q, p, order, path); err != nil {
				return err
			}
			b.create(EntityQuestion, q.ID, q)
			return nil
		},
		update: func(b *builder, e *model.Question, p *QuestionPayload, order int, path string) error {
			q := *e
			if err := applyQuestion(&q, p, order, path); err != nil {
				return err
			}
			if questionChanged(e, &q) {
				b.update(EntityQuestion, q.ID, &q)
			}
			return nil
		},
		remove: func(b *builder, q *model.Question) {
			b.delete(EntityQuestion, q.ID)
		},
	}
}

func applyQuestion(q *model.Question, p *QuestionPayload, order int, path string) error {
	options, answers, err := NormalizeQuestion(p)
	if err != nil {
		return util.Invalid(path, "%v", err)
	}
	q.Question = p.Question
	q.Type = p.Type
	q.Options = mustJSON(options)
	q.CorrectAnswers = mustJSON(answers)
	q.Points = p.Points
	if q.Points == 0 {
		q.Points = DefaultQuestionPoints
	}
	q.Explanation = p.Explanation
	q.OrderIndex = order
	return nil
}

func questionChanged(a, b *model.Question) bool {
	return a.Question != b.Question || a.Type != b.Type || a.Points != b.Points ||
		a.Explanation != b.Explanation || a.OrderIndex != b.OrderIndex ||
		!jsonEqual(a.Options, b.Options) || !jsonEqual(a.CorrectAnswers, b.CorrectAnswers)
}

func syncAssignment(b *builder, lessonID string, cur *model.Assignment, p *AssignmentPayload, lessonTitle string) {
	if cur == nil {
		a := &model.Assignment{LessonID: lessonID}
		a.ID = b.newID()
		applyAssignment(a, p, lessonTitle)
		b.create(EntityAssignment, a.ID, a)
		return
	}
	a := *cur
	applyAssignment(&a, p, lessonTitle)
	if assignmentChanged(cur, &a) {
		b.update(EntityAssignment, a.ID, &a)
	}
}

func applyAssignment(a *model.Assignment, p *AssignmentPayload, lessonTitle string) {
	a.Title = p.Title
	if a.Title == "" {
		a.Title = lessonTitle
	}
	a.Description = p.Description
	a.DueDate = p.DueDate
	a.MaxScore = p.MaxScore
	if a.MaxScore == 0 {
		a.MaxScore = DefaultMaxScore
	}
	a.AllowFileUpload = p.AllowFileUpload
	a.AllowedFileTypes = nil
	if len(p.AllowedFileTypes) > 0 {
		a.AllowedFileTypes = mustJSON(p.AllowedFileTypes)
	}
	a.UnitTests = nil
	if len(p.UnitTests) > 0 && !bytes.Equal(bytes.TrimSpace(p.UnitTests), []byte("null")) {
		a.UnitTests = datatypes.JSON(p.UnitTests)
	}
}

func assignmentChanged(a, b *model.Assignment) bool {
	return a.Title != b.Title || a.Description != b.Description || !sameTime(a, b) ||
		a.MaxScore != b.MaxScore || a.AllowFileUpload != b.AllowFileUpload ||
		!jsonEqual(a.AllowedFileTypes, b.AllowedFileTypes) || !jsonEqual(a.UnitTests, b.UnitTests)
}

func sameTime(a, b *model.Assignment) bool {
	if a.DueDate == nil || b.DueDate == nil {
		return a.DueDate == nil && b.DueDate == nil
	}
	return a.DueDate.Equal(*b.DueDate)
}

// removeAssignment 顺序：提交记录 -> 作业
func removeAssignment(b *builder, a *model.Assignment) {
	b.deleteByParent(EntitySubmission, EntityAssignment, a.ID)
	b.delete(EntityAssignment, a.ID)
}

func mustJSON(v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return datatypes.JSON(data)
}

// jsonEqual 语义比较，数据库可能改写 JSON 的空白与键序
func jsonEqual(a, b datatypes.JSON) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == len(b)
	}
	var va, vb interface{}
	if json.Unmarshal(a, &va) != nil || json.Unmarshal(b, &vb) != nil {
		return bytes.Equal(a, b)
	}
	ca, _ := json.Marshal(va)
	cb, _ := json.Marshal(vb)
	return bytes.Equal(ca, cb)
}
