package coursetree

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Entity 名称同时作为外键列前缀（lesson -> lesson_id）
type Entity string

const (
	EntityCourse         Entity = "course"
	EntityTopic          Entity = "topic"
	EntityLesson         Entity = "lesson"
	EntityQuiz           Entity = "quiz"
	EntityQuestion       Entity = "question"
	EntityAssignment     Entity = "assignment"
	EntityLessonProgress Entity = "lesson_progress"
	EntityQuizAttempt    Entity = "quiz_attempt"
	EntitySubmission     Entity = "assignment_submission"
	EntityCalendarEvent  Entity = "calendar_event"
	EntityEnrollment     Entity = "enrollment"
	EntityReview         Entity = "review"
	EntityCertificate    Entity = "certificate"
	EntityBundleCourse   Entity = "bundle_course"
	EntitySavedCourse    Entity = "saved_course"
	EntityLikedCourse    Entity = "liked_course"
)

// Op 一次写操作。
// Create/Update 携带 Record（*model.Topic 等，不含关联字段）。
// Delete 按 ID 删除单行；ID 为空时按 Parent 外键批量删除依赖行。
type Op struct {
	Action   Action
	Entity   Entity
	ID       string
	Parent   Entity
	ParentID string
	Record   interface{}
}

// ParentColumn 批量删除使用的外键列
func (o Op) ParentColumn() string {
	return string(o.Parent) + "_id"
}

// Plan 先执行 Deletes（依赖优先），再执行 Writes（父节点优先）
type Plan struct {
	Deletes []Op
	Writes  []Op
}

func (p *Plan) Empty() bool {
	return len(p.Deletes) == 0 && len(p.Writes) == 0
}

// Ops 按执行顺序返回全部操作
func (p *Plan) Ops() []Op {
	ops := make([]Op, 0, len(p.Deletes)+len(p.Writes))
	ops = append(ops, p.Deletes...)
	return append(ops, p.Writes...)
}

// Count 统计某实体某动作的操作数
func (p *Plan) Count(entity Entity, action Action) int {
	n := 0
	for _, op := range p.Ops() {
		if op.Entity == entity && op.Action == action {
			n++
		}
	}
	return n
}
