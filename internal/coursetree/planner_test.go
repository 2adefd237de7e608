package coursetree

import (
	"fmt"
	"testing"

	"tutor_market_backend/internal/model"
	"tutor_market_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func seqPlanner() *Planner {
	n := 0
	return &Planner{NewID: func() string {
		n++
		return fmt.Sprintf("new-%d", n)
	}}
}

func topic(id string, order int, lessons ...model.Lesson) model.Topic {
	t := model.Topic{CourseID: "c1", Title: "T " + id, OrderIndex: order, Lessons: lessons}
	t.ID = id
	return t
}

func lesson(id string, order int, typ model.LessonType) model.Lesson {
	l := model.Lesson{Title: "L " + id, OrderIndex: order, Type: typ}
	l.ID = id
	return l
}

func quizWithQuestions(id string, n int) *model.Quiz {
	q := &model.Quiz{Title: "Q " + id, PassingScore: DefaultPassingScore}
	q.ID = id
	for i := 0; i < n; i++ {
		qs := model.Question{
			QuizID:         id,
			Question:       fmt.Sprintf("question %d", i),
			Type:           model.QuestionSingle,
			Options:        datatypes.JSON(`["a", "b"]`),
			CorrectAnswers: datatypes.JSON(`[0]`),
			Points:         1,
			OrderIndex:     i,
		}
		qs.ID = fmt.Sprintf("%s-q%d", id, i)
		q.Questions = append(q.Questions, qs)
	}
	return q
}

func deletedIDs(p *Plan, e Entity) []string {
	var ids []string
	for _, op := range p.Deletes {
		if op.Entity == e && op.ID != "" {
			ids = append(ids, op.ID)
		}
	}
	return ids
}

func indexOf(ops []Op, match func(Op) bool) int {
	for i, op := range ops {
		if match(op) {
			return i
		}
	}
	return -1
}

func TestPlanSyncPureCreation(t *testing.T) {
	plan, err := seqPlanner().PlanSync("c1", nil, []TopicPayload{{
		Title:   "T1",
		Lessons: []LessonPayload{{Title: "L1", Type: model.LessonTypeLesson}},
	}})
	require.NoError(t, err)

	assert.Empty(t, plan.Deletes)
	require.Len(t, plan.Writes, 2)

	tp := plan.Writes[0].Record.(*model.Topic)
	assert.Equal(t, ActionCreate, plan.Writes[0].Action)
	assert.Equal(t, "new-1", tp.ID)
	assert.Equal(t, "c1", tp.CourseID)
	assert.Equal(t, 0, tp.OrderIndex)

	l := plan.Writes[1].Record.(*model.Lesson)
	assert.Equal(t, "new-1", l.TopicID)
	assert.Equal(t, 0, l.OrderIndex)
	assert.Equal(t, model.LessonTypeLesson, l.Type)
	assert.Nil(t, l.Quiz)
	assert.Nil(t, l.Assignment)
}

func TestPlanSyncEmptyDesiredDeletesEverything(t *testing.T) {
	l := lesson("l1", 0, model.LessonTypeQuiz)
	l.Quiz = quizWithQuestions("qz1", 2)
	existing := []model.Topic{topic("t1", 0, l), topic("t2", 1)}

	plan, err := seqPlanner().PlanSync("c1", existing, []TopicPayload{})
	require.NoError(t, err)

	assert.Empty(t, plan.Writes)
	assert.ElementsMatch(t, []string{"t1", "t2"}, deletedIDs(plan, EntityTopic))
	assert.Equal(t, []string{"l1"}, deletedIDs(plan, EntityLesson))
	assert.Equal(t, []string{"qz1"}, deletedIDs(plan, EntityQuiz))
}

func TestPlanSyncReorder(t *testing.T) {
	existing := []model.Topic{
		topic("a", 0, lesson("la1", 0, model.LessonTypeLesson), lesson("la2", 1, model.LessonTypeLesson)),
		topic("b", 1),
	}
	desired := []TopicPayload{
		{ID: "b", Title: "T b"},
		{ID: "a", Title: "T a", Lessons: []LessonPayload{
			{ID: "la2", Title: "L la2", Type: model.LessonTypeLesson},
			{ID: "la1", Title: "L la1", Type: model.LessonTypeLesson},
		}},
	}

	plan, err := seqPlanner().PlanSync("c1", existing, desired)
	require.NoError(t, err)
	assert.Empty(t, plan.Deletes)

	orders := map[string]int{}
	for _, op := range plan.Writes {
		assert.Equal(t, ActionUpdate, op.Action)
		switch r := op.Record.(type) {
		case *model.Topic:
			orders[r.ID] = r.OrderIndex
		case *model.Lesson:
			orders[r.ID] = r.OrderIndex
		}
	}
	assert.Equal(t, map[string]int{"b": 0, "a": 1, "la2": 0, "la1": 1}, orders)
}

func TestPlanSyncDeletionViaOmissionIsLeafFirst(t *testing.T) {
	quizLesson := lesson("lq", 0, model.LessonTypeQuiz)
	quizLesson.Quiz = quizWithQuestions("qz", 3)
	asgLesson := lesson("la", 1, model.LessonTypeAssignment)
	asgLesson.Assignment = &model.Assignment{Title: "A"}
	asgLesson.Assignment.ID = "asg"

	existing := []model.Topic{topic("A", 0), topic("B", 1, quizLesson, asgLesson)}
	plan, err := seqPlanner().PlanSync("c1", existing, []TopicPayload{{ID: "A", Title: "T A"}})
	require.NoError(t, err)

	assert.Empty(t, plan.Writes, "A is unchanged")

	d := plan.Deletes
	attempts := indexOf(d, func(o Op) bool { return o.Entity == EntityQuizAttempt && o.ParentID == "qz" })
	questions := indexOf(d, func(o Op) bool { return o.Entity == EntityQuestion && o.ParentID == "qz" })
	quiz := indexOf(d, func(o Op) bool { return o.Entity == EntityQuiz && o.ID == "qz" })
	progress := indexOf(d, func(o Op) bool { return o.Entity == EntityLessonProgress && o.ParentID == "lq" })
	events := indexOf(d, func(o Op) bool { return o.Entity == EntityCalendarEvent && o.ParentID == "lq" })
	lq := indexOf(d, func(o Op) bool { return o.Entity == EntityLesson && o.ID == "lq" })
	subs := indexOf(d, func(o Op) bool { return o.Entity == EntitySubmission && o.ParentID == "asg" })
	asg := indexOf(d, func(o Op) bool { return o.Entity == EntityAssignment && o.ID == "asg" })
	la := indexOf(d, func(o Op) bool { return o.Entity == EntityLesson && o.ID == "la" })
	b := indexOf(d, func(o Op) bool { return o.Entity == EntityTopic && o.ID == "B" })

	for _, i := range []int{attempts, questions, quiz, progress, events, lq, subs, asg, la, b} {
		require.GreaterOrEqual(t, i, 0)
	}
	assert.Less(t, attempts, questions)
	assert.Less(t, questions, quiz)
	assert.Less(t, quiz, lq)
	assert.Less(t, progress, lq)
	assert.Less(t, events, lq)
	assert.Less(t, subs, asg)
	assert.Less(t, asg, la)
	assert.Less(t, lq, b)
	assert.Less(t, la, b)

	assert.Equal(t, "lesson_id", d[progress].ParentColumn())
}

func TestPlanSyncTypeTransitionQuizToAssignment(t *testing.T) {
	l := lesson("l1", 0, model.LessonTypeQuiz)
	l.Quiz = quizWithQuestions("qz", 2)
	existing := []model.Topic{topic("t1", 0, l)}

	desired := []TopicPayload{{ID: "t1", Title: "T t1", Lessons: []LessonPayload{{
		ID: "l1", Title: "L l1", Type: model.LessonTypeAssignment,
		Assignment: &AssignmentPayload{Description: "write code", AllowedFileTypes: []string{".go"}},
	}}}}

	plan, err := seqPlanner().PlanSync("c1", existing, desired)
	require.NoError(t, err)

	assert.Equal(t, []string{"qz"}, deletedIDs(plan, EntityQuiz))
	assert.Equal(t, 1, plan.Count(EntityQuestion, ActionDelete))
	assert.Equal(t, 1, plan.Count(EntityQuizAttempt, ActionDelete))
	assert.Equal(t, 1, plan.Count(EntityLesson, ActionUpdate))

	i := indexOf(plan.Writes, func(o Op) bool { return o.Entity == EntityAssignment })
	require.GreaterOrEqual(t, i, 0)
	a := plan.Writes[i].Record.(*model.Assignment)
	assert.Equal(t, ActionCreate, plan.Writes[i].Action)
	assert.Equal(t, "l1", a.LessonID)
	assert.Equal(t, "L l1", a.Title, "title defaults to lesson title")
	assert.Equal(t, DefaultMaxScore, a.MaxScore)
	assert.JSONEq(t, `[".go"]`, string(a.AllowedFileTypes))
}

func TestPlanSyncQuizWithoutPayloadIsKept(t *testing.T) {
	l := lesson("l1", 0, model.LessonTypeQuiz)
	l.Quiz = quizWithQuestions("qz", 2)
	existing := []model.Topic{topic("t1", 0, l)}

	plan, err := seqPlanner().PlanSync("c1", existing, []TopicPayload{{ID: "t1", Title: "T t1", Lessons: []LessonPayload{
		{ID: "l1", Title: "renamed", Type: model.LessonTypeQuiz},
	}}})
	require.NoError(t, err)
	assert.Empty(t, plan.Deletes)
	require.Len(t, plan.Writes, 1)
	assert.Equal(t, "renamed", plan.Writes[0].Record.(*model.Lesson).Title)
}

func TestPlanSyncQuizPayloadUpdatesExistingQuiz(t *testing.T) {
	l := lesson("l1", 0, model.LessonTypeQuiz)
	l.Quiz = quizWithQuestions("qz", 2)
	existing := []model.Topic{topic("t1", 0, l)}

	desired := []TopicPayload{{ID: "t1", Title: "T t1", Lessons: []LessonPayload{{
		ID: "l1", Title: "L l1", Type: model.LessonTypeQuiz,
		Quiz: &QuizPayload{Title: "Q qz", Questions: []QuestionPayload{
			{ID: "qz-q1", Question: "question 1", Type: model.QuestionSingle, Options: []string{"a", "b"}, CorrectAnswers: []int{0}},
			{Question: "brand new", Type: model.QuestionTrueFalse, CorrectAnswers: []int{1}},
		}},
	}}}}

	plan, err := seqPlanner().PlanSync("c1", existing, desired)
	require.NoError(t, err)

	assert.Equal(t, []string{"qz-q0"}, deletedIDs(plan, EntityQuestion))
	assert.Zero(t, plan.Count(EntityQuiz, ActionCreate))
	assert.Zero(t, plan.Count(EntityQuiz, ActionDelete))

	var moved, created *model.Question
	for _, op := range plan.Writes {
		q, ok := op.Record.(*model.Question)
		if !ok {
			continue
		}
		if op.Action == ActionUpdate {
			moved = q
		} else {
			created = q
		}
	}
	require.NotNil(t, moved)
	require.NotNil(t, created)
	assert.Equal(t, "qz-q1", moved.ID)
	assert.Equal(t, 0, moved.OrderIndex)
	assert.Equal(t, "qz", created.QuizID)
	assert.Equal(t, 1, created.OrderIndex)
	assert.JSONEq(t, `["True","False"]`, string(created.Options))
}

func TestPlanSyncUnknownIDIsCreated(t *testing.T) {
	plan, err := seqPlanner().PlanSync("c1", []model.Topic{topic("t1", 0)}, []TopicPayload{
		{ID: "t1", Title: "T t1"},
		{ID: "stale", Title: "from another course"},
	})
	require.NoError(t, err)
	require.Len(t, plan.Writes, 1)
	op := plan.Writes[0]
	assert.Equal(t, ActionCreate, op.Action)
	assert.Equal(t, "new-1", op.ID)
	assert.Equal(t, 1, op.Record.(*model.Topic).OrderIndex)
}

func TestPlanSyncDuplicateID(t *testing.T) {
	_, err := seqPlanner().PlanSync("c1", []model.Topic{topic("t1", 0)}, []TopicPayload{
		{ID: "t1", Title: "a"},
		{ID: "t1", Title: "b"},
	})
	require.Error(t, err)
	assert.True(t, util.IsValidation(err))
	assert.Contains(t, err.Error(), "topics[1].id")
}

func TestPlanSyncQuizOnWrongLessonType(t *testing.T) {
	_, err := seqPlanner().PlanSync("c1", nil, []TopicPayload{{Title: "T", Lessons: []LessonPayload{
		{Title: "L", Type: model.LessonTypeLesson, Quiz: &QuizPayload{}},
	}}})
	require.Error(t, err)
	assert.True(t, util.IsValidation(err))
}

func TestPlanSyncIdempotent(t *testing.T) {
	desired := []TopicPayload{{Title: "T", Lessons: []LessonPayload{{
		Title: "L", Type: model.LessonTypeQuiz,
		Quiz: &QuizPayload{Title: "Q", Questions: []QuestionPayload{
			{Question: "pick", Type: model.QuestionMultiple, Options: []string{"a", "b", "c"}, CorrectAnswers: []int{0, 2}},
		}},
	}}}}
	first, err := seqPlanner().PlanSync("c1", nil, desired)
	require.NoError(t, err)

	// 将第一次的结果还原为已持久化的树，并把 id 回填到请求中
	tp := *first.Writes[0].Record.(*model.Topic)
	l := *first.Writes[1].Record.(*model.Lesson)
	qz := *first.Writes[2].Record.(*model.Quiz)
	qs := *first.Writes[3].Record.(*model.Question)
	qz.Questions = []model.Question{qs}
	l.Quiz = &qz
	tp.Lessons = []model.Lesson{l}

	desired[0].ID = tp.ID
	desired[0].Lessons[0].ID = l.ID
	desired[0].Lessons[0].Quiz.ID = qz.ID
	desired[0].Lessons[0].Quiz.Questions[0].ID = qs.ID

	second, err := seqPlanner().PlanSync("c1", []model.Topic{tp}, desired)
	require.NoError(t, err)
	assert.True(t, second.Empty(), "%+v", second.Ops())
}

func TestPlanCourseDelete(t *testing.T) {
	const n, m, q = 2, 3, 4
	course := &model.Course{}
	course.ID = "c1"
	for i := 0; i < n; i++ {
		var lessons []model.Lesson
		for j := 0; j < m; j++ {
			l := lesson(fmt.Sprintf("l%d-%d", i, j), j, model.LessonTypeQuiz)
			l.Quiz = quizWithQuestions(fmt.Sprintf("qz%d-%d", i, j), q)
			lessons = append(lessons, l)
		}
		course.Topics = append(course.Topics, topic(fmt.Sprintf("t%d", i), i, lessons...))
	}

	plan := seqPlanner().PlanCourseDelete(course)
	assert.Empty(t, plan.Writes)
	assert.Equal(t, n, plan.Count(EntityTopic, ActionDelete))
	assert.Equal(t, n*m, plan.Count(EntityLesson, ActionDelete))
	assert.Equal(t, n*m, plan.Count(EntityQuiz, ActionDelete))
	// 题目按测验批量删除
	assert.Equal(t, n*m, plan.Count(EntityQuestion, ActionDelete))

	last := plan.Deletes[len(plan.Deletes)-1]
	assert.Equal(t, EntityCourse, last.Entity)
	assert.Equal(t, "c1", last.ID)

	first := plan.Deletes[0]
	assert.Equal(t, EntityEnrollment, first.Entity)
	assert.Equal(t, "course_id", first.ParentColumn())
}
