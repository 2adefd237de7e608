package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tutor_market_backend/internal/model"
	"tutor_market_backend/internal/repository"
	"tutor_market_backend/internal/util"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type EnrollmentService struct {
	Repo     *repository.EnrollmentRepository
	Courses  *repository.CourseRepository
	Notifier Notifier
}

func NewEnrollmentService(repo *repository.EnrollmentRepository, courses *repository.CourseRepository, notifier Notifier) *EnrollmentService {
	return &EnrollmentService{Repo: repo, Courses: courses, Notifier: notifier}
}

func notFound(err error, entity, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.NewNotFoundError(entity, id)
	}
	return err
}

// Enroll 免费课程直接报名，付费课程需走支付流程
func (s *EnrollmentService) Enroll(userID uint, courseID string) (*model.Enrollment, error) {
	course, err := s.Courses.FindByID(courseID)
	if err != nil {
		return nil, notFound(err, "course", courseID)
	}
	if course.Status != model.CoursePublished {
		return nil, util.ErrCourseNotPublished
	}
	if !course.IsFree() {
		return nil, util.ErrCourseNotFree
	}
	enrolled, err := s.Repo.IsEnrolled(userID, courseID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return nil, util.ErrAlreadyEnrolled
	}

	e := &model.Enrollment{UserID: userID, CourseID: courseID}
	if err := s.Repo.Create(e); err != nil {
		return nil, err
	}
	s.Notifier.Notify(userID, "报名成功", fmt.Sprintf("你已成功报名课程《%s》", course.Title), model.NotificationCourse, "/courses/"+courseID)
	return e, nil
}

func (s *EnrollmentService) requireEnrollment(userID uint, lessonID string) error {
	courseID, err := s.Courses.CourseIDOfLesson(lessonID)
	if err != nil {
		return notFound(err, "lesson", lessonID)
	}
	enrolled, err := s.Repo.IsEnrolled(userID, courseID)
	if err != nil {
		return err
	}
	if !enrolled {
		return util.ErrNotEnrolled
	}
	return nil
}

func (s *EnrollmentService) CompleteLesson(userID uint, lessonID string) (*model.LessonProgress, error) {
	if err := s.requireEnrollment(userID, lessonID); err != nil {
		return nil, err
	}
	return s.Repo.CompleteLesson(userID, lessonID, time.Now())
}

// SubmitQuiz answers[i] 为第 i 题所选选项下标；排序题为选项的排列
func (s *EnrollmentService) SubmitQuiz(userID uint, quizID string, answers [][]int) (*model.QuizAttempt, error) {
	quiz, err := s.Courses.FindQuiz(quizID)
	if err != nil {
		return nil, notFound(err, "quiz", quizID)
	}
	if err := s.requireEnrollment(userID, quiz.LessonID); err != nil {
		return nil, err
	}

	score, err := GradeQuiz(quiz.Questions, answers)
	if err != nil {
		return nil, err
	}
	raw, _ := json.Marshal(answers)
	attempt := &model.QuizAttempt{
		UserID:  userID,
		QuizID:  quizID,
		Score:   score,
		Passed:  score >= quiz.PassingScore,
		Answers: datatypes.JSON(raw),
	}
	if err := s.Repo.CreateQuizAttempt(attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// GradeQuiz 按分值加权得出 0-100 分。单选/多选/判断题与顺序无关，排序题必须完全一致。
func GradeQuiz(questions []model.Question, answers [][]int) (int, error) {
	if len(answers) > len(questions) {
		return 0, util.Invalid("answers", "got %d answers for %d questions", len(answers), len(questions))
	}
	total, earned := 0, 0
	for i, q := range questions {
		total += q.Points
		if i >= len(answers) {
			continue
		}
		var correct []int
		if len(q.CorrectAnswers) > 0 {
			if err := json.Unmarshal(q.CorrectAnswers, &correct); err != nil {
				return 0, fmt.Errorf("question %s: %w", q.ID, err)
			}
		}
		if answerMatches(q.Type, correct, answers[i]) {
			earned += q.Points
		}
	}
	if total == 0 {
		return 0, nil
	}
	return earned * 100 / total, nil
}

func answerMatches(questionType string, correct, given []int) bool {
	if len(correct) != len(given) {
		return false
	}
	if questionType == model.QuestionOrder {
		for i := range correct {
			if correct[i] != given[i] {
				return false
			}
		}
		return true
	}
	want := make(map[int]bool, len(correct))
	for _, c := range correct {
		want[c] = true
	}
	for _, g := range given {
		if !want[g] {
			return false
		}
		delete(want, g)
	}
	return len(want) == 0
}

// SubmitAssignment 文件需在作业允许的类型内
func (s *EnrollmentService) SubmitAssignment(userID uint, assignmentID, content, fileURL string) (*model.AssignmentSubmission, error) {
	assignment, err := s.Courses.FindAssignment(assignmentID)
	if err != nil {
		return nil, notFound(err, "assignment", assignmentID)
	}
	if err := s.requireEnrollment(userID, assignment.LessonID); err != nil {
		return nil, err
	}

	if content == "" && fileURL == "" {
		return nil, util.Invalid("content", "content or fileUrl is required")
	}
	if fileURL != "" {
		if !assignment.AllowFileUpload {
			return nil, util.Invalid("fileUrl", "this assignment does not accept files")
		}
		var allowed []string
		if len(assignment.AllowedFileTypes) > 0 {
			if err := json.Unmarshal(assignment.AllowedFileTypes, &allowed); err != nil {
				return nil, err
			}
		}
		if !util.HasAllowedExtension(fileURL, allowed) {
			return nil, util.Invalid("fileUrl", "file type not allowed, expected one of %v", allowed)
		}
	}
	if assignment.DueDate != nil && time.Now().After(*assignment.DueDate) {
		return nil, util.Invalid("dueDate", "assignment was due at %s", assignment.DueDate.Format(time.RFC3339))
	}

	sub := &model.AssignmentSubmission{
		UserID:       userID,
		AssignmentID: assignmentID,
		Content:      content,
		FileURL:      fileURL,
		Status:       model.SubmissionSubmitted,
	}
	if err := s.Repo.CreateSubmission(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *EnrollmentService) ToggleSaved(userID uint, courseID string) (bool, error) {
	if _, err := s.Courses.FindByID(courseID); err != nil {
		return false, notFound(err, "course", courseID)
	}
	return s.Repo.ToggleSaved(userID, courseID)
}

func (s *EnrollmentService) ToggleLiked(userID uint, courseID string) (bool, error) {
	if _, err := s.Courses.FindByID(courseID); err != nil {
		return false, notFound(err, "course", courseID)
	}
	return s.Repo.ToggleLiked(userID, courseID)
}
