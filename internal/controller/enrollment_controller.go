package controller

import (
	"tutor_market_backend/internal/service"
	"tutor_market_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type EnrollmentController struct {
	EnrollmentService *service.EnrollmentService
}

func NewEnrollmentController(enrollmentService *service.EnrollmentService) *EnrollmentController {
	return &EnrollmentController{EnrollmentService: enrollmentService}
}

// Enroll godoc
// @Summary 报名免费课程
// @Tags 学习
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Success 201 {object} util.Response{data=model.Enrollment}
// @Failure 400 {object} util.Response "课程未发布或需要付费"
// @Failure 409 {object} util.Response "已报名"
// @Router /api/courses/{id}/enroll [post]
func (c *EnrollmentController) Enroll(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	enrollment, err := c.EnrollmentService.Enroll(claims.UserID, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, enrollment)
}

// ToggleSaved godoc
// @Summary 收藏/取消收藏课程
// @Tags 学习
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Success 200 {object} util.Response{data=object} "saved 当前状态"
// @Router /api/courses/{id}/save [post]
func (c *EnrollmentController) ToggleSaved(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	saved, err := c.EnrollmentService.ToggleSaved(claims.UserID, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"saved": saved})
}

// ToggleLiked godoc
// @Summary 点赞/取消点赞课程
// @Tags 学习
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Success 200 {object} util.Response{data=object} "liked 当前状态"
// @Router /api/courses/{id}/like [post]
func (c *EnrollmentController) ToggleLiked(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	liked, err := c.EnrollmentService.ToggleLiked(claims.UserID, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"liked": liked})
}

// CompleteLesson godoc
// @Summary 标记课时完成
// @Tags 学习
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课时ID"
// @Success 200 {object} util.Response{data=model.LessonProgress}
// @Failure 400 {object} util.Response "未报名该课程"
// @Router /api/lessons/{id}/complete [post]
func (c *EnrollmentController) CompleteLesson(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	progress, err := c.EnrollmentService.CompleteLesson(claims.UserID, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// QuizAttemptRequest 按题目顺序提交所选选项下标
// swagger:model QuizAttemptRequest
type QuizAttemptRequest struct {
	Answers [][]int `json:"answers" binding:"required"`
}

// SubmitQuiz godoc
// @Summary 提交测验
// @Tags 学习
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "测验ID"
// @Param   body body QuizAttemptRequest true "答案"
// @Success 201 {object} util.Response{data=model.QuizAttempt}
// @Router /api/quizzes/{id}/attempts [post]
func (c *EnrollmentController) SubmitQuiz(ctx *gin.Context) {
	var req QuizAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	attempt, err := c.EnrollmentService.SubmitQuiz(claims.UserID, ctx.Param("id"), req.Answers)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, attempt)
}

// SubmissionRequest 作业提交，content 与 fileUrl 至少填写一个
// swagger:model SubmissionRequest
type SubmissionRequest struct {
	Content string `json:"content"`
	FileURL string `json:"fileUrl" binding:"omitempty,max=512"`
}

// SubmitAssignment godoc
// @Summary 提交作业
// @Tags 学习
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "作业ID"
// @Param   body body SubmissionRequest true "作业内容"
// @Success 201 {object} util.Response{data=model.AssignmentSubmission}
// @Router /api/assignments/{id}/submissions [post]
func (c *EnrollmentController) SubmitAssignment(ctx *gin.Context) {
	var req SubmissionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	sub, err := c.EnrollmentService.SubmitAssignment(claims.UserID, ctx.Param("id"), req.Content, req.FileURL)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, sub)
}
