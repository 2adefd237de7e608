package controller

import (
	"tutor_market_backend/internal/service"
	"tutor_market_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type PaymentController struct {
	PaymentService *service.PaymentService
}

func NewPaymentController(paymentService *service.PaymentService) *PaymentController {
	return &PaymentController{PaymentService: paymentService}
}

// swagger:model CreateIntentRequest
type CreateIntentRequest struct {
	CourseID string `json:"courseId" binding:"required"`
}

// CreateIntent godoc
// @Summary 创建支付意向
// @Tags 支付
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body CreateIntentRequest true "课程"
// @Success 201 {object} util.Response{data=model.Payment}
// @Failure 400 {object} util.Response "课程免费或未发布"
// @Failure 409 {object} util.Response "已报名"
// @Router /api/payments/intents [post]
func (c *PaymentController) CreateIntent(ctx *gin.Context) {
	var req CreateIntentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	payment, err := c.PaymentService.CreateIntent(claims.UserID, req.CourseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, payment)
}

// swagger:model ConfirmIntentRequest
type ConfirmIntentRequest struct {
	ClientSecret string `json:"clientSecret" binding:"required"`
}

// ConfirmIntent godoc
// @Summary 确认支付
// @Description 支付成功后自动报名；重复确认返回同一结果
// @Tags 支付
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "支付ID"
// @Param   body body ConfirmIntentRequest true "client secret"
// @Success 200 {object} util.Response{data=model.Payment}
// @Failure 409 {object} util.Response "支付已取消"
// @Router /api/payments/{id}/confirm [post]
func (c *PaymentController) ConfirmIntent(ctx *gin.Context) {
	var req ConfirmIntentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	payment, err := c.PaymentService.ConfirmIntent(ctx.Request.Context(), claims.UserID, ctx.Param("id"), req.ClientSecret)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, payment)
}

// CancelIntent godoc
// @Summary 取消支付
// @Tags 支付
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "支付ID"
// @Success 200 {object} util.Response{data=model.Payment}
// @Router /api/payments/{id}/cancel [post]
func (c *PaymentController) CancelIntent(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	payment, err := c.PaymentService.CancelIntent(claims.UserID, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, payment)
}
