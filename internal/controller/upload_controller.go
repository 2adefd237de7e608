package controller

import (
	"tutor_market_backend/internal/service"
	"tutor_market_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UploadController struct {
	UploadService *service.UploadService
}

func NewUploadController(uploadService *service.UploadService) *UploadController {
	return &UploadController{UploadService: uploadService}
}

// UploadVideo godoc
// @Summary 上传课时视频
// @Description 返回的 url 与 duration 可直接用作课时的 videoUrl 与 duration
// @Tags 教师课程
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   file formData file true "视频文件"
// @Success 201 {object} util.Response{data=service.VideoUpload}
// @Failure 400 {object} util.Response "文件类型或大小不符合要求"
// @Router /api/teacher/uploads/video [post]
func (c *UploadController) UploadVideo(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "请选择要上传的视频文件")
		return
	}

	claims := util.GetUserFromContext(ctx)
	upload, err := c.UploadService.UploadLessonVideo(ctx.Request.Context(), claims.UserID, file)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, upload)
}
