package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"tutor_market_backend/internal/config"
	"tutor_market_backend/internal/model"
	"tutor_market_backend/internal/util"
	"tutor_market_backend/pkg/logger"

	"go.uber.org/zap"
)

// VideoUpload 上传结果，duration 可直接填入课时
// swagger:model VideoUpload
type VideoUpload struct {
	URL      string `json:"url"`
	Duration int    `json:"duration"` // 分钟
	Size     int64  `json:"size"`
	Format   string `json:"format"`
	MimeType string `json:"mimeType"`
}

type UploadService struct {
	Storage  StorageProvider
	Cfg      *config.StorageConfig
	probe    func(path string) (*util.VideoInfo, error)
	tempRoot string
}

func NewUploadService(storage StorageProvider, cfg *config.StorageConfig) *UploadService {
	return &UploadService{Storage: storage, Cfg: cfg, probe: util.GetVideoInfo, tempRoot: os.TempDir()}
}

// UploadLessonVideo 校验扩展名与 MIME，ffprobe 读取时长后写入对象存储。
// ffprobe 不可用时时长为 0，不影响上传。
func (s *UploadService) UploadLessonVideo(ctx context.Context, teacherID uint, header *multipart.FileHeader) (*VideoUpload, error) {
	if !util.HasAllowedExtension(header.Filename, util.AllowedVideoExtensions) {
		return nil, util.Invalid("file", "unsupported video extension %q", filepath.Ext(header.Filename))
	}
	if limit := s.Cfg.MaxVideoMB * 1024 * 1024; limit > 0 && header.Size > limit {
		return nil, util.Invalid("file", "video exceeds %d MB", s.Cfg.MaxVideoMB)
	}

	src, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	mimeType, err := util.ValidateMimeType(src, []string{"video/", "application/octet-stream"})
	if err != nil {
		return nil, util.Invalid("file", "%v", err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	tmp, err := os.CreateTemp(s.tempRoot, "lesson-video-*"+ext)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	size, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}

	result := &VideoUpload{Size: size, Format: strings.TrimPrefix(ext, "."), MimeType: mimeType}
	if info, err := s.probe(tmp.Name()); err != nil {
		logger.Log.Warn("Video probe failed", zap.String("file", header.Filename), zap.Error(err))
	} else {
		result.Duration = info.DurationMinutes()
		result.Format = info.Format
	}

	key := fmt.Sprintf("videos/%d/%s%s", teacherID, model.GenerateUUID(), ext)
	if !util.IsVideo(mimeType) {
		mimeType = "video/" + result.Format
	}
	url, err := s.Storage.UploadFile(ctx, key, tmp.Name(), mimeType)
	if err != nil {
		return nil, fmt.Errorf("store video: %w", err)
	}
	result.URL = url
	return result, nil
}
