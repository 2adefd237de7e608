package service

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tutor_market_backend/internal/config"
	"tutor_market_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 最小的 mp4 ftyp box，足以被识别为 video/mp4
var mp4Header = append([]byte{0, 0, 0, 0x18}, []byte("ftypmp42\x00\x00\x00\x00mp42isom")...)

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["file"][0]
}

func newUploadService(t *testing.T) (*UploadService, string) {
	root := t.TempDir()
	cfg := &config.StorageConfig{Type: "local", LocalPath: root, MaxVideoMB: 1}
	svc := NewUploadService(NewStorageProvider(cfg), cfg)
	svc.tempRoot = t.TempDir()
	return svc, root
}

func TestUploadLessonVideo(t *testing.T) {
	svc, root := newUploadService(t)
	svc.probe = func(string) (*util.VideoInfo, error) {
		return &util.VideoInfo{Duration: 125, Format: "mov"}, nil
	}

	content := append(append([]byte{}, mp4Header...), bytes.Repeat([]byte{1}, 1000)...)
	res, err := svc.UploadLessonVideo(context.Background(), 5, fileHeader(t, "intro.MP4", content))
	require.NoError(t, err)

	assert.Equal(t, 3, res.Duration)
	assert.Equal(t, "mov", res.Format)
	assert.Equal(t, "video/mp4", res.MimeType)
	assert.EqualValues(t, len(content), res.Size)
	assert.True(t, strings.HasPrefix(res.URL, "/uploads/videos/5/"), res.URL)

	stored, err := os.ReadFile(filepath.Join(root, strings.TrimPrefix(res.URL, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, content, stored)
}

func TestUploadLessonVideoProbeFailureKeepsUpload(t *testing.T) {
	svc, _ := newUploadService(t)
	svc.probe = func(string) (*util.VideoInfo, error) { return nil, errors.New("ffprobe not found") }

	res, err := svc.UploadLessonVideo(context.Background(), 5, fileHeader(t, "intro.mp4", mp4Header))
	require.NoError(t, err)
	assert.Zero(t, res.Duration)
	assert.Equal(t, "mp4", res.Format)
}

func TestUploadLessonVideoRejects(t *testing.T) {
	svc, _ := newUploadService(t)

	_, err := svc.UploadLessonVideo(context.Background(), 5, fileHeader(t, "notes.txt", []byte("hello")))
	assert.True(t, util.IsValidation(err))

	_, err = svc.UploadLessonVideo(context.Background(), 5, fileHeader(t, "fake.mp4", []byte("<html><body>hi</body></html>")))
	assert.True(t, util.IsValidation(err), "html content is not a video")

	_, err = svc.UploadLessonVideo(context.Background(), 5, fileHeader(t, "big.mp4", bytes.Repeat(mp4Header, 50000)))
	assert.True(t, util.IsValidation(err), "over the size limit")
}
