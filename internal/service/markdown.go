package service

import (
	"bytes"

	"tutor_market_backend/pkg/logger"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"
)

// 课时正文为 markdown；不开启 WithUnsafe，教师输入的原始 HTML 会被过滤
var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
		),
	),
)

func renderMarkdown(src string) string {
	if src == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		logger.Log.Warn("Markdown render failed", zap.Error(err))
		return ""
	}
	return buf.String()
}
