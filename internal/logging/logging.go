// Package logging 基于 log/slog 构建结构化日志。
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger 创建 slog.Logger。
//
// format 为 "text" 时输出文本，其余输出 JSON；level 无效或为空时默认 INFO。
func NewLogger(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource:   false,
		Level:       ParseLevel(level),
		ReplaceAttr: nil,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}

// ParseLevel 解析日志级别，忽略大小写。
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
