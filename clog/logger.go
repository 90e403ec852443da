package clog

import (
	"fmt"
	"strings"
)

// Logger 日志接口，提供结构化日志记录功能。
//
// 创建子 Logger：
//
//	child := logger.With(clog.String("component", "breaker"))
//	namespaced := logger.WithNamespace("breaker")
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With 创建一个带有预设字段的子 Logger，预设字段出现在所有日志中。
	With(fields ...Field) Logger

	// WithNamespace 创建一个扩展命名空间的子 Logger，
	// 新的部分会追加到现有命名空间之后，以 "." 连接。
	WithNamespace(parts ...string) Logger

	// SetLevel 动态调整日志级别，不需要重新创建 Logger。
	SetLevel(level Level) error
}

// Level 日志级别类型，数值越大严重程度越高。
type Level int

// 数值与 slog 的级别对齐，保证输出中的级别名称正确。
const (
	DebugLevel Level = -4 // 调试级别
	InfoLevel  Level = 0  // 信息级别
	WarnLevel  Level = 4  // 警告级别
	ErrorLevel Level = 8  // 错误级别
)

// String 返回 Level 的字符串表示。
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", l)
	}
}

// ParseLevel 将字符串解析为 Level（不区分大小写）。
// 无法解析时返回 InfoLevel 和错误。
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level: %s", s)
	}
}
