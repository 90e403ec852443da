package clog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// NamespaceKey 是日志中命名空间的字段名。
const NamespaceKey = "namespace"

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// loggerImpl 是 Logger 接口的具体实现。
type loggerImpl struct {
	handler   slog.Handler
	levelVar  *slog.LevelVar
	namespace string
}

// newLogger 创建 Logger 实例（内部使用）。
func newLogger(cfg *Config, opts *options) (Logger, error) {
	w, err := resolveWriter(cfg)
	if err != nil {
		return nil, err
	}

	levelVar := new(slog.LevelVar)
	lvl, _ := ParseLevel(cfg.Level)
	levelVar.Set(slog.Level(lvl))

	hopts := &slog.HandlerOptions{
		Level: levelVar,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
				a.Value = slog.StringValue(a.Value.Time().Format(timeFormat))
			}
			return a
		},
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(w, hopts)
	} else {
		handler = slog.NewTextHandler(w, hopts)
	}

	return &loggerImpl{
		handler:   handler,
		levelVar:  levelVar,
		namespace: strings.Join(opts.namespaceParts, "."),
	}, nil
}

// resolveWriter 根据配置创建输出 writer。
func resolveWriter(cfg *Config) (io.Writer, error) {
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		return os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	}
}

func (l *loggerImpl) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields...) }
func (l *loggerImpl) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields...) }
func (l *loggerImpl) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields...) }
func (l *loggerImpl) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields...) }

func (l *loggerImpl) log(level Level, msg string, fields ...Field) {
	slogLevel := slog.Level(level)
	if !l.handler.Enabled(context.Background(), slogLevel) {
		return
	}

	r := slog.NewRecord(time.Now(), slogLevel, msg, 0)
	if l.namespace != "" {
		r.AddAttrs(slog.String(NamespaceKey, l.namespace))
	}
	r.AddAttrs(fields...)
	_ = l.handler.Handle(context.Background(), r)
}

// With 创建带预设字段的子 Logger。
func (l *loggerImpl) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	return &loggerImpl{
		handler:   l.handler.WithAttrs(fields),
		levelVar:  l.levelVar,
		namespace: l.namespace,
	}
}

// WithNamespace 创建扩展命名空间的子 Logger。
func (l *loggerImpl) WithNamespace(parts ...string) Logger {
	joined := strings.Join(parts, ".")
	if joined == "" {
		return l
	}
	ns := joined
	if l.namespace != "" {
		ns = l.namespace + "." + joined
	}
	return &loggerImpl{
		handler:   l.handler,
		levelVar:  l.levelVar,
		namespace: ns,
	}
}

// SetLevel 动态调整日志级别。
func (l *loggerImpl) SetLevel(level Level) error {
	l.levelVar.Set(slog.Level(level))
	return nil
}
