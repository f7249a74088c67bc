package logging

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Sink 宿主侧日志接口：Log(level, message)
// level 取值 debug/info/warn/error
type Sink interface {
	Log(level, message string)
}

// ZapSink 将 (level, message) 形式的日志写入 zap
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink 创建 zap 适配器，logger 为 nil 时丢弃日志
func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger.WithOptions(zap.AddCallerSkip(1))}
}

// Log 实现 Sink
func (s *ZapSink) Log(level, message string) {
	if ce := s.logger.Check(ParseLevel(level), message); ce != nil {
		ce.Write()
	}
}

// SinkCore 反向适配：把 zap 日志转发给宿主 Sink（嵌入宿主插件时使用）
type SinkCore struct {
	zapcore.LevelEnabler
	sink   Sink
	fields []zapcore.Field
}

// NewSinkLogger 基于宿主 Sink 构造 zap.Logger
func NewSinkLogger(sink Sink, level zapcore.Level) *zap.Logger {
	return zap.New(&SinkCore{LevelEnabler: level, sink: sink})
}

func (c *SinkCore) With(fields []zapcore.Field) zapcore.Core {
	dup := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	dup = append(dup, c.fields...)
	dup = append(dup, fields...)
	return &SinkCore{LevelEnabler: c.LevelEnabler, sink: c.sink, fields: dup}
}

func (c *SinkCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(e.Level) {
		return ce.AddCore(e, c)
	}
	return ce
}

func (c *SinkCore) Write(e zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msg := e.Message
	for _, k := range keys {
		msg += fmt.Sprintf(" %s=%v", k, enc.Fields[k])
	}
	c.sink.Log(levelName(e.Level), msg)
	return nil
}

func (c *SinkCore) Sync() error { return nil }

func levelName(l zapcore.Level) string {
	switch {
	case l <= zapcore.DebugLevel:
		return "debug"
	case l == zapcore.InfoLevel:
		return "info"
	case l == zapcore.WarnLevel:
		return "warn"
	default:
		return "error"
	}
}
