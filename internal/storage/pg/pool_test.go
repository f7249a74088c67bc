package pg

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	cfgpkg "github.com/taoyao-code/amp-gateway/internal/config"
)

func TestPgxZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := &pgxZapLogger{logger: zap.New(core)}

	tests := []struct {
		level tracelog.LogLevel
		want  zapcore.Level
		msg   string
	}{
		{tracelog.LogLevelTrace, zapcore.DebugLevel, "[SQL] Query"},
		{tracelog.LogLevelInfo, zapcore.InfoLevel, "Query"},
		{tracelog.LogLevelWarn, zapcore.WarnLevel, "Query"},
		{tracelog.LogLevelError, zapcore.ErrorLevel, "Query"},
	}
	for _, tt := range tests {
		l.Log(context.Background(), tt.level, "Query", map[string]any{"sql": "SELECT 1"})
		entry := logs.All()[logs.Len()-1]
		assert.Equal(t, tt.want, entry.Level)
		assert.Equal(t, tt.msg, entry.Message)
		assert.Equal(t, "SELECT 1", entry.ContextMap()["sql"])
	}
}

func TestNewPoolInvalidDSN(t *testing.T) {
	_, err := NewPool(context.Background(), cfgpkg.DatabaseConfig{DSN: "://bad"}, zap.NewNop())
	assert.Error(t, err)
}
