package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

var _ gormlogger.Interface = (*GormLogger)(nil)

func newObservedGormLogger(level gormlogger.LogLevel, zapLevel zapcore.Level, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func payoutQuery() (string, int64) {
	return "SELECT * FROM seller_payouts WHERE status = 'PROCESSING'", 3
}

func TestNewGormLogger_Defaults(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Info, zapcore.InfoLevel)

	assert.Equal(t, gormlogger.Info, gl.level)
	assert.Equal(t, 200*time.Millisecond, gl.slowThreshold)
	assert.True(t, gl.skipNotFound)
}

func TestNewGormLogger_Options(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Info, zapcore.InfoLevel,
		WithSlowThreshold(500*time.Millisecond),
		WithIgnoreRecordNotFoundError(false),
	)

	assert.Equal(t, 500*time.Millisecond, gl.slowThreshold)
	assert.False(t, gl.skipNotFound)
}

func TestGormLogger_LogMode(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Info, zapcore.InfoLevel)

	clone := gl.LogMode(gormlogger.Warn)

	assert.Equal(t, gormlogger.Info, gl.level)
	got, ok := clone.(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, got.level)
}

func TestGormLogger_LevelGates(t *testing.T) {
	t.Run("info passes through", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Info, zapcore.InfoLevel)
		gl.Info(context.Background(), "running %d migrations", 4)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Contains(t, logs[0].Message, "running 4 migrations")
	})

	t.Run("silent suppresses info", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Silent, zapcore.InfoLevel)
		gl.Info(context.Background(), "running migrations")

		assert.Empty(t, recorded.All())
	})

	t.Run("warn", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Warn, zapcore.WarnLevel)
		gl.Warn(context.Background(), "connection pool at %d", 25)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
	})

	t.Run("error", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Error, zapcore.ErrorLevel)
		gl.Error(context.Background(), "transaction aborted")

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)
	})
}

func TestGormLogger_TraceError(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Error, zapcore.ErrorLevel)

	gl.Trace(context.Background(), time.Now(), payoutQuery, errors.New("constraint violation"))

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "sql error", logs[0].Message)
}

func TestGormLogger_TraceSkipsRecordNotFound(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Error, zapcore.ErrorLevel)

	gl.Trace(context.Background(), time.Now(), payoutQuery, gormlogger.ErrRecordNotFound)

	assert.Empty(t, recorded.All())
}

func TestGormLogger_TraceSlowQuery(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Warn, zapcore.WarnLevel,
		WithSlowThreshold(time.Nanosecond))

	gl.Trace(context.Background(), time.Now().Add(-time.Second), payoutQuery, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Message, "slow sql")
}

func TestGormLogger_TraceNormalQuery(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Info, zapcore.DebugLevel)

	gl.Trace(context.Background(), time.Now(), payoutQuery, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "sql query", logs[0].Message)
}

func TestGormLogger_TraceSilent(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Silent, zapcore.DebugLevel)

	gl.Trace(context.Background(), time.Now(), payoutQuery, nil)

	assert.Empty(t, recorded.All())
}

func TestGormLogger_TraceCarriesRequestID(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Info, zapcore.DebugLevel)
	ctx := context.WithValue(context.Background(), RequestIDKey, "req-41ac")

	gl.Trace(ctx, time.Now(), payoutQuery, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	found := false
	for _, f := range logs[0].Context {
		if f.Key == "request_id" {
			found = true
			assert.Equal(t, "req-41ac", f.String)
		}
	}
	assert.True(t, found, "request_id should be in log fields")
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"unknown", gormlogger.Warn},
		{"", gormlogger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapGormLogLevel(tt.level))
		})
	}
}
