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
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	_ gormlogger.Interface = (*GormLogger)(nil)
	_ gorm.ParamsFilter    = (*GormLogger)(nil)
)

func sqlFn(sql string) func() (string, int64) {
	return func() (string, int64) { return sql, 1 }
}

func TestGormLogger_Trace(t *testing.T) {
	tests := []struct {
		name    string
		level   gormlogger.LogLevel
		opts    []GormLoggerOption
		begin   time.Time
		err     error
		wantMsg string
	}{
		{"error", gormlogger.Error, nil, time.Now(), errors.New("boom"), "SQL Error"},
		{"record not found ignored", gormlogger.Error, nil, time.Now(), gormlogger.ErrRecordNotFound, ""},
		{"record not found logged", gormlogger.Error, []GormLoggerOption{WithIgnoreRecordNotFoundError(false)}, time.Now(), gormlogger.ErrRecordNotFound, "SQL Error"},
		{"slow query", gormlogger.Warn, []GormLoggerOption{WithSlowThreshold(time.Millisecond)}, time.Now().Add(-time.Second), nil, "SLOW SQL >= 1ms"},
		{"slow threshold disabled", gormlogger.Warn, []GormLoggerOption{WithSlowThreshold(0)}, time.Now().Add(-time.Second), nil, ""},
		{"info query", gormlogger.Info, nil, time.Now(), nil, "SQL Query"},
		{"silent", gormlogger.Silent, nil, time.Now(), errors.New("boom"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			gl := NewGormLogger(zap.New(core), tt.level, tt.opts...)

			gl.Trace(context.Background(), tt.begin, sqlFn(`SELECT * FROM "entity_snapshots"`), tt.err)

			if tt.wantMsg == "" {
				assert.Zero(t, recorded.Len())
				return
			}
			require.Equal(t, 1, recorded.Len())
			assert.Equal(t, tt.wantMsg, recorded.All()[0].Message)
		})
	}
}

func TestGormLogger_TraceCarriesRequestID(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info)
	ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-42")

	gl.Trace(ctx, time.Now(), sqlFn("SELECT 1"), nil)

	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "req-42", recorded.All()[0].ContextMap()["request_id"])
}

func TestGormLogger_LogModeAndMessages(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Silent)
	gl.Info(context.Background(), "hidden %d", 1)
	assert.Zero(t, recorded.Len())

	loud := gl.LogMode(gormlogger.Info)
	loud.Info(context.Background(), "shown %d", 1)
	loud.Warn(context.Background(), "warn")
	loud.Error(context.Background(), "error")
	assert.Equal(t, 3, recorded.Len())
	assert.Equal(t, "shown 1", recorded.All()[0].Message)
	assert.Equal(t, gormlogger.Silent, gl.logLevel)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("bogus"))
}

type credential struct {
	ID           uint
	Username     string
	PasswordHash string
}

func loggedSQL(t *testing.T, opts ...GormLoggerOption) string {
	t.Helper()
	core, recorded := observer.New(zapcore.DebugLevel)
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: NewGormLogger(zap.New(core), gormlogger.Info, opts...),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&credential{}))
	require.NoError(t, db.Create(&credential{Username: "agent1", PasswordHash: "$2a$10$secret"}).Error)

	var out string
	for _, entry := range recorded.FilterMessage("SQL Query").All() {
		out += entry.ContextMap()["sql"].(string) + "\n"
	}
	return out
}

func TestGormLogger_ParameterizedQueries(t *testing.T) {
	hidden := loggedSQL(t)
	assert.Contains(t, hidden, "INSERT INTO")
	assert.NotContains(t, hidden, "$2a$10$secret")

	shown := loggedSQL(t, WithParameterizedQueries(false))
	assert.Contains(t, shown, "$2a$10$secret")
}
