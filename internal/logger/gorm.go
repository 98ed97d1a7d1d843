package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

type gormLogger struct {
	logger zerolog.Logger
	level  gormlogger.LogLevel
}

// ToGormLogLevel maps a zerolog level onto gorm's coarser levels.
func ToGormLogLevel(level zerolog.Level) gormlogger.LogLevel {
	switch level {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		return gormlogger.Info
	case zerolog.InfoLevel, zerolog.WarnLevel:
		return gormlogger.Warn
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return gormlogger.Error
	default:
		return gormlogger.Silent
	}
}

// GormLogLevel returns the gorm level matching the global logger's level.
func GormLogLevel() gormlogger.LogLevel {
	return ToGormLogLevel(log.Logger.GetLevel())
}

// NewGormLogger routes gorm's logs to the global zerolog logger.
func NewGormLogger(level gormlogger.LogLevel) gormlogger.Interface {
	return &gormLogger{
		logger: log.Logger.With().Str("component", "gorm").Logger(),
		level:  level,
	}
}

func (g *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &gormLogger{
		logger: g.logger,
		level:  level,
	}
}

func (g *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Info {
		g.logger.Info().Msg(fmt.Sprintf(msg, data...))
	}
}

func (g *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Warn {
		g.logger.Warn().Msg(fmt.Sprintf(msg, data...))
	}
}

func (g *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Error {
		g.logger.Error().Msg(fmt.Sprintf(msg, data...))
	}
}

func (g *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && g.level >= gormlogger.Error && !expectedError(err):
		sql, rows := fc()
		g.logger.Error().Err(err).Dur("duration", elapsed).Str("sql", sql).Int64("rows", rows).Msg("GORM query failed")
	case elapsed > slowQueryThreshold && g.level >= gormlogger.Warn:
		sql, rows := fc()
		g.logger.Warn().Dur("duration", elapsed).Str("sql", sql).Int64("rows", rows).Msg("GORM slow query")
	case g.level >= gormlogger.Info:
		sql, rows := fc()
		g.logger.Debug().Dur("duration", elapsed).Str("sql", sql).Int64("rows", rows).Msg("GORM SQL")
	}
}

// expectedError matches errors the stores translate into domain results.
func expectedError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, gorm.ErrDuplicatedKey)
}
