package gorm

import (
	"fmt"
	"strings"
	"time"

	config "github.com/tigerroll/cropwx/pkg/batch/core/config"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/logger"

	gorm_logger "gorm.io/gorm/logger"
)

// NewGormLogger creates a gorm logger that writes through the application logger.
// Unknown levels fall back to SILENT.
func NewGormLogger(level string) gorm_logger.Interface {
	var gormLevel gorm_logger.LogLevel
	switch config.LogLevel(strings.ToUpper(level)) {
	case config.LogLevelError:
		gormLevel = gorm_logger.Error
	case config.LogLevelWarn:
		gormLevel = gorm_logger.Warn
	case config.LogLevelInfo, config.LogLevelDebug:
		gormLevel = gorm_logger.Info
	default:
		gormLevel = gorm_logger.Silent
	}

	return gorm_logger.New(
		NewGormWriter(),
		gorm_logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// GormWriter redirects gorm log output to the application logger.
type GormWriter struct{}

// NewGormWriter creates a new instance of GormWriter.
func NewGormWriter() *GormWriter {
	return &GormWriter{}
}

// Printf implements gorm_logger.Writer.
// Statement traces go to DEBUG; anything else (slow queries, errors) to WARN.
func (w *GormWriter) Printf(format string, v ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	if isStatementTrace(msg) {
		logger.Debugf("[GORM] %s", msg)
		return
	}
	logger.Warnf("[GORM] %s", msg)
}

func isStatementTrace(msg string) bool {
	if strings.Contains(msg, "SLOW SQL") || strings.Contains(msg, "Error") {
		return false
	}
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE", "CREATE", "DROP"} {
		if strings.Contains(msg, verb) {
			return true
		}
	}
	return false
}
