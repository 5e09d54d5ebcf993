// internal/api/responses/responses.go
package responses

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger cria o logger do processo e o registra como global (zap.L()).
// Níveis aceitos: debug, info, warn, error. Valor inválido cai em info.
func InitLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewExample()
	}
	zap.ReplaceGlobals(logger)
	return logger
}

// Error responde {"error": msg} e registra os detalhes no log, sem expô-los ao cliente.
func Error(c *gin.Context, status int, msg string, details ...any) {
	fields := []zap.Field{
		zap.Int("status", status),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
	}
	for _, d := range details {
		switch v := d.(type) {
		case error:
			fields = append(fields, zap.Error(v))
		case zap.Field:
			fields = append(fields, v)
		default:
			fields = append(fields, zap.Any("detail", v))
		}
	}
	if status >= 500 {
		zap.L().Error(msg, fields...)
	} else {
		zap.L().Warn(msg, fields...)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
