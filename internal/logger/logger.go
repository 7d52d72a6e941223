package logger

import (
	"fmt"
	"os"
	"strings"

	"github.com/captionfoundry/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New 根据配置构建 zap logger。
// 日志级别无法解析时回退到 info。
func New(cfg config.LogConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(cfg.Level))); err != nil {
		level = zap.InfoLevel
		fmt.Fprintf(os.Stderr, "failed to parse log level %q, defaulting to info: %v\n", cfg.Level, err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.Encoding = strings.ToLower(strings.TrimSpace(cfg.Encoding))
	if zcfg.Encoding == "" {
		zcfg.Encoding = "json"
	}
	zcfg.OutputPaths = []string{"stdout"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	if path := strings.TrimSpace(cfg.OutputPath); path != "" {
		zcfg.OutputPaths = append(zcfg.OutputPaths, path)
	}
	zcfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	return zcfg.Build()
}

// OrNop 在未注入 logger 时返回空实现。
func OrNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
