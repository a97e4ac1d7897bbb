package shell

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"shelldone/internal/config"
)

// newLogger 按配置创建日志记录器
// 没有配置 log_file 时不记录任何日志；返回的 io.Closer 在会话结束时关闭
func newLogger(cfg *config.Config) (zerolog.Logger, io.Closer, error) {
	if cfg.LogFile == "" {
		return zerolog.Nop(), nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("log_file: %w", err)
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("log_file: %w", err)
	}
	logger := zerolog.New(f).Level(cfg.Level()).With().Timestamp().Int("pid", os.Getpid()).Logger()
	return logger, f, nil
}
