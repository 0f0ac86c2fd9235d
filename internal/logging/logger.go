package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/bbravo/portfolio-api/internal/config"
)

// InitLogger 按全局配置构建 JSON 结构化 logger。日志目录不可写时退回
// stdout 并打点提示，进程不因日志落盘问题拒绝启动。
func InitLogger(cfg config.GlobalConfig) (*logrus.Logger, error) {
	level := cfg.LogLevel
	if level == "" {
		level = "info"
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("无法解析日志级别 %q: %w", level, err)
	}

	logger := logrus.New()
	logger.SetLevel(parsed)
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})

	out, fallbackErr := fileWriter(cfg)
	logger.SetOutput(out)

	// 包级入口与注入实例保持一致，第三方库里的 logrus 调用走同一路输出。
	logrus.SetFormatter(logger.Formatter)
	logrus.SetOutput(logger.Out)
	logrus.SetLevel(parsed)

	if fallbackErr != nil {
		logger.WithFields(logrus.Fields{
			"action": "logger_fallback",
			"path":   cfg.LogFilePath,
		}).Warn(fallbackErr.Error())
	}

	return logger, nil
}

// fileWriter 返回日志输出目标：未配置文件路径直接用 stdout；目录创建
// 失败同样退回 stdout，并把原因交给调用方记录。
func fileWriter(cfg config.GlobalConfig) (io.Writer, error) {
	if cfg.LogFilePath == "" {
		return os.Stdout, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFilePath), 0o755); err != nil {
		return os.Stdout, fmt.Errorf("创建日志目录失败: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   cfg.LogFilePath,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		Compress:   cfg.LogCompress,
		LocalTime:  true,
	}, nil
}
