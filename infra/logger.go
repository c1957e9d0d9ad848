package infra

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger 初始化 zerolog
func InitLogger() {
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stdout
	if getEnvironment() != "production" {
		// 開發環境使用易讀的 console 格式
		out = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "2006-01-02 15:04:05",
		}
	}

	log.Logger = zerolog.New(out).
		With().
		Timestamp().
		Str("service", ServiceName).
		Str("environment", getEnvironment()).
		Str("hostname", getHostname()).
		Logger()

	setLogLevel(os.Getenv("LOG_LEVEL"))
}

// getEnvironment 獲取環境名稱
func getEnvironment() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "development"
	}
	return env
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}

// setLogLevel 設定日誌級別，空字串或無法解析時使用 info
func setLogLevel(levelStr string) {
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil || levelStr == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// GetLogger 獲取特定模組的 logger
func GetLogger(module string) zerolog.Logger {
	return log.With().Str("module", module).Logger()
}
