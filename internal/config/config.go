package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// ConfigPathEnv 指定 YAML 配置文件路径的环境变量。
const ConfigPathEnv = "CAPTIONFOUNDRY_CONFIG"

// AppConfig 汇总运行服务所需的基础配置。
// 配置先读取可选的 YAML 文件，再由环境变量覆盖。
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Host    string `yaml:"host" env:"LISTEN_HOST" env-default:"127.0.0.1"`
	Port    string `yaml:"port" env:"PORT" env-default:"8000"`
	GinMode string `yaml:"gin_mode" env:"GIN_MODE" env-default:"release"`
}

// DatabaseConfig sqlite 数据库配置
type DatabaseConfig struct {
	Path     string `yaml:"path" env:"DATABASE_PATH" env-default:"data/database.db"`
	LogLevel string `yaml:"log_level" env:"DATABASE_LOG_LEVEL" env-default:"warn"`
}

// LogConfig zap 日志配置
type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Encoding string `yaml:"encoding" env:"LOG_ENCODING" env-default:"json"`
	// OutputPath 为空时只输出到 stdout
	OutputPath string `yaml:"output_path" env:"LOG_OUTPUT_PATH" env-default:""`
}

// ListenAddr 返回 host:port 形式的监听地址。
func (c ServerConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%s", strings.TrimSpace(c.Host), strings.TrimSpace(c.Port))
}

// Load 读取配置。path 为空时使用 CAPTIONFOUNDRY_CONFIG，
// 文件不存在时只读取环境变量并使用默认值。
func Load(path string) (AppConfig, error) {
	var cfg AppConfig

	if strings.TrimSpace(path) == "" {
		path = strings.TrimSpace(os.Getenv(ConfigPathEnv))
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return AppConfig{}, fmt.Errorf("read config %s: %w", path, err)
			}
			return cfg, cfg.validate()
		} else if !errors.Is(err, os.ErrNotExist) {
			return AppConfig{}, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("read env config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.Server.Port) == "" {
		return errors.New("server port is required")
	}
	switch strings.ToLower(c.Log.Encoding) {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported log encoding %q", c.Log.Encoding)
	}
	return nil
}
