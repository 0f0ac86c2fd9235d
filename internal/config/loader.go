package config

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	// 凭证优先从环境变量读取，避免令牌落盘。
	if err := v.BindEnv("GitHubToken", "GITHUB_PERSONAL_ACCESS_TOKEN"); err != nil {
		return nil, fmt.Errorf("绑定环境变量失败: %w", err)
	}
	if err := v.BindEnv("WebhookSecret", "GITHUB_WEBHOOK_SECRET"); err != nil {
		return nil, fmt.Errorf("绑定环境变量失败: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	for i := range cfg.Repos {
		applyRepoDefaults(&cfg.Repos[i], i)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("ResumeBranch", "main")
	v.SetDefault("ResumeCacheTTL", "5m")
	v.SetDefault("StaleMaxAge", "1m")
	v.SetDefault("UpstreamTimeout", "15s")
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ResumeBranch == "" {
		g.ResumeBranch = "main"
	}
	if g.ResumeCacheTTL.DurationValue() == 0 {
		g.ResumeCacheTTL = Duration(5 * time.Minute)
	}
	if g.StaleMaxAge.DurationValue() == 0 {
		g.StaleMaxAge = Duration(time.Minute)
	}
	if g.UpstreamTimeout.DurationValue() == 0 {
		g.UpstreamTimeout = Duration(15 * time.Second)
	}
}

func applyRepoDefaults(r *RepoConfig, index int) {
	if r.Section == "" {
		r.Section = "projects"
	}
	if r.Order == 0 {
		r.Order = index + 1
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
