package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// GlobalConfig 描述全局运行时行为。GitHubToken 允许通过环境变量
// GITHUB_PERSONAL_ACCESS_TOKEN 注入，加载后为空视为配置错误。
type GlobalConfig struct {
	ListenPort      int      `mapstructure:"ListenPort"`
	LogLevel        string   `mapstructure:"LogLevel"`
	LogFilePath     string   `mapstructure:"LogFilePath"`
	LogMaxSize      int      `mapstructure:"LogMaxSize"`
	LogMaxBackups   int      `mapstructure:"LogMaxBackups"`
	LogCompress     bool     `mapstructure:"LogCompress"`
	GitHubToken     string   `mapstructure:"GitHubToken"`
	GitHubUsername  string   `mapstructure:"GitHubUsername"`
	ResumeRepo      string   `mapstructure:"ResumeRepo"`
	ResumeBranch    string   `mapstructure:"ResumeBranch"`
	ResumeFile      string   `mapstructure:"ResumeFile"`
	ResumeCacheTTL  Duration `mapstructure:"ResumeCacheTTL"`
	StaleMaxAge     Duration `mapstructure:"StaleMaxAge"`
	UpstreamTimeout Duration `mapstructure:"UpstreamTimeout"`
	WebhookSecret   string   `mapstructure:"WebhookSecret"`
}

// CustomLink 描述仓库卡片上的附加跳转按钮，核心只负责透传给前端。
type CustomLink struct {
	Label   string `mapstructure:"Label" json:"label"`
	URL     string `mapstructure:"URL" json:"url"`
	Variant string `mapstructure:"Variant" json:"variant,omitempty"`
}

// RepoConfig 是允许列表中的一项：命中 Name 的仓库才会出现在聚合结果里，
// Owner 为空时回退到全局 GitHubUsername。
type RepoConfig struct {
	Name        string       `mapstructure:"Name" json:"name"`
	Title       string       `mapstructure:"Title" json:"title,omitempty"`
	Description string       `mapstructure:"Description" json:"description,omitempty"`
	Order       int          `mapstructure:"Order" json:"order"`
	Owner       string       `mapstructure:"Owner" json:"owner,omitempty"`
	Section     string       `mapstructure:"Section" json:"section"`
	Libraries   []string     `mapstructure:"Libraries" json:"libraries,omitempty"`
	InProgress  bool         `mapstructure:"InProgress" json:"in_progress,omitempty"`
	CustomLinks []CustomLink `mapstructure:"CustomLink" json:"custom_links,omitempty"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global GlobalConfig `mapstructure:",squash"`
	Repos  []RepoConfig `mapstructure:"Repo"`
}

// EffectiveOwner 返回该仓库生效的 owner，未覆盖时回退到默认账号。
func (c *Config) EffectiveOwner(r RepoConfig) string {
	if r.Owner != "" {
		return r.Owner
	}
	return c.Global.GitHubUsername
}

// AllowList 以名称为键返回允许列表，供聚合层做集合过滤。
func (c *Config) AllowList() map[string]RepoConfig {
	result := make(map[string]RepoConfig, len(c.Repos))
	for _, repo := range c.Repos {
		result[repo.Name] = repo
	}
	return result
}

// Sections 返回配置中出现过的分组名，按字典序排列，供诊断接口输出。
func (c *Config) Sections() []string {
	seen := map[string]struct{}{}
	for _, repo := range c.Repos {
		seen[repo.Section] = struct{}{}
	}
	result := make([]string, 0, len(seen))
	for section := range seen {
		result = append(result, section)
	}
	sort.Strings(result)
	return result
}

// TokenMode 输出 `configured` 或 `missing`，供日志字段使用，避免泄露凭证。
func (g GlobalConfig) TokenMode() string {
	if g.GitHubToken != "" {
		return "configured"
	}
	return "missing"
}
