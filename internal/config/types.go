package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/any-hub/book-hub/internal/cache"
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

// GlobalConfig 描述 bot 运行时的全局行为。
type GlobalConfig struct {
	ListenPort       int      `mapstructure:"ListenPort"`
	LogLevel         string   `mapstructure:"LogLevel"`
	LogFilePath      string   `mapstructure:"LogFilePath"`
	LogMaxSize       int      `mapstructure:"LogMaxSize"`
	LogMaxBackups    int      `mapstructure:"LogMaxBackups"`
	LogCompress      bool     `mapstructure:"LogCompress"`
	BotToken         string   `mapstructure:"BotToken"`
	WebhookBaseURL   string   `mapstructure:"WebhookBaseURL"`
	WebhookSecret    string   `mapstructure:"WebhookSecret"`
	TelegramAPIRoot  string   `mapstructure:"TelegramAPIRoot"`
	CacheMode        string   `mapstructure:"CacheMode"`
	PresenceInterval Duration `mapstructure:"PresenceInterval"`
	UpstreamTimeout  Duration `mapstructure:"UpstreamTimeout"`
	DefaultLangs     []string `mapstructure:"DefaultLangs"`
	MaxQueryLength   int      `mapstructure:"MaxQueryLength"`
}

// ServiceConfig 描述一个 HTTP 协作服务（目录、缓存、下载器）的地址与密钥。
type ServiceConfig struct {
	URL    string `mapstructure:"URL"`
	APIKey string `mapstructure:"APIKey"`
}

// Configured 表示该服务是否填写了地址。
func (s ServiceConfig) Configured() bool {
	return strings.TrimSpace(s.URL) != ""
}

// RedisConfig 为 buffer 层提供可选的 Redis 后端。
type RedisConfig struct {
	Addr      string `mapstructure:"Addr"`
	DB        int    `mapstructure:"DB"`
	Password  string `mapstructure:"Password"`
	KeyPrefix string `mapstructure:"KeyPrefix"`
}

// Enabled 表示是否启用 Redis 作为 buffer 层。
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global     GlobalConfig  `mapstructure:",squash"`
	Catalog    ServiceConfig `mapstructure:"Catalog"`
	Cache      ServiceConfig `mapstructure:"Cache"`
	Buffer     ServiceConfig `mapstructure:"Buffer"`
	Downloader ServiceConfig `mapstructure:"Downloader"`
	Redis      RedisConfig   `mapstructure:"Redis"`
}

// Mode 返回解析后的缓存模式（假定 Validate 已经通过）。
func (c *Config) Mode() cache.Mode {
	mode, err := cache.ParseMode(c.Global.CacheMode)
	if err != nil {
		return cache.ModeNoCache
	}
	return mode
}

// WebhookURL 拼接 Telegram 回调地址，secret 作为路径的一部分。
func (c *Config) WebhookURL() string {
	base := strings.TrimRight(c.Global.WebhookBaseURL, "/")
	if base == "" {
		return ""
	}
	return base + "/webhook/" + c.Global.WebhookSecret
}

// ServiceSummary 输出各服务的启用情况，供启动日志使用，例如 cache:on。
func (c *Config) ServiceSummary() []string {
	state := func(name string, on bool) string {
		if on {
			return name + ":on"
		}
		return name + ":off"
	}
	return []string{
		state("catalog", c.Catalog.Configured()),
		state("cache", c.Cache.Configured()),
		state("buffer", c.Buffer.Configured()),
		state("downloader", c.Downloader.Configured()),
		state("redis", c.Redis.Enabled()),
	}
}
