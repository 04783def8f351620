package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix 为所有环境变量覆盖的公共前缀，例如 BOOK_HUB_BOTTOKEN、BOOK_HUB_CACHE_URL。
const EnvPrefix = "BOOK_HUB"

// maxQueryLength 为 callback_data 的 64 字节预留前缀、分隔符与三位页码。
const maxQueryLength = 64 - 7

// Load 读取并解析 TOML 配置文件，叠加环境变量覆盖，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	hook := mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults 需要覆盖所有键，AutomaticEnv 只会为 viper 已知的键查找环境变量。
func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 8080)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("BotToken", "")
	v.SetDefault("WebhookBaseURL", "")
	v.SetDefault("WebhookSecret", "")
	v.SetDefault("TelegramAPIRoot", "https://api.telegram.org")
	v.SetDefault("CacheMode", "primary")
	v.SetDefault("PresenceInterval", "5s")
	v.SetDefault("UpstreamTimeout", "30s")
	v.SetDefault("DefaultLangs", []string{"ru", "be", "uk"})
	v.SetDefault("MaxQueryLength", maxQueryLength)

	for _, section := range []string{"Catalog", "Cache", "Buffer", "Downloader"} {
		v.SetDefault(section+".URL", "")
		v.SetDefault(section+".APIKey", "")
	}
	v.SetDefault("Redis.Addr", "")
	v.SetDefault("Redis.DB", 0)
	v.SetDefault("Redis.Password", "")
	v.SetDefault("Redis.KeyPrefix", "book_cache:")
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 8080
	}
	if g.TelegramAPIRoot == "" {
		g.TelegramAPIRoot = "https://api.telegram.org"
	}
	if g.PresenceInterval.DurationValue() == 0 {
		g.PresenceInterval = Duration(5 * time.Second)
	}
	if g.UpstreamTimeout.DurationValue() == 0 {
		g.UpstreamTimeout = Duration(30 * time.Second)
	}
	if g.MaxQueryLength <= 0 {
		g.MaxQueryLength = maxQueryLength
	}
	g.CacheMode = strings.ToLower(strings.TrimSpace(g.CacheMode))
	langs := g.DefaultLangs[:0]
	for _, lang := range g.DefaultLangs {
		if trimmed := strings.TrimSpace(lang); trimmed != "" {
			langs = append(langs, strings.ToLower(trimmed))
		}
	}
	g.DefaultLangs = langs
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
