package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/any-hub/book-hub/internal/cache"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if strings.TrimSpace(g.BotToken) == "" {
		return newFieldError("Global.BotToken", "不能为空")
	}
	if err := validateURL(g.TelegramAPIRoot); err != nil {
		return fmt.Errorf("Global.TelegramAPIRoot: %w", err)
	}
	if g.WebhookBaseURL != "" {
		if err := validateURL(g.WebhookBaseURL); err != nil {
			return fmt.Errorf("Global.WebhookBaseURL: %w", err)
		}
		if strings.TrimSpace(g.WebhookSecret) == "" {
			return newFieldError("Global.WebhookSecret", "配置 WebhookBaseURL 时不能为空")
		}
	}
	if strings.ContainsAny(g.WebhookSecret, "/?# ") {
		return newFieldError("Global.WebhookSecret", "不允许包含 / ? # 或空格")
	}
	if g.PresenceInterval.DurationValue() <= 0 {
		return newFieldError("Global.PresenceInterval", "必须大于 0")
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("Global.UpstreamTimeout", "必须大于 0")
	}
	if len(g.DefaultLangs) == 0 {
		return newFieldError("Global.DefaultLangs", "至少需要一个语言")
	}
	if g.MaxQueryLength <= 0 || g.MaxQueryLength > maxQueryLength {
		return newFieldError("Global.MaxQueryLength", fmt.Sprintf("必须在 1-%d", maxQueryLength))
	}

	mode, err := cache.ParseMode(g.CacheMode)
	if err != nil {
		return newFieldError("Global.CacheMode", "仅支持 no_cache/primary/buffer")
	}

	if err := validateService("Catalog", c.Catalog, true); err != nil {
		return err
	}

	switch mode {
	case cache.ModePrimary:
		if err := validateService("Cache", c.Cache, true); err != nil {
			return err
		}
	case cache.ModeBuffer:
		if !c.Redis.Enabled() {
			if err := validateService("Buffer", c.Buffer, true); err != nil {
				return err
			}
		}
	case cache.ModeNoCache:
		if err := validateService("Downloader", c.Downloader, true); err != nil {
			return err
		}
	}

	for _, optional := range []struct {
		name string
		svc  ServiceConfig
	}{{"Cache", c.Cache}, {"Buffer", c.Buffer}, {"Downloader", c.Downloader}} {
		if err := validateService(optional.name, optional.svc, false); err != nil {
			return err
		}
	}

	if c.Redis.DB < 0 {
		return newFieldError("Redis.DB", "不能为负数")
	}

	return nil
}

func validateService(name string, svc ServiceConfig, required bool) error {
	if !svc.Configured() {
		if required {
			return newFieldError(sectionField(name, "URL"), "必须配置")
		}
		return nil
	}
	if err := validateURL(svc.URL); err != nil {
		return fmt.Errorf("%s: %w", sectionField(name, "URL"), err)
	}
	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return errors.New("缺少地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("缺少 Host: %s", raw)
	}
	return nil
}
