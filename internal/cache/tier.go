package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Mode 描述部署级别的缓存策略，运行期间不会变化。
type Mode int

const (
	// ModeNoCache 直接回源下载，不触碰任何缓存层。
	ModeNoCache Mode = iota
	// ModePrimary 使用原始缓存服务中的消息引用。
	ModePrimary
	// ModeBuffer 使用二级 buffer 缓存中的消息引用。
	ModeBuffer
)

// ParseMode 将配置字符串解析为 Mode，兼容 original 作为 primary 的别名。
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "no_cache", "nocache", "none":
		return ModeNoCache, nil
	case "primary", "original":
		return ModePrimary, nil
	case "buffer":
		return ModeBuffer, nil
	default:
		return ModeNoCache, fmt.Errorf("unknown cache mode %q", raw)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeNoCache:
		return "no_cache"
	case ModePrimary:
		return "primary"
	case ModeBuffer:
		return "buffer"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Reference 指向缓存频道中已经存在的文件消息，可以被低成本地转发。
type Reference struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int64 `json:"message_id"`
}

// Tier 是单个缓存层的查找 + 失效能力。
type Tier interface {
	// Name 返回用于日志与指标的层名称。
	Name() string

	// Get 返回 (bookID, format) 对应的消息引用。若不存在则返回 ErrNotFound。
	Get(ctx context.Context, bookID int64, format string) (Reference, error)

	// Invalidate 删除失效引用。引用已不存在时也必须返回 nil。
	Invalidate(ctx context.Context, bookID int64, format string) error
}

// Tiers 将缓存模式映射到具体的缓存层。
type Tiers map[Mode]Tier

// For 返回模式对应的缓存层；ModeNoCache 与未配置的模式返回 ErrTierUnavailable。
func (t Tiers) For(mode Mode) (Tier, error) {
	if mode == ModeNoCache {
		return nil, fmt.Errorf("%w: %s", ErrTierUnavailable, mode)
	}
	tier, ok := t[mode]
	if !ok || tier == nil {
		return nil, fmt.Errorf("%w: %s", ErrTierUnavailable, mode)
	}
	return tier, nil
}

// ErrNotFound 表示缓存层中不存在该引用。
var ErrNotFound = errors.New("cache reference not found")

// ErrTierUnavailable 表示当前模式没有配置缓存层，或缓存后端暂时不可达。
var ErrTierUnavailable = errors.New("cache tier unavailable")
