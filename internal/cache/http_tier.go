package cache

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/any-hub/book-hub/internal/upstream"
)

// HTTPTier 访问缓存服务（primary 或 buffer）的 /api/v1/{id}/{format} 接口。
type HTTPTier struct {
	name   string
	client *upstream.Client
}

// NewHTTPTier 绑定服务客户端，name 用于日志与指标（primary/buffer）。
func NewHTTPTier(name string, client *upstream.Client) *HTTPTier {
	return &HTTPTier{name: name, client: client}
}

func (t *HTTPTier) Name() string {
	return t.name
}

func (t *HTTPTier) Get(ctx context.Context, bookID int64, format string) (Reference, error) {
	var ref Reference
	err := t.client.GetJSON(ctx, referencePath(bookID, format), nil, &ref)
	switch {
	case err == nil:
	case upstream.IsStatus(err, http.StatusNotFound):
		return Reference{}, ErrNotFound
	default:
		return Reference{}, fmt.Errorf("%s tier get: %w: %w", t.name, ErrTierUnavailable, err)
	}
	if ref.ChatID == 0 || ref.MessageID == 0 {
		return Reference{}, fmt.Errorf("%s tier get: %w", t.name, errIncompleteReference)
	}
	return ref, nil
}

func (t *HTTPTier) Invalidate(ctx context.Context, bookID int64, format string) error {
	err := t.client.Delete(ctx, referencePath(bookID, format))
	if err == nil || upstream.IsStatus(err, http.StatusNotFound) {
		return nil
	}
	return fmt.Errorf("%s tier invalidate: %w", t.name, err)
}

var errIncompleteReference = errors.New("reference without chat or message id")

func referencePath(bookID int64, format string) string {
	return fmt.Sprintf("/api/v1/%d/%s", bookID, format)
}
