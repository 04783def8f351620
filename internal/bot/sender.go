package bot

import (
	"context"

	"github.com/any-hub/book-hub/internal/cache"
	"github.com/any-hub/book-hub/internal/delivery"
	"github.com/any-hub/book-hub/internal/origin"
)

// Sender 把 Messenger 适配为 delivery.Sender。
type Sender struct {
	messenger Messenger
}

// NewSender 包装 Bot API 客户端供投递引擎使用。
func NewSender(messenger Messenger) *Sender {
	return &Sender{messenger: messenger}
}

func (s *Sender) CopyMessage(ctx context.Context, dest delivery.Destination, ref cache.Reference) error {
	return s.messenger.CopyMessage(ctx, dest.ChatID, ref.ChatID, ref.MessageID, dest.ReplyTo)
}

func (s *Sender) SendDocument(ctx context.Context, dest delivery.Destination, payload *origin.Payload) error {
	return s.messenger.SendDocument(ctx, dest.ChatID, dest.ReplyTo, payload)
}
