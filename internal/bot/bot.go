// Package bot routes Telegram updates to the catalog, the paginated renderer
// and the delivery engine. It holds no per-chat state: every pagination
// callback carries its own scope, key and page.
package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/book-hub/internal/catalog"
	"github.com/any-hub/book-hub/internal/delivery"
	"github.com/any-hub/book-hub/internal/logging"
	"github.com/any-hub/book-hub/internal/metrics"
	"github.com/any-hub/book-hub/internal/origin"
	"github.com/any-hub/book-hub/internal/pagination"
	"github.com/any-hub/book-hub/internal/telegram"
)

// Messenger 是 Bot 使用的 Bot API 子集，*telegram.Client 满足该接口。
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts telegram.SendOptions) (telegram.Message, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, keyboard *telegram.InlineKeyboard) error
	EditMessageReplyMarkup(ctx context.Context, chatID, messageID int64, keyboard *telegram.InlineKeyboard) error
	AnswerCallbackQuery(ctx context.Context, queryID, text string) error
	SendChatAction(ctx context.Context, chatID int64, action string) error
	CopyMessage(ctx context.Context, chatID, fromChatID, messageID, replyTo int64) error
	SendDocument(ctx context.Context, chatID, replyTo int64, payload *origin.Payload) error
}

// Catalog 是 Bot 使用的目录查询子集，*catalog.Client 满足该接口。
type Catalog interface {
	SearchBooks(ctx context.Context, query string, page int, langs []string) (catalog.Page[catalog.Book], error)
	SearchAuthors(ctx context.Context, query string, page int, langs []string) (catalog.Page[catalog.Author], error)
	SearchTranslators(ctx context.Context, query string, page int, langs []string) (catalog.Page[catalog.Author], error)
	SearchSequences(ctx context.Context, query string, page int, langs []string) (catalog.Page[catalog.Sequence], error)
	AuthorBooks(ctx context.Context, key string, page int, langs []string) (catalog.Page[catalog.Book], error)
	TranslatorBooks(ctx context.Context, key string, page int, langs []string) (catalog.Page[catalog.Book], error)
	SequenceBooks(ctx context.Context, key string, page int, langs []string) (catalog.Page[catalog.Book], error)
	GetBookAnnotation(ctx context.Context, id int64) (catalog.Annotation, error)
	RandomBook(ctx context.Context, langs []string) (catalog.Book, error)
	RandomAuthor(ctx context.Context, langs []string) (catalog.Author, error)
	RandomSequence(ctx context.Context, langs []string) (catalog.Sequence, error)
}

// Deliverer 是投递引擎，*delivery.Engine 满足该接口。
type Deliverer interface {
	DeliverWithPresence(ctx context.Context, req delivery.Request, dest delivery.Destination, signal delivery.SignalFunc) (delivery.Result, error)
}

// Options 汇总 Bot 的依赖。
type Options struct {
	Messenger      Messenger
	Catalog        Catalog
	Delivery       Deliverer
	Langs          []string
	MaxQueryLength int
	Logger         *logrus.Logger
	Latency        *metrics.LatencyTracker
}

type pageRenderer func(ctx context.Context, req pagination.Request) (pagination.Message, error)

// Bot 处理单条 Update，可被多个 goroutine 并发调用。
type Bot struct {
	messenger      Messenger
	catalog        Catalog
	delivery       Deliverer
	codec          *pagination.Codec
	renderers      map[string]pageRenderer
	langs          []string
	maxQueryLength int
	logger         *logrus.Logger
	latency        *metrics.LatencyTracker
}

// New 创建 Bot 并注册全部翻页作用域。
func New(opts Options) (*Bot, error) {
	if opts.Messenger == nil {
		return nil, errors.New("messenger is required")
	}
	if opts.Catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if opts.Delivery == nil {
		return nil, errors.New("delivery engine is required")
	}
	b := &Bot{
		messenger:      opts.Messenger,
		catalog:        opts.Catalog,
		delivery:       opts.Delivery,
		codec:          pagination.DefaultCodec(),
		langs:          append([]string(nil), opts.Langs...),
		maxQueryLength: opts.MaxQueryLength,
		logger:         opts.Logger,
		latency:        opts.Latency,
	}
	if b.logger == nil {
		b.logger = logging.NewDiscardLogger()
	}
	if b.maxQueryLength <= 0 {
		b.maxQueryLength = 57
	}

	c := opts.Catalog
	b.renderers = map[string]pageRenderer{
		pagination.SearchBooksPrefix:       renderer(c.SearchBooks, bookItem),
		pagination.SearchAuthorsPrefix:     renderer(c.SearchAuthors, authorItem),
		pagination.SearchTranslatorsPrefix: renderer(c.SearchTranslators, translatorItem),
		pagination.SearchSequencesPrefix:   renderer(c.SearchSequences, sequenceItem),
		pagination.AuthorBooksPrefix:       renderer(c.AuthorBooks, bookItem),
		pagination.TranslatorBooksPrefix:   renderer(c.TranslatorBooks, bookItem),
		pagination.SequenceBooksPrefix:     renderer(c.SequenceBooks, bookItem),
	}
	return b, nil
}

func renderer[T any](getter pagination.ItemsGetter[T], format pagination.Formatter[T]) pageRenderer {
	return func(ctx context.Context, req pagination.Request) (pagination.Message, error) {
		return pagination.Render(ctx, req, getter, format)
	}
}

// HandleUpdate 处理一条 Update。返回的错误仅用于日志，用户侧提示已在内部发送。
func (b *Bot) HandleUpdate(ctx context.Context, update telegram.Update) error {
	switch {
	case update.CallbackQuery != nil:
		return b.handleCallback(ctx, update)
	case update.Message != nil && update.Message.Text != "":
		return b.handleMessage(ctx, update)
	}
	return nil
}

// render 渲染一页并记录耗时。
func (b *Bot) render(ctx context.Context, req pagination.Request) (pagination.Message, error) {
	render, ok := b.renderers[req.Prefix]
	if !ok {
		return pagination.Message{}, pagination.ErrInvalidToken
	}
	if req.EmptyMessage == "" {
		req.EmptyMessage = emptyMessage
	}
	started := time.Now()
	msg, err := render(ctx, req)
	elapsed := time.Since(started)
	b.latency.Record("render."+strings.TrimSuffix(req.Prefix, pagination.Separator), elapsed)

	fields := logging.PageFields(req.Prefix, req.Key, req.Page)
	fields["elapsed_ms"] = elapsed.Milliseconds()
	if err != nil {
		fields["error"] = err.Error()
		b.logger.WithFields(fields).Warn("page_render_failed")
		return msg, err
	}
	fields["rendered_page"] = msg.Page
	fields["total_pages"] = msg.Total
	b.logger.WithFields(fields).Debug("page_rendered")
	return msg, nil
}

func (b *Bot) reply(ctx context.Context, msg *telegram.Message, text string, keyboard *telegram.InlineKeyboard) error {
	_, err := b.messenger.SendMessage(ctx, msg.Chat.ID, text, telegram.SendOptions{
		ReplyTo:  msg.MessageID,
		Keyboard: keyboard,
	})
	return err
}

func (b *Bot) logError(update telegram.Update, kind string, err error) {
	fields := logging.UpdateFields(update.UpdateID, update.ChatID(), kind)
	fields["error"] = err.Error()
	b.logger.WithFields(fields).Error("update_failed")
}

func inlineKeyboard(k pagination.Keyboard) *telegram.InlineKeyboard {
	if len(k) == 0 {
		return nil
	}
	rows := make([][]telegram.InlineButton, 0, len(k))
	for _, row := range k {
		buttons := make([]telegram.InlineButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, telegram.InlineButton{Text: btn.Text, CallbackData: btn.Data})
		}
		rows = append(rows, buttons)
	}
	return &telegram.InlineKeyboard{Rows: rows}
}

// singleColumn 每个按钮单独一行。
func singleColumn(buttons ...telegram.InlineButton) *telegram.InlineKeyboard {
	rows := make([][]telegram.InlineButton, 0, len(buttons))
	for _, btn := range buttons {
		rows = append(rows, []telegram.InlineButton{btn})
	}
	return &telegram.InlineKeyboard{Rows: rows}
}
