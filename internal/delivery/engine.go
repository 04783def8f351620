// Package delivery decides where a ready-to-send copy of a book file lives and
// delivers it: re-forwarding a cached channel message when a cache tier is in
// use, or streaming the file from the downloader otherwise. A stale cache
// reference is invalidated and the whole resolve+forward step is retried once.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/book-hub/internal/cache"
	"github.com/any-hub/book-hub/internal/catalog"
	"github.com/any-hub/book-hub/internal/logging"
	"github.com/any-hub/book-hub/internal/metrics"
	"github.com/any-hub/book-hub/internal/origin"
)

// BookResolver 查询书籍的来源与 remote_id，仅在 ModeNoCache 下使用。
type BookResolver interface {
	GetBook(ctx context.Context, id int64) (catalog.Book, error)
}

// Fetcher 是回源下载器。
type Fetcher interface {
	Fetch(ctx context.Context, sourceID, remoteID int64, format string) (*origin.Payload, error)
}

// Sender 是聊天传输层：转发缓存消息或上传文件。
type Sender interface {
	CopyMessage(ctx context.Context, dest Destination, ref cache.Reference) error
	SendDocument(ctx context.Context, dest Destination, payload *origin.Payload) error
}

// Options 汇总 Engine 的依赖，缓存模式在构造时固定。
type Options struct {
	Mode             cache.Mode
	Tiers            cache.Tiers
	Books            BookResolver
	Origin           Fetcher
	Sender           Sender
	Logger           *logrus.Logger
	Latency          *metrics.LatencyTracker
	PresenceInterval time.Duration
}

// Result 描述一次成功投递走的路径。
type Result struct {
	Source   string
	Tier     string
	Attempts int
}

const (
	SourceCache  = "cache"
	SourceOrigin = "origin"
)

// Engine 负责一次次独立的投递，不持有跨请求的可变状态。
type Engine struct {
	mode             cache.Mode
	tier             cache.Tier
	books            BookResolver
	origin           Fetcher
	sender           Sender
	logger           *logrus.Logger
	latency          *metrics.LatencyTracker
	presenceInterval time.Duration
	startPresence    func(context.Context, time.Duration, SignalFunc) func()
}

// NewEngine 按缓存模式检查依赖是否齐全。
func NewEngine(opts Options) (*Engine, error) {
	if opts.Sender == nil {
		return nil, errors.New("sender is required")
	}
	e := &Engine{
		mode:             opts.Mode,
		books:            opts.Books,
		origin:           opts.Origin,
		sender:           opts.Sender,
		logger:           opts.Logger,
		latency:          opts.Latency,
		presenceInterval: opts.PresenceInterval,
		startPresence:    StartPresence,
	}
	if e.logger == nil {
		e.logger = logging.NewDiscardLogger()
	}
	if e.presenceInterval <= 0 {
		e.presenceInterval = 5 * time.Second
	}

	if opts.Mode == cache.ModeNoCache {
		if opts.Books == nil || opts.Origin == nil {
			return nil, errors.New("no_cache mode requires book resolver and origin fetcher")
		}
		return e, nil
	}

	tier, err := opts.Tiers.For(opts.Mode)
	if err != nil {
		return nil, err
	}
	e.tier = tier
	return e, nil
}

// DeliverWithPresence 在投递期间周期性发送 signal，任何退出路径（包括 panic）都会停止信号。
func (e *Engine) DeliverWithPresence(ctx context.Context, req Request, dest Destination, signal SignalFunc) (Result, error) {
	if err := validate(req, dest); err != nil {
		return Result{}, err
	}
	stop := e.startPresence(ctx, e.presenceInterval, signal)
	defer stop()
	return e.Deliver(ctx, req, dest)
}

// Deliver 执行一次投递。校验失败返回 ErrInvalidRequest；其余失败返回 ErrDeliveryFailed。
func (e *Engine) Deliver(ctx context.Context, req Request, dest Destination) (Result, error) {
	if err := validate(req, dest); err != nil {
		return Result{}, err
	}

	started := time.Now()
	var (
		result Result
		err    error
	)
	if e.mode == cache.ModeNoCache {
		result, err = e.deliverFromOrigin(ctx, req, dest)
	} else {
		result, err = e.deliverFromCache(ctx, req, dest)
	}
	e.logResult(req, dest, result, started, err)
	return result, err
}

func validate(req Request, dest Destination) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if dest.ChatID == 0 {
		return fmt.Errorf("%w: destination chat required", ErrInvalidRequest)
	}
	return nil
}

func (e *Engine) deliverFromOrigin(ctx context.Context, req Request, dest Destination) (Result, error) {
	result := Result{Source: SourceOrigin, Attempts: 1}

	book, err := e.books.GetBook(ctx, req.BookID)
	if err != nil {
		return result, fmt.Errorf("%w: resolve book: %w", ErrDeliveryFailed, err)
	}
	payload, err := e.origin.Fetch(ctx, book.Source.ID, book.RemoteID, req.Format)
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	defer payload.Close()

	fields := logging.DeliveryFields(req.BookID, req.Format, e.mode.String(), dest.ChatID)
	fields["filename"] = payload.Filename
	fields["size"] = payload.Size
	e.logger.WithFields(fields).Debug("origin_fetched")

	if err := e.sender.SendDocument(ctx, dest, payload); err != nil {
		return result, fmt.Errorf("%w: send document: %w", ErrDeliveryFailed, err)
	}
	return result, nil
}

func (e *Engine) deliverFromCache(ctx context.Context, req Request, dest Destination) (Result, error) {
	result := Result{Source: SourceCache, Tier: e.tier.Name(), Attempts: 1}

	err := e.forwardCached(ctx, req, dest)
	if err == nil {
		return result, nil
	}

	// 引用失效或缓存层暂时不可达都按同一方式处理：清除引用后完整重试一次。
	fields := logging.DeliveryFields(req.BookID, req.Format, e.mode.String(), dest.ChatID)
	fields["cache_tier"] = e.tier.Name()
	fields["error"] = err.Error()
	if invErr := e.tier.Invalidate(ctx, req.BookID, req.Format); invErr != nil {
		fields["invalidate_error"] = invErr.Error()
	}
	e.logger.WithFields(fields).Warn("cache_invalidated")

	result.Attempts = 2
	if err := e.forwardCached(ctx, req, dest); err != nil {
		return result, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	return result, nil
}

func (e *Engine) forwardCached(ctx context.Context, req Request, dest Destination) error {
	ref, err := e.tier.Get(ctx, req.BookID, req.Format)
	if err != nil {
		return fmt.Errorf("resolve reference: %w", err)
	}
	if err := e.sender.CopyMessage(ctx, dest, ref); err != nil {
		return fmt.Errorf("forward reference: %w", err)
	}
	return nil
}

func (e *Engine) logResult(req Request, dest Destination, result Result, started time.Time, err error) {
	elapsed := time.Since(started)
	fields := logging.DeliveryFields(req.BookID, req.Format, e.mode.String(), dest.ChatID)
	fields["source"] = result.Source
	fields["cache_tier"] = result.Tier
	fields["attempts"] = result.Attempts
	fields["elapsed_ms"] = elapsed.Milliseconds()

	if err != nil {
		e.latency.Record("deliver.failed", elapsed)
		fields["error"] = err.Error()
		e.logger.WithFields(fields).Error("delivery_failed")
		return
	}
	op := "deliver." + result.Source
	if result.Tier != "" {
		op = "deliver." + result.Tier
	}
	e.latency.Record(op, elapsed)
	e.logger.WithFields(fields).Info("delivery_complete")
}
