package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	fiberrecover "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/book-hub/internal/logging"
	"github.com/any-hub/book-hub/internal/metrics"
	"github.com/any-hub/book-hub/internal/telegram"
)

// UpdateHandler 处理一条 Telegram Update，*bot.Bot 满足该接口。
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update telegram.Update) error
}

// UpdateHandlerFunc adapts a function to the UpdateHandler interface.
type UpdateHandlerFunc func(context.Context, telegram.Update) error

// HandleUpdate makes UpdateHandlerFunc satisfy UpdateHandler.
func (f UpdateHandlerFunc) HandleUpdate(ctx context.Context, update telegram.Update) error {
	return f(ctx, update)
}

// AppOptions controls the webhook application.
type AppOptions struct {
	Logger        *logrus.Logger
	Handler       UpdateHandler
	WebhookSecret string
	Latency       *metrics.LatencyTracker
	CacheMode     string
	// UpdateTimeout 限制单条 Update 的处理时长，默认 10 分钟。
	UpdateTimeout time.Duration
}

const contextKeyRequestID = "_bookhub_request_id"

// App 包装 fiber.App，并跟踪仍在后台处理的 Update。
type App struct {
	*fiber.App
	inflight sync.WaitGroup
}

// NewApp builds the Fiber application: webhook endpoint, request id and
// recover middleware, diagnostics routes.
func NewApp(opts AppOptions) (*App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Handler == nil {
		return nil, errors.New("update handler is required")
	}
	if opts.WebhookSecret == "" {
		return nil, errors.New("webhook secret is required")
	}
	if opts.UpdateTimeout <= 0 {
		opts.UpdateTimeout = 10 * time.Minute
	}

	app := &App{
		App: fiber.New(fiber.Config{
			CaseSensitive: true,
		}),
	}

	app.Use(fiberrecover.New())
	app.Use(requestIDMiddleware())

	app.Post("/webhook/:secret", app.webhookHandler(opts))
	registerDiagnostics(app.App, opts)

	return app, nil
}

func requestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// webhookHandler 校验路径中的 secret，解析 Update 后立即返回 200，实际处理在后台完成。
func (a *App) webhookHandler(opts AppOptions) fiber.Handler {
	secret := []byte(opts.WebhookSecret)
	return func(c fiber.Ctx) error {
		if subtle.ConstantTimeCompare([]byte(c.Params("secret")), secret) != 1 {
			opts.Logger.WithFields(logrus.Fields{
				"action":     "webhook",
				"request_id": RequestID(c),
			}).Warn("webhook_secret_mismatch")
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
		}

		var update telegram.Update
		if err := json.Unmarshal(c.Body(), &update); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_update"})
		}

		a.dispatch(opts, RequestID(c), update)
		return c.SendStatus(fiber.StatusOK)
	}
}

// dispatch 在独立的 goroutine 中处理 Update，使用与 HTTP 请求解耦的 context。
func (a *App) dispatch(opts AppOptions, reqID string, update telegram.Update) {
	a.inflight.Add(1)
	go func() {
		defer a.inflight.Done()
		fields := logging.UpdateFields(update.UpdateID, update.ChatID(), updateKind(update))
		fields["request_id"] = reqID
		defer func() {
			if r := recover(); r != nil {
				fields["panic"] = fmt.Sprint(r)
				opts.Logger.WithFields(fields).Error("update_panic")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), opts.UpdateTimeout)
		defer cancel()

		started := time.Now()
		err := opts.Handler.HandleUpdate(ctx, update)
		fields["elapsed_ms"] = time.Since(started).Milliseconds()
		if err != nil {
			fields["error"] = err.Error()
			opts.Logger.WithFields(fields).Warn("update_handled_with_error")
			return
		}
		opts.Logger.WithFields(fields).Debug("update_handled")
	}()
}

// Drain 等待后台 Update 处理完成，ctx 结束时提前返回。
func (a *App) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func updateKind(update telegram.Update) string {
	switch {
	case update.CallbackQuery != nil:
		return "callback_query"
	case update.Message != nil:
		return "message"
	}
	return "other"
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}
