package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/book-hub/internal/bot"
	"github.com/any-hub/book-hub/internal/cache"
	"github.com/any-hub/book-hub/internal/catalog"
	"github.com/any-hub/book-hub/internal/config"
	"github.com/any-hub/book-hub/internal/delivery"
	"github.com/any-hub/book-hub/internal/logging"
	"github.com/any-hub/book-hub/internal/metrics"
	"github.com/any-hub/book-hub/internal/origin"
	"github.com/any-hub/book-hub/internal/server"
	"github.com/any-hub/book-hub/internal/telegram"
	"github.com/any-hub/book-hub/internal/upstream"
	"github.com/any-hub/book-hub/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

const shutdownTimeout = 30 * time.Second

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["cache_mode"] = cfg.Mode().String()
		fields["services"] = cfg.ServiceSummary()
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 启动顺序：配置 → 共享 http.Client → 各服务客户端 → 缓存层 → 投递引擎 → Bot → Fiber。
	httpClient := server.NewUpstreamClient(cfg)
	latency := metrics.NewLatencyTracker(0.01)

	app, cleanup, err := buildApp(cfg, httpClient, logger, latency)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化服务失败: %v\n", err)
		return 1
	}
	defer cleanup()

	fields := logging.BaseFields("startup", opts.configPath)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["cache_mode"] = cfg.Mode().String()
	fields["services"] = cfg.ServiceSummary()
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(ctx, cfg, app, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("book-hub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 BOOK_HUB_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("BOOK_HUB_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

type wiredApp struct {
	app       *server.App
	messenger *telegram.Client
}

// buildApp 按配置装配全部组件，返回的 cleanup 负责关闭 Redis 等长连接。
func buildApp(cfg *config.Config, httpClient *http.Client, logger *logrus.Logger, latency *metrics.LatencyTracker) (*wiredApp, func(), error) {
	cleanup := func() {}

	catalogAPI, err := upstream.New("catalog", cfg.Catalog.URL, cfg.Catalog.APIKey, httpClient)
	if err != nil {
		return nil, cleanup, err
	}
	books := catalog.NewClient(catalogAPI)

	tiers, closeTiers, err := buildTiers(cfg, httpClient)
	if err != nil {
		return nil, cleanup, err
	}
	cleanup = closeTiers

	var fetcher delivery.Fetcher
	if cfg.Downloader.Configured() {
		downloaderAPI, err := upstream.New("downloader", cfg.Downloader.URL, cfg.Downloader.APIKey, httpClient)
		if err != nil {
			return nil, cleanup, err
		}
		fetcher = origin.NewClient(downloaderAPI)
	}

	messenger, err := telegram.NewClient(cfg.Global.TelegramAPIRoot, cfg.Global.BotToken, httpClient)
	if err != nil {
		return nil, cleanup, err
	}

	engine, err := delivery.NewEngine(delivery.Options{
		Mode:             cfg.Mode(),
		Tiers:            tiers,
		Books:            books,
		Origin:           fetcher,
		Sender:           bot.NewSender(messenger),
		Logger:           logger,
		Latency:          latency,
		PresenceInterval: cfg.Global.PresenceInterval.DurationValue(),
	})
	if err != nil {
		return nil, cleanup, err
	}

	handler, err := bot.New(bot.Options{
		Messenger:      messenger,
		Catalog:        books,
		Delivery:       engine,
		Langs:          cfg.Global.DefaultLangs,
		MaxQueryLength: cfg.Global.MaxQueryLength,
		Logger:         logger,
		Latency:        latency,
	})
	if err != nil {
		return nil, cleanup, err
	}

	secret := cfg.Global.WebhookSecret
	if secret == "" {
		// 未配置 WebhookBaseURL 时不会注册 webhook，随机 secret 只用于关闭入口。
		secret = uuid.NewString()
	}
	app, err := server.NewApp(server.AppOptions{
		Logger:        logger,
		Handler:       handler,
		WebhookSecret: secret,
		Latency:       latency,
		CacheMode:     cfg.Mode().String(),
	})
	if err != nil {
		return nil, cleanup, err
	}
	return &wiredApp{app: app, messenger: messenger}, cleanup, nil
}

// buildTiers 构造各缓存模式对应的缓存层；buffer 模式配置了 Redis 时优先使用 Redis。
func buildTiers(cfg *config.Config, httpClient *http.Client) (cache.Tiers, func(), error) {
	tiers := cache.Tiers{}
	cleanup := func() {}

	if cfg.Cache.Configured() {
		api, err := upstream.New("cache", cfg.Cache.URL, cfg.Cache.APIKey, httpClient)
		if err != nil {
			return nil, cleanup, err
		}
		tiers[cache.ModePrimary] = cache.NewHTTPTier("cache", api)
	}

	switch {
	case cfg.Redis.Enabled():
		rdb := cache.NewRedisClient(cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			Password: cfg.Redis.Password,
		})
		cleanup = func() { _ = rdb.Close() }
		tiers[cache.ModeBuffer] = cache.NewRedisTier("redis", rdb, cfg.Redis.KeyPrefix)
	case cfg.Buffer.Configured():
		api, err := upstream.New("buffer", cfg.Buffer.URL, cfg.Buffer.APIKey, httpClient)
		if err != nil {
			return nil, cleanup, err
		}
		tiers[cache.ModeBuffer] = cache.NewHTTPTier("buffer", api)
	}
	return tiers, cleanup, nil
}

// startHTTPServer 注册 webhook 后开始监听，收到退出信号时优雅关闭并等待后台 Update 处理完成。
func startHTTPServer(ctx context.Context, cfg *config.Config, wired *wiredApp, logger *logrus.Logger) error {
	if webhookURL := cfg.WebhookURL(); webhookURL != "" {
		if err := wired.messenger.SetWebhook(ctx, webhookURL); err != nil {
			return fmt.Errorf("注册 webhook 失败: %w", err)
		}
		logger.WithFields(logrus.Fields{
			"action":   "set_webhook",
			"base_url": cfg.Global.WebhookBaseURL,
		}).Info("webhook 已注册")
	}

	port := cfg.Global.ListenPort
	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	errCh := make(chan error, 1)
	go func() {
		errCh <- wired.app.Listen(fmt.Sprintf(":%d", port))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.WithField("action", "shutdown").Info("收到退出信号，开始关闭")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := wired.app.ShutdownWithContext(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return wired.app.Drain(shutdownCtx)
}
