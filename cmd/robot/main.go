// cmd/robot runs the RSI/MACD trading loop against the Redis quote feed.
//
// Usage:
//
//	ROBOT_WATCHLIST=watchlist.yaml go run ./cmd/robot
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ibrobot/config"
	"ibrobot/internal/execution"
	"ibrobot/internal/gateway"
	"ibrobot/internal/logger"
	"ibrobot/internal/markethours"
	"ibrobot/internal/metrics"
	"ibrobot/internal/notification"
	"ibrobot/internal/robot"
	redisstore "ibrobot/internal/store/redis"
	sqlitestore "ibrobot/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatalf("[robot] %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[robot] config: %v", err)
	}
	slogger := logger.Init("robot", logger.ParseLevel(cfg.LogLevel))

	wl, err := config.LoadWatchlist(cfg.WatchlistPath)
	if err != nil {
		log.Fatalf("[robot] %v", err)
	}
	account := cfg.Account
	if account == "" {
		account = wl.Account
	}
	if !cfg.DryRun {
		// Orders are routed to the broker by the gateway layer, which is
		// not part of this binary.
		log.Fatalf("[robot] live order routing is not available in this binary; set ROBOT_DRY_RUN=true")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// ---- SQLite ----
	if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
		log.Fatalf("[robot] data dir: %v", err)
	}
	sqlWriter, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[robot] %v", err)
	}
	defer sqlWriter.Close()
	sqlReader, err := sqlitestore.NewReader(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[robot] %v", err)
	}
	defer sqlReader.Close()
	trades, err := execution.NewJournal(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[robot] %v", err)
	}
	defer trades.Close()

	// ---- Redis ----
	rdb, err := redisstore.Dial(redisstore.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		log.Fatalf("[robot] %v", err)
	}
	defer rdb.Close()

	// ---- Metrics + health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	health.SetRedisConnected(true)
	health.SetSQLiteOK(true)
	health.StartLivenessChecker(ctx, rdb, sqlWriter.DB(), 10*time.Second)

	cb := redisstore.NewCircuitBreaker(5, 30*time.Second)
	cb.OnStateChange = func(from, to redisstore.BreakerState) {
		prom.RedisCircuitBreakerState.Set(float64(to))
		if to == redisstore.StateOpen {
			prom.RedisCircuitBreakerTrips.Inc()
		}
		log.Printf("[robot] redis circuit breaker %s -> %s", from, to)
	}
	publisher := redisstore.NewSignalPublisher(rdb, cb, redisstore.PublisherConfig{})
	publisher.OnBuffer = func(pending int) { prom.RedisBufferedSignals.Set(float64(pending)) }
	publisher.OnFlush = func(int) { prom.RedisBufferedSignals.Set(0) }

	// ---- Signal stream ----
	hub := gateway.NewHub(1000, gateway.Hooks{
		OnClients: func(n int) { prom.WSClients.Set(float64(n)) },
		OnDrop:    prom.WSDrops.Inc,
	})
	server := metrics.NewServer(cfg.MetricsAddr, health, nil)
	gateway.RegisterRoutes(server, hub, sqlReader)
	server.Start()

	// The hub either follows pub:signal:* (so it also relays signals from
	// other robot processes sharing this Redis) or is fed in-process.
	var stream robot.SignalStream = hub
	if cfg.GatewayFromRedis {
		stream = nil
		go gateway.NewPubSubRouter(hub, rdb).Run(ctx)
	}

	// ---- Alerts ----
	notifiers := notification.Multi{notification.NewLogNotifier()}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	if cfg.TelegramToken != "" {
		notifiers = append(notifiers, notification.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID))
	}

	session := markethours.Session{Extended: cfg.ExtendedHours}
	bot, err := robot.New(robot.Config{
		Account:          account,
		Session:          session,
		PollInterval:     cfg.PollInterval,
		Workers:          cfg.Workers,
		SnapshotInterval: cfg.SnapshotInterval,
		Indicator:        cfg.IndicatorConfig(),
		Strategy:         cfg.StrategyConfig(),
		Risk:             cfg.RiskLimits(),
	}, wl.Symbols, robot.Deps{
		Quotes:    redisstore.NewQuoteSource(rdb, cfg.QuoteMaxAge),
		Bars:      sqlReader,
		BarSink:   sqlWriter,
		Signals:   sqlWriter,
		Publisher: publisher,
		Stream:    stream,
		Notifier:  notifiers,
		Executor:  execution.NewPaperExecutor(cfg.SlippageBps),
		Trades:    trades,
		Snapshots: []robot.SnapshotTarget{
			{Name: "redis", SnapshotStore: redisstore.NewSnapshotStore(rdb, cfg.SnapshotKey, 0)},
			{Name: "sqlite", SnapshotStore: sqlWriter},
		},
		Metrics: prom,
		Health:  health,
		Logger:  slogger,
	})
	if err != nil {
		log.Fatalf("[robot] init failed: %v", err)
	}

	log.Printf("[robot] account=%s symbols=%v interval=%s dry_run=%v workers=%d gateway_from_redis=%v",
		account, wl.SymbolNames(), cfg.PollInterval, cfg.DryRun, cfg.Workers, cfg.GatewayFromRedis)
	log.Printf("[robot] %s", session.StatusString(time.Now()))

	runErr := bot.Run(ctx)

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	server.Stop(shutCtx)

	if runErr != nil {
		log.Fatalf("[robot] fatal: %v", runErr)
	}
	log.Println("[robot] shutdown complete.")
}
