package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/redular/internal/api"
	"github.com/shaiso/redular/internal/handlers"
	"github.com/shaiso/redular/internal/ingest"
	"github.com/shaiso/redular/internal/mq"
	"github.com/shaiso/redular/internal/repo"
	"github.com/shaiso/redular/internal/scheduler"
	"github.com/shaiso/redular/internal/store"
	"github.com/shaiso/redular/internal/telemetry"
)

var (
	startTime = time.Now()
	reqTotal  = promauto.NewCounter(prometheus.CounterOpts{
		Name: "redular_healthz_requests_total",
		Help: "Total /healthz requests handled by redular",
	})
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting redular")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Подключаемся к Redis (три соединения)
	storeCfg := store.ConfigFromEnv()
	rdb, err := store.Open(ctx, storeCfg, logger)
	if err != nil {
		logger.Error("failed to connect to redis", "redis_url", storeCfg.URL, "error", err)
		os.Exit(1)
	}
	defer rdb.Close()
	logger.Info("connected to redis", "redis_url", storeCfg.URL, "db", rdb.DB())

	cfg := scheduler.Config{
		InstanceID: os.Getenv("REDULAR_ID"),
		Store:      rdb,
		DataExpiry: envSeconds(logger, "REDULAR_DATA_EXPIRY"),
		AutoConfig: envBool("REDULAR_AUTO_CONFIG"),
		Metrics:    telemetry.NewMetrics(prometheus.DefaultRegisterer),
		Logger:     logger,
	}

	// Журнал в PostgreSQL — опционально
	var journal api.Journal
	if dsn := repo.DSNFromEnv(); dsn != "" {
		pool, err := repo.NewPool(ctx, dsn)
		if err != nil {
			logger.Error("failed to connect to database", "db_url", dsn, "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		journalRepo := repo.NewJournalRepo(pool)
		if err := journalRepo.EnsureSchema(ctx); err != nil {
			logger.Error("failed to ensure journal schema", "error", err)
			os.Exit(1)
		}
		cfg.Journal = journalRepo
		journal = journalRepo
		logger.Info("journal enabled")
	}

	// RabbitMQ — опционально
	var conn *mq.Connection
	if url := mq.URLFromEnv(); url != "" {
		conn, err = mq.NewConnection(url, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "amqp_url", url, "error", err)
			os.Exit(1)
		}
		defer conn.Close()

		if err := mq.SetupTopology(ctx, conn); err != nil {
			logger.Error("failed to setup topology", "error", err)
			os.Exit(1)
		}
		cfg.Relay = mq.NewPublisher(conn, logger)
		logger.Info("relay enabled", "topology", mq.TopologyInfo())
	}

	sched, err := scheduler.New(cfg)
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}

	webhooks, err := handlers.ParseWebhooks(os.Getenv("REDULAR_WEBHOOKS"))
	if err != nil {
		logger.Error("invalid REDULAR_WEBHOOKS", "error", err)
		os.Exit(1)
	}
	for name, url := range webhooks {
		fn, err := handlers.Webhook(name, handlers.WebhookConfig{URL: url, Logger: logger})
		if err != nil {
			logger.Error("failed to create webhook", "event", name, "error", err)
			os.Exit(1)
		}
		if _, err := sched.DefineHandler(name, fn); err != nil {
			logger.Error("failed to define handler", "event", name, "error", err)
			os.Exit(1)
		}
	}

	for _, name := range envList("REDULAR_EVENTS") {
		if _, ok := webhooks[name]; ok {
			continue
		}
		if _, err := sched.DefineHandler(name, logFired(logger, name)); err != nil {
			logger.Error("failed to define handler", "event", name, "error", err)
			os.Exit(1)
		}
	}

	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()
	logger = telemetry.WithInstanceID(logger, sched.ClientID())
	logger.Info("scheduler started", "handlers", sched.Handlers())

	// Периодическая очистка данных
	pruneCron := scheduler.DefaultPruneCron
	if v, ok := os.LookupEnv("PRUNE_CRON"); ok {
		pruneCron = v
	}
	if pruneCron != "" {
		if _, err := sched.StartPruneCron(ctx, pruneCron); err != nil {
			logger.Error("failed to start prune cron", "error", err)
			os.Exit(1)
		}
	}

	// Приём команд из очереди
	if conn != nil {
		intake := ingest.New(ingest.Config{
			Scheduler: sched,
			Conn:      conn,
			Logger:    logger,
		})
		if err := intake.Start(ctx); err != nil {
			logger.Error("failed to start intake", "error", err)
			os.Exit(1)
		}
		defer intake.Stop()
	}

	handler := api.NewHandler(api.Config{
		Scheduler: sched,
		Journal:   journal,
		Logger:    logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		reqTotal.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":8090"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Ожидаем сигнал завершения, ошибку сервера или фатальную ошибку listener'а
	exitCode := 0
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serverErr:
		logger.Error("server error", "error", err)
		exitCode = 1
	case err := <-sched.Errors():
		logger.Error("listener failed", "error", err)
		exitCode = 1
	}

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
	if exitCode != 0 {
		cancel()
		sched.Stop()
		os.Exit(exitCode)
	}
}

// logFired возвращает обработчик, который только логирует событие.
func logFired(logger *slog.Logger, name string) func(context.Context, json.RawMessage) {
	return func(_ context.Context, payload json.RawMessage) {
		logger.Info("event fired", "event", name, "payload", string(payload))
	}
}

func envBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}

// envSeconds читает длительность в секундах. Пусто или мусор — 0 (значение по умолчанию).
func envSeconds(logger *slog.Logger, key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		logger.Warn("ignoring invalid duration", "env", key, "value", v)
		return 0
	}
	return time.Duration(n) * time.Second
}

func envList(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
