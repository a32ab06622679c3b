package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/cache"
	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/config"
	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/database"
	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/datasync"
	httpapi "github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/http"
	applog "github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/logger"
	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/mqtt"
	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/recordstore"
	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/service"
	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/store"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := applog.NewLogger(cfg.Log.Level, cfg.Log.Format, "breakdown-records")
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("Invalid log config, using defaults", zap.Error(err))
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recordStore, db := newRecordStore(ctx, cfg, logger)
	localCache, closeCache := newLocalCache(ctx, cfg, logger)

	ctrl := datasync.NewController(recordStore, localCache, logger, datasync.Options{
		LoadTimeout:     cfg.RecordStore.LoadTimeout,
		MutationTimeout: cfg.RecordStore.MutationTimeout,
	})

	// MQTT 变化通知（可选）
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		if c, err := mqtt.NewClient(&cfg.MQTT, logger); err == nil {
			mqttClient = c
			notifier := mqtt.NewNotifier(c, cfg.MQTT.Topic, cfg.MQTT.QoS, logger)
			notifier.Attach(ctrl)
			defer notifier.Detach()
			if cfg.MQTT.CommandTopic != "" {
				if err := c.Subscribe(cfg.MQTT.CommandTopic, cfg.MQTT.QoS, mqtt.NewCommandHandler(ctrl, logger)); err != nil {
					logger.Warn("Failed to subscribe to MQTT command topic", zap.Error(err))
				}
			}
			logger.Info("MQTT notifications enabled", zap.String("topic", cfg.MQTT.Topic))
		} else {
			logger.Warn("MQTT enabled but connection failed, notifications disabled", zap.Error(err))
		}
	}

	state := ctrl.Load(ctx)
	logger.Info("Initial load finished",
		zap.String("source", string(state.Source)),
		zap.Bool("degraded", state.Degraded),
		zap.Int("record_count", len(state.Records)),
	)

	router := httpapi.NewRouter(logger)
	router.RegisterRecordRoutes(httpapi.NewRecordsHandler(ctrl, logger))
	router.RegisterOptionsRoutes()
	router.RegisterHealthRoutes(httpapi.NewHealthHandler(recordStore, cfg.RecordStore.LoadTimeout, logger))
	if cfg.MetricsEnabled {
		router.HandleHandler("/metrics", promhttp.Handler())
	}

	srv := service.NewServer(cfg.HTTP.Addr, router, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server stopped", zap.Error(err))
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	closeCache()
	if db != nil {
		_ = db.Close()
	}
}

// newRecordStore 按 RECORD_STORE_BACKEND 选择 Record Store
// postgres 连接失败时退回内存实现（与 DB 未就绪时的联调方式一致）
func newRecordStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (recordstore.Store, *sql.DB) {
	switch cfg.RecordStore.Backend {
	case "http":
		logger.Info("Using HTTP record store",
			zap.String("url", cfg.RecordStore.URL),
			zap.String("collection", cfg.RecordStore.Collection),
		)
		return recordstore.NewHTTPStore(cfg.RecordStore.URL, cfg.RecordStore.APIKey, cfg.RecordStore.Timeout, logger).
			WithCollection(cfg.RecordStore.Collection), nil
	case "postgres":
		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			logger.Warn("Postgres record store unavailable, falling back to memory store", zap.Error(err))
			return recordstore.NewMemoryStore(), nil
		}
		ps := recordstore.NewPostgresStore(db)
		if err := ps.EnsureSchema(ctx); err != nil {
			logger.Warn("Failed to ensure breakdown_records schema", zap.Error(err))
		}
		logger.Info("Using Postgres record store", zap.String("host", cfg.Database.Host))
		return ps, db
	default:
		logger.Info("Using in-memory record store")
		return recordstore.NewMemoryStore(), nil
	}
}

// newLocalCache 按 LOCAL_CACHE_BACKEND 选择本地缓存；sqlite 打开失败时使用 redis
func newLocalCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*cache.LocalCache, func()) {
	if cfg.LocalCache.Backend == "sqlite" {
		kv, err := store.OpenSQLiteKV(ctx, cfg.LocalCache.Path)
		if err == nil {
			logger.Info("Using sqlite local cache", zap.String("path", cfg.LocalCache.Path))
			return cache.NewLocalCache(kv, cfg.LocalCache.Key, logger), func() { _ = kv.Close() }
		}
		logger.Warn("Failed to open sqlite local cache, using redis", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		// 缓存读写失败只记日志，服务照常启动
		logger.Warn("Redis local cache not reachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	return cache.NewLocalCache(store.NewRedisKV(redisClient), cfg.LocalCache.Key, logger), func() { _ = redisClient.Close() }
}
