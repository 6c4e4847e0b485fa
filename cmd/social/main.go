package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"sudooom.im.social/internal/config"
	"sudooom.im.social/internal/health"
	socialNats "sudooom.im.social/internal/nats"
	"sudooom.im.social/internal/remote"
	"sudooom.im.social/internal/service"
	"sudooom.im.social/internal/store"
	"sudooom.im.social/pkg/snowflake"
)

func main() {
	// 初始化日志
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// 加载配置
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// 创建上下文
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 按配置选择持久化后端
	var (
		kvStore     store.Store
		redisClient *redis.Client
		db          *pgxpool.Pool
	)
	switch cfg.Store.Backend {
	case "redis":
		redisClient = connectRedis(cfg.Redis)
		defer redisClient.Close()
		kvStore = store.NewRedisStore(redisClient)
		logger.Info("Using Redis store", "host", cfg.Redis.Host)

	case "postgres":
		db, err = connectDatabase(ctx, cfg.Database)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		kvStore, err = store.NewPostgresStore(ctx, db)
		if err != nil {
			logger.Error("Failed to initialize postgres store", "error", err)
			os.Exit(1)
		}
		logger.Info("Using PostgreSQL store", "host", cfg.Database.Host)

	case "memory":
		kvStore = store.NewMemoryStore()
		logger.Warn("Using in-memory store, data will not survive restarts")

	default:
		logger.Error("Unknown store backend", "backend", cfg.Store.Backend)
		os.Exit(1)
	}

	// 连接 NATS（未配置 URL 时不发通知）
	var (
		natsClient *socialNats.Client
		notifier   service.Notifier
	)
	if cfg.NATS.URL != "" {
		natsClient, err = socialNats.NewClient(cfg.NATS)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		notifier = socialNats.NewActivityPublisher(natsClient.Conn())
		logger.Info("Connected to NATS", "url", cfg.NATS.URL)
	}

	// 初始化引擎
	sf, err := snowflake.NewNode(1)
	if err != nil {
		logger.Error("Failed to create snowflake node", "error", err)
		os.Exit(1)
	}

	gateway := remote.NewSimulatedGateway(cfg.Engine.RemoteAckLatency, cfg.Engine.SearchLatency)
	friendService := service.NewFriendService(kvStore, gateway, notifier, sf)
	friendService.Load(ctx)

	// 启动后台活动模拟器
	simulator := service.NewActivitySimulator(friendService, cfg.Engine.SimulateInterval, cfg.Engine.PendingRequestCap)
	if err := simulator.Start(); err != nil {
		logger.Error("Failed to start activity simulator", "error", err)
		os.Exit(1)
	}

	// 启动健康检查 HTTP 服务
	var nc *nats.Conn
	if natsClient != nil {
		nc = natsClient.Conn()
	}
	healthChecker := health.NewChecker(nc, redisClient, db)
	go startHealthServer(healthChecker, logger)

	logger.Info("Social engine started", "name", cfg.App.Name)

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	simulator.Stop()
	cancel()
	logger.Info("Social engine stopped")
}

// startHealthServer 启动健康检查 HTTP 服务
func startHealthServer(healthChecker *health.Checker, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/health", healthChecker)
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if healthChecker.IsHealthy(r.Context()) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Not Ready"))
		}
	})

	server := &http.Server{
		Addr:    ":8081",
		Handler: mux,
	}

	logger.Info("Health check server started", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Health check server failed", "error", err)
	}
}

// connectRedis 连接 Redis
func connectRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// connectDatabase 连接 PostgreSQL
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = 10 * time.Minute

	return pgxpool.NewWithConfig(ctx, poolConfig)
}
