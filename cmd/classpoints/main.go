package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/text/language"

	"github.com/dukerupert/classpoints/internal/backup"
	"github.com/dukerupert/classpoints/internal/classroom"
	"github.com/dukerupert/classpoints/internal/config"
	"github.com/dukerupert/classpoints/internal/database"
	"github.com/dukerupert/classpoints/internal/logging"
	"github.com/dukerupert/classpoints/internal/redisstore"
	"github.com/dukerupert/classpoints/internal/server"
	"github.com/dukerupert/classpoints/internal/store"
	ws "github.com/dukerupert/classpoints/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// SQLite always holds backup records, and the roster too unless Redis
	// is selected.
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	st, healthCheck, closeStore, err := openStore(ctx, cfg, db)
	if err != nil {
		logger.Error("open store", "storage", cfg.Storage, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	tag, err := language.Parse(cfg.Language)
	if err != nil {
		logger.Warn("unknown language, using root collation", "language", cfg.Language, "error", err)
		tag = language.Und
	}

	hub := ws.NewHub(logger.With("component", "websocket"))
	room := classroom.New(st, classroom.Options{
		OnChange: server.ChangeNotifier(hub),
		Logger:   logger.With("component", "classroom"),
		Language: tag,
	})
	if err := room.Load(ctx); err != nil {
		logger.Error("load classroom", "error", err)
		os.Exit(1)
	}

	backups := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		},
		Passphrase: cfg.Backup.Passphrase,
		Interval:   cfg.Backup.Interval,
		Retention:  cfg.Backup.Retention,
	}, room, store.NewBackupStore(db), logger.With("component", "backup"), server.BackupNotifier(hub))
	if !cfg.BackupsEnabled() {
		logger.Info("backups disabled, S3 settings incomplete")
	}
	backups.Start(ctx)
	defer backups.Stop()

	srv := server.New(room, hub, backups, server.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		HealthCheck:    healthCheck,
		Logger:         logger,
	})
	go srv.RateLimiter().RunCleanup(ctx, time.Minute)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("classpoints running", "addr", "http://localhost:"+cfg.Port, "storage", cfg.Storage)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		logger.Error("server error", "error", err)
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}

// openStore returns the collection store selected by cfg.Storage along with
// its health check and close function.
func openStore(ctx context.Context, cfg *config.Config, db *sql.DB) (classroom.Store, func(context.Context) error, func(), error) {
	if cfg.Storage == config.StorageRedis {
		rs, err := redisstore.Open(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return rs, rs.Ping, func() { rs.Close() }, nil
	}
	return store.NewCollectionStore(db), db.PingContext, func() {}, nil
}
