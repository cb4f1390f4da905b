package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"

	"greenhouse.org/growersplatform/internal/agent"
	"greenhouse.org/growersplatform/internal/agent/providers"
	"greenhouse.org/growersplatform/internal/bootstrap"
	"greenhouse.org/growersplatform/internal/config"
	"greenhouse.org/growersplatform/internal/server"
	"greenhouse.org/growersplatform/pkg/database"
	"greenhouse.org/growersplatform/pkg/logger"
	"greenhouse.org/growersplatform/pkg/mailer"
	"greenhouse.org/growersplatform/pkg/metrics"
	"greenhouse.org/growersplatform/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DatabaseURL, database.DefaultOptions())
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := bootstrap.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := bootstrap.SeedRoles(db); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	if err := bootstrap.SeedAdminUser(db, bootstrap.AdminSeed{
		Email:    cfg.AdminEmail,
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
	}, log); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	rdb := connectRedis(ctx, cfg.RedisURL, log)
	if rdb != nil {
		defer rdb.Close()
	}

	var meili meilisearch.ServiceManager
	if cfg.MeiliHost != "" {
		meili = meilisearch.New(cfg.MeiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	} else {
		log.Info("MEILI_HOST not set, member search uses the database")
	}

	fileStorage, err := newStorage(cfg, log)
	if err != nil {
		return err
	}

	var mail mailer.Mailer
	if cfg.SMTPHost != "" {
		mail = mailer.NewSMTP(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		log.Info("SMTP_HOST not set, emails are logged only")
		mail = mailer.NewLog(log)
	}

	llm, err := newLLM(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer llm.Close()

	scheduler := agent.NewScheduler(log, 10*time.Minute)

	srv, err := server.New(server.Deps{
		Config:    cfg,
		Log:       log,
		DB:        db,
		Redis:     rdb,
		Meili:     meili,
		Storage:   fileStorage,
		Mailer:    mail,
		LLM:       llm,
		Scheduler: scheduler,
	})
	if err != nil {
		return err
	}

	scheduler.Start()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", httpServer.Addr, "env", cfg.AppEnv)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", "error", err)
	}
	scheduler.Stop(shutdownCtx)
	log.Info("shutdown complete")
	return nil
}

// connectRedis returns nil when REDIS_URL is empty or unreachable; callers fall back to in-process
// implementations.
func connectRedis(ctx context.Context, url string, log *logger.Logger) *redis.Client {
	if url == "" {
		log.Info("REDIS_URL not set, using in-memory rate limits and challenge feed")
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("invalid REDIS_URL, continuing without redis", "error", err)
		return nil
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unreachable, continuing without redis", "error", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func newStorage(cfg *config.Config, log *logger.Logger) (storage.FileStorage, error) {
	if cfg.CloudinaryURL != "" {
		s, err := storage.NewCloudinaryStorage(cfg.CloudinaryURL, cfg.CloudinaryFolder)
		if err != nil {
			return nil, fmt.Errorf("cloudinary storage: %w", err)
		}
		return s, nil
	}
	log.Info("CLOUDINARY_URL not set, storing uploads on disk", "dir", cfg.UploadDir)
	return storage.NewLocalStorage(cfg.UploadDir, "/uploads")
}

func newLLM(ctx context.Context, cfg *config.Config, log *logger.Logger) (providers.LLMProvider, error) {
	if cfg.GeminiAPIKey == "" {
		log.Info("GEMINI_API_KEY not set, AI endpoints use the offline provider")
		return providers.NewOfflineProvider(), nil
	}
	p, err := providers.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("gemini provider: %w", err)
	}
	return p, nil
}
