package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"imgvault/config"
	"imgvault/pkg/cache"
	"imgvault/pkg/handlers"
	"imgvault/pkg/interfaces"
	"imgvault/pkg/metrics"
	middleware "imgvault/pkg/middlewares"
	service "imgvault/pkg/services"
	"imgvault/pkg/utils"
	"imgvault/pkg/version"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

type services struct {
	cache  *cache.TTLCache[any]
	images *service.ImageService
	queue  service.JobQueue
	worker *service.Worker
	backup interfaces.BackupServiceInterface
	gc     *service.GCService
}

// loadConfig reads the YAML file when present, otherwise the environment alone
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		logrus.WithField("path", path).Warn("Config file not found, using environment")
		return config.LoadConfigFromEnv()
	}
	return nil, err
}

// setupServices initialise et configure tous les services
func setupServices(cfg *config.Config, pathManager *utils.PathManager, log *utils.Logger) (*services, error) {
	sharedCache := cache.New[any](cache.Options{
		MaxSize:       cfg.Cache.MaxSize,
		DefaultTTL:    cfg.CacheDefaultTTL(),
		SweepInterval: cfg.CacheSweepInterval(),
		Logger:        log,
	})
	if err := metrics.RegisterCache(prometheus.DefaultRegisterer, "shared", sharedCache.Stats); err != nil {
		return nil, fmt.Errorf("register cache metrics: %w", err)
	}

	images := service.NewImageService(cfg, sharedCache, log)

	queue, err := service.NewJobQueue(cfg)
	if err != nil {
		return nil, err
	}
	if rq, ok := queue.(*service.RedisQueue); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rq.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis queue unreachable: %w", err)
		}
	}

	worker := service.NewWorker(cfg, queue, images, sharedCache, pathManager.GetImagesPath(), log)

	// keep the interface nil when backup is disabled
	var backup interfaces.BackupServiceInterface
	backupService, err := service.NewBackupService(cfg, pathManager, log)
	if err != nil {
		return nil, fmt.Errorf("initialize backup service: %w", err)
	}
	if backupService != nil {
		backup = backupService
		if cfg.Backup.OnOptimize {
			worker.WithBackup(backupService)
		}
	}

	return &services{
		cache:  sharedCache,
		images: images,
		queue:  queue,
		worker: worker,
		backup: backup,
		gc:     service.NewGCService(cfg, pathManager, log),
	}, nil
}

func newApp(cfg *config.Config, log *utils.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:       "imgvault",
		CaseSensitive: true,
		ServerHeader:  "imgvault",
		BodyLimit:     (cfg.Images.MaxUploadMB + 1) << 20,

		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			log.WithFields(logrus.Fields{
				"path":   c.Path(),
				"method": c.Method(),
				"error":  err.Error(),
			}).Error("Error handling request")
			return handlers.HTTPError(c, code, err.Error())
		},
	})

	// request logging
	app.Use(func(c *fiber.Ctx) error {
		if c.Path() == "/health" || c.Path() == "/metrics" {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		log.WithFields(logrus.Fields{
			"path":     c.Path(),
			"method":   c.Method(),
			"status":   c.Response().StatusCode(),
			"duration": time.Since(start).String(),
		}).Info("Request handled")
		return err
	})

	return app
}

func setupRoutes(app *fiber.App, cfg *config.Config, svc *services, pathManager *utils.PathManager, log *utils.Logger) {
	imageHandler := handlers.NewImageHandler(svc.images, svc.worker, pathManager, cfg, log)
	jobHandler := handlers.NewJobHandler(svc.worker, log)
	cacheHandler := handlers.NewCacheHandler(svc.cache, log)
	backupHandler := handlers.NewBackupHandler(svc.backup, log, cfg)
	gcHandler := handlers.NewGCHandler(svc.gc, log)
	configHandler := handlers.NewConfigHandler(cfg, log)

	app.Get("/health", handlers.Health)
	app.Get("/version", handlers.Version)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Static(cfg.Images.PublicPrefix, pathManager.GetImagesPath())

	if len(cfg.Auth.Users) > 0 {
		app.Use(middleware.NewAuthMiddleware(cfg, log).Authenticate())
	} else {
		log.WithFunc().Warn("No users configured, write routes are unauthenticated")
	}

	app.Get("/config", configHandler.GetConfig)

	// Images
	app.Post("/images", imageHandler.Upload)
	app.Get("/images/:base", imageHandler.GetManifest)
	app.Get("/images/:base/srcset", imageHandler.GetSrcSet)
	app.Get("/images/:base/best", imageHandler.GetBestVariant)
	app.Delete("/images/:base", imageHandler.DeleteImage)
	app.Get("/jobs/:id", jobHandler.GetJob)

	// Cache
	app.Get("/cache/stats", cacheHandler.GetStats)
	app.Delete("/cache", cacheHandler.DeletePattern)
	app.Post("/cache/clear", cacheHandler.Clear)

	// Backup
	app.Get("/backup/status", backupHandler.GetBackupStatus)
	app.Post("/backup", backupHandler.HandleBackup)
	app.Post("/restore", backupHandler.HandleRestore)

	// GC
	app.Post("/gc", gcHandler.RunGC)
	app.Get("/gc/stats", gcHandler.GetStats)
}

func main() {
	defaultPath := os.Getenv("IMGVAULT_CONFIG")
	if defaultPath == "" {
		defaultPath = "config/config.yaml"
	}
	configPath := flag.String("config", defaultPath, "path to the YAML configuration")
	flag.Parse()

	// Configuration - load first to get logging settings
	cfg, err := loadConfig(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	log := utils.NewLogger(utils.Config{
		LogLevel:  cfg.Logging.Level,
		LogFormat: cfg.Logging.Format,
		File:      cfg.Logging.File,
		Pretty:    true,
	})

	log.WithFields(logrus.Fields{
		"version": version.Version,
		"commit":  version.Commit,
	}).Info("imgvault starting")

	pathManager, err := utils.NewPathManager(cfg.Storage.Path, log)
	if err != nil {
		log.WithFunc().WithError(err).Fatal("Failed to prepare storage")
	}

	svc, err := setupServices(cfg, pathManager, log)
	if err != nil {
		log.WithFunc().WithError(err).Fatal("Failed to initialize services")
	}

	svc.cache.Start()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	svc.worker.Start(ctx)

	app := newApp(cfg, log)
	setupRoutes(app, cfg, svc, pathManager, log)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.WithField("addr", addr).Info("🚀 Starting server")
		if err := app.Listen(addr); err != nil {
			log.WithFunc().WithError(err).Error("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.WithError(err).Warn("HTTP shutdown incomplete")
	}
	if err := svc.queue.Close(); err != nil {
		log.WithError(err).Warn("Failed to close job queue")
	}
	svc.worker.Stop()
	svc.cache.Stop()

	log.Info("Stopped")
}
