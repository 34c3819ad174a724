package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberLogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"tubescribe/config"
	"tubescribe/handlers"
	"tubescribe/logger"
	"tubescribe/media"
	"tubescribe/progress"
	"tubescribe/repository/sqlite"
	"tubescribe/services/summary"
	"tubescribe/services/video"
	"tubescribe/transcription"
	"tubescribe/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog, err := logger.New(cfg.LogDir, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	db, err := sqlite.InitDB(cfg.Database.Path, sqlite.Config{
		MaxConnections:     cfg.Database.MaxConnections,
		MaxIdleConnections: cfg.Database.MaxIdleConnections,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	videoRepo, err := sqlite.NewVideoRepository(ctx, db)
	if err != nil {
		log.Fatalf("Failed to initialize video repository: %v", err)
	}
	defer videoRepo.Close()

	categoryRepo, err := sqlite.NewCategoryRepository(ctx, db, videoRepo)
	if err != nil {
		log.Fatalf("Failed to initialize category repository: %v", err)
	}

	// Progress broadcasting and the in-flight task registry
	hub := progress.NewHub()
	registry := progress.NewRegistry(hub)

	// Media pipeline components
	fetchLimiter := rate.NewLimiter(
		rate.Every(time.Minute/time.Duration(cfg.Pipeline.FetchesPerMinute)),
		cfg.Pipeline.FetchBurst,
	)
	fetcher := media.NewYTDLPFetcher(cfg.DownloadDir, fetchLimiter, appLog)
	audioValidator := media.NewValidator(appLog)

	whisperEngine := transcription.NewWhisperEngine(cfg.Whisper.Binary, cfg.Whisper.Model, appLog)
	transcriber := transcription.NewService(
		whisperEngine,
		audioValidator,
		cfg.TranscriptionsDir,
		cfg.Whisper.Retries,
		appLog,
	)

	generator := summary.NewOpenAIGenerator(cfg.Ollama)
	summarizer := summary.NewService(generator, cfg.Ollama, cfg.Prompts, appLog)

	videoService := video.NewService(
		videoRepo,
		categoryRepo,
		fetcher,
		transcriber,
		summarizer,
		validation.NewValidator(),
		registry,
		video.Config{
			ProcessTimeout: cfg.Pipeline.ProcessTimeout,
			MaxConcurrent:  cfg.Pipeline.MaxConcurrent,
		},
		appLog,
	)

	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		IdleTimeout:           cfg.IdleTimeout,
		ErrorHandler:          handlers.NewErrorHandler(appLog),
		DisableStartupMessage: !cfg.Debug,
		AppName:               "tubescribe " + cfg.Version,
	})

	if err := setupMiddleware(app, cfg); err != nil {
		log.Fatalf("Failed to set up middleware: %v", err)
	}

	videoHandler := handlers.NewVideoHandler(videoService, categoryRepo)
	categoryHandler := handlers.NewCategoryHandler(categoryRepo)
	wsHandler := handlers.NewWSHandler(hub, appLog)

	api := app.Group("/api")
	api.Get("/videos", videoHandler.List)
	api.Post("/videos", videoHandler.Submit)
	api.Get("/videos/:id", videoHandler.Get)
	api.Delete("/videos/:id", videoHandler.Delete)
	api.Get("/categories", categoryHandler.List)
	api.Post("/categories", categoryHandler.Create)
	api.Delete("/categories/:id", categoryHandler.Delete)
	api.Get("/stats", videoHandler.Stats)

	app.Use("/ws", wsHandler.Upgrade)
	app.Get("/ws", websocket.New(wsHandler.Serve))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Static("/", "./static")

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-shutdownChan
		appLog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			appLog.WithError(err).Error("server shutdown error")
		}
	}()

	serverAddr := ":" + cfg.ServerPort
	if cfg.Debug {
		log.Printf("Server starting on http://localhost%s", serverAddr)
	}

	if err := app.Listen(serverAddr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func setupMiddleware(app *fiber.App, cfg *config.Config) error {
	if cfg.Middleware.EnableRecover {
		app.Use(recover.New(recover.Config{
			EnableStackTrace: cfg.Debug,
		}))
	}

	if cfg.Middleware.EnableRequestID {
		app.Use(requestid.New(requestid.Config{
			Header: "X-Request-ID",
			Generator: func() string {
				return uuid.New().String()
			},
		}))
	}

	if cfg.Middleware.EnableLogger {
		logConfig, err := logger.NewFiberConfig(cfg.LogDir)
		if err != nil {
			return err
		}
		app.Use(fiberLogger.New(*logConfig))
	}

	if cfg.Middleware.EnableCORS && cfg.CORS.Enabled {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(cfg.CORS.AllowedOrigins, ","),
			AllowMethods:     strings.Join(cfg.CORS.AllowedMethods, ","),
			AllowHeaders:     strings.Join(cfg.CORS.AllowedHeaders, ","),
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           cfg.CORS.MaxAge,
		}))
	}

	if cfg.Middleware.EnableRateLimit && cfg.RateLimit.Enabled {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit.RequestsPerMinute,
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"success": false,
					"error":   "Rate limit exceeded",
				})
			},
		}))
	}

	if cfg.Middleware.EnableCompress {
		app.Use(compress.New(compress.Config{
			Level: compress.LevelDefault,
		}))
	}

	if cfg.Middleware.EnableETag {
		app.Use(etag.New())
	}

	return nil
}
