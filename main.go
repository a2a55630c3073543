package main

import (
	"context"
	"log"
	"time"

	"github.com/Conceptual-Machines/thumbforge-api/internal/api"
	"github.com/Conceptual-Machines/thumbforge-api/internal/config"
	"github.com/Conceptual-Machines/thumbforge-api/internal/database"
	"github.com/Conceptual-Machines/thumbforge-api/internal/generator"
	"github.com/Conceptual-Machines/thumbforge-api/internal/history"
	"github.com/Conceptual-Machines/thumbforge-api/internal/llm"
	"github.com/Conceptual-Machines/thumbforge-api/internal/metrics"
	"github.com/Conceptual-Machines/thumbforge-api/internal/observability"
	"github.com/Conceptual-Machines/thumbforge-api/internal/prompt"
	"github.com/Conceptual-Machines/thumbforge-api/internal/services"
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

const (
	sentryFlushTimeout    = 2 * time.Second
	environmentProduction = "production"
)

// releaseVersion is set via ldflags during build
var releaseVersion = "dev"

// GetVersion returns the current release version
func GetVersion() string {
	return releaseVersion
}

func main() {
	ctx := context.Background()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()

	// Initialize Sentry
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			Release:          "thumbforge-api@" + releaseVersion,       // Use embedded release version
			EnableTracing:    true,                                     // Enable tracing for spans
			TracesSampleRate: 1.0,                                      // 100% sampling for now, adjust based on volume
			EnableLogs:       true,                                     // Enable Sentry Logs feature
			Debug:            cfg.Environment != environmentProduction, // Enable debug in non-prod
			BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
				// Filter out sensitive data
				if event.Request != nil {
					event.Request.Headers = filterSensitiveHeaders(event.Request.Headers)
				}
				return event
			},
		}); err != nil {
			log.Printf("Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s, release: %s)", cfg.Environment, releaseVersion)
			// Flush on shutdown
			defer sentry.Flush(sentryFlushTimeout)
		}
	} else {
		log.Println("⚠️  Sentry not configured (SENTRY_DSN not set)")
	}

	observability.InitializeLangfuse(ctx, cfg)

	cloudwatch, err := metrics.NewClient(ctx, cfg.Environment, cfg.CloudWatchNamespace)
	if err != nil {
		log.Printf("⚠️  CloudWatch metrics unavailable: %v", err)
	}

	// Profiles, credits and the thumbnail archive
	db, store := openStore(cfg)

	// Per-user history
	backend, err := history.NewBackend(cfg.HistoryBackend, cfg.HistoryDir, cfg.RedisURL, cfg.HistoryTTL)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to initialize history backend:", err)
	}
	historyStore := history.NewStore(backend, cfg.HistoryCap)
	log.Printf("🗂️  History backend: %s (cap %d)", historyStore.BackendName(), historyStore.Cap())

	// Generative client
	factory := llm.NewProviderFactory(cfg.GeminiAPIKey, cfg.OpenAIAPIKey, cfg.GeminiImageModel, cfg.GeminiTextModel, cfg.OpenAITextModel)
	client, err := factory.NewClient(ctx, cfg.TextProvider)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to initialize generative client:", err)
	}
	log.Printf("🎨 Generative client: %s", client.Name())

	builder, err := prompt.NewPromptBuilder()
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to load prompts:", err)
	}

	orchestrator := generator.New(client, historyStore, builder, generator.Options{
		PacingDelay: cfg.PacingDelay,
		Credits:     store,
		Archive:     store,
	})

	// Set Gin mode
	if cfg.Environment == environmentProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	router := api.SetupRouter(api.Dependencies{
		Config:     cfg,
		DB:         db,
		Store:      store,
		History:    historyStore,
		Generator:  orchestrator,
		CloudWatch: cloudwatch,
		Version:    GetVersion(),
	})

	log.Printf("🚀 Starting server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to start server:", err)
	}
}

// openStore connects to Postgres, or falls back to the in-memory guest store
// when no DATABASE_URL is configured
func openStore(cfg *config.Config) (*gorm.DB, services.Store) {
	if cfg.IsGuestMode() {
		log.Println("⚠️  DATABASE_URL not set, running with the in-memory guest store")
		return nil, services.NewGuestStore()
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to connect to database:", err)
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to run migrations:", err)
	}

	return db, services.NewDBStore(db)
}

func filterSensitiveHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string)
	sensitiveKeys := map[string]bool{
		"authorization": true,
		"cookie":        true,
		"x-api-key":     true,
	}

	for k, v := range headers {
		if sensitiveKeys[k] {
			filtered[k] = "[REDACTED]"
		} else {
			filtered[k] = v
		}
	}
	return filtered
}
