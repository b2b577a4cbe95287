package main

import (
	"context"
	"fmt"
	"log"

	common_api "go-indexer/internal/common/api"
	"go-indexer/internal/config"
	"go-indexer/internal/database"
	"go-indexer/internal/events"
	"go-indexer/internal/features/collection"
	"go-indexer/internal/features/contenttype"
	"go-indexer/internal/features/indexer"
	"go-indexer/internal/features/system"
	"go-indexer/internal/features/trigger"
	"go-indexer/internal/features/webhook"
	"go-indexer/internal/logger"
	"go-indexer/internal/middleware"
	"go-indexer/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	log.Printf("Registering %d routes...\n", len(routes))
	for _, route := range routes {
		route.Setup(app)
	}
	log.Println("All routes registered successfully")
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			utils.SetSecret(cfg.JWTSecret)
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Database
			database.NewDatabase,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Event bus and remote index client
			events.NewBus,
			indexer.LoadSettings,
			indexer.NewClient,

			// Initialize Repository
			collection.NewCollectionRepository,
			contenttype.NewContentTypeRepository,

			// Sync manager and trigger registry
			indexer.NewManager,
			trigger.NewRegistry,

			// Initialize Service
			collection.NewCollectionService,
			contenttype.NewContentTypeService,

			// Interface Adapters to break circular dependencies and satisfy Fx
			func(m *indexer.Manager) collection.Orchestrator { return m },
			func(m *indexer.Manager) trigger.Syncer { return m },
			func(r *trigger.Registry) collection.Triggers { return r },
			func(s indexer.Settings) collection.SettingsProvider { return s },
			func(r collection.CollectionRepository) indexer.StatusStore { return r },
			func(r collection.CollectionRepository) trigger.CollectionSource { return r },
			func(r contenttype.ContentTypeRepository) indexer.EntrySource { return r },

			// Initialize Controller
			collection.NewCollectionController,
			contenttype.NewContentTypeController,
			webhook.NewWebhookController,
			system.NewWebSocketController,

			// Initialize API Routes
			AsRoute(collection.NewCollectionApi),
			AsRoute(contenttype.NewContentTypeApi),
			AsRoute(webhook.NewWebhookApi),
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewWebSocketApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,
			func(lc fx.Lifecycle, registry *trigger.Registry) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return registry.Start(ctx)
					},
					OnStop: func(ctx context.Context) error {
						return registry.Stop()
					},
				})
			},
		),
	)

	app.Run()
}
