package webhook

import (
	"go-indexer/internal/common/api"
	"go-indexer/internal/config"
	"go-indexer/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type WebhookApi struct {
	controller *WebhookController
	config     *config.Config
}

func NewWebhookApi(controller *WebhookController, config *config.Config) api.Route {
	return &WebhookApi{
		controller: controller,
		config:     config,
	}
}

// Setup registers the lifecycle-event ingestion route
func (h *WebhookApi) Setup(app *fiber.App) {
	group := app.Group("/api/webhooks", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Post("/:entity", h.controller.Receive)
}
