package collection

import (
	"go-indexer/internal/common/api"
	"go-indexer/internal/config"
	"go-indexer/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type CollectionApi struct {
	controller *CollectionController
	config     *config.Config
}

func NewCollectionApi(controller *CollectionController, config *config.Config) api.Route {
	return &CollectionApi{
		controller: controller,
		config:     config,
	}
}

// Setup registers all collection routes
func (h *CollectionApi) Setup(app *fiber.App) {
	group := app.Group("/api/collections", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/", h.controller.Find)
	group.Post("/", h.controller.Create)
	group.Put("/:id", h.controller.Update)
	group.Delete("/:id", h.controller.Delete)
	group.Post("/:id/deploy", h.controller.Deploy)
}
