package contenttype

import (
	"go-indexer/internal/common/api"
	"go-indexer/internal/config"
	"go-indexer/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ContentTypeApi struct {
	controller *ContentTypeController
	config     *config.Config
}

func NewContentTypeApi(controller *ContentTypeController, config *config.Config) api.Route {
	return &ContentTypeApi{
		controller: controller,
		config:     config,
	}
}

// Setup registers all content-type routes
func (h *ContentTypeApi) Setup(app *fiber.App) {
	group := app.Group("/api/content-types", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/", h.controller.ListContentTypes)
	group.Get("/:id/relations", h.controller.GetRelations)
	group.Get("/:id/schema", h.controller.GetSchema)
}
