package contenttype

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

type ContentTypeController struct {
	Service ContentTypeService
}

func NewContentTypeController(service ContentTypeService) *ContentTypeController {
	return &ContentTypeController{Service: service}
}

// ListContentTypes godoc
func (ctrl *ContentTypeController) ListContentTypes(c *fiber.Ctx) error {
	types, err := ctrl.Service.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": types,
	})
}

// GetRelations godoc
func (ctrl *ContentTypeController) GetRelations(c *fiber.Ctx) error {
	name := c.Params("id")

	relations, err := ctrl.Service.Relations(c.Context(), name)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": relations,
	})
}

// GetSchema returns the full field-type tree, or the flat selectable-fields
// view when a comma-separated `relations` query parameter is present.
func (ctrl *ContentTypeController) GetSchema(c *fiber.Ctx) error {
	name := c.Params("id")

	if relations := c.Query("relations"); relations != "" {
		fields, err := ctrl.Service.SelectableFields(c.Context(), name, strings.Split(relations, ","))
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"data": fields,
		})
	}

	tree, err := ctrl.Service.SchemaTree(c.Context(), name)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": tree,
	})
}
