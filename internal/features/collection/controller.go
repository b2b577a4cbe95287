package collection

import (
	"github.com/gofiber/fiber/v2"
)

type CollectionController struct {
	Service CollectionService
}

func NewCollectionController(service CollectionService) *CollectionController {
	return &CollectionController{Service: service}
}

// Find godoc
func (ctrl *CollectionController) Find(c *fiber.Ctx) error {
	collections, err := ctrl.Service.Find(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": collections,
	})
}

// Create godoc
func (ctrl *CollectionController) Create(c *fiber.Ctx) error {
	var col Collection
	if err := c.BodyParser(&col); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := ctrl.Service.Create(c.Context(), &col); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Collection created successfully",
		"data":    col,
	})
}

// Update godoc
func (ctrl *CollectionController) Update(c *fiber.Ctx) error {
	id := c.Params("id")

	var col Collection
	if err := c.BodyParser(&col); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	updated, err := ctrl.Service.Update(c.Context(), id, &col)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Collection updated successfully",
		"data":    updated,
	})
}

// Delete godoc
func (ctrl *CollectionController) Delete(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := ctrl.Service.Delete(c.Context(), id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Collection deleted successfully",
	})
}

// Deploy godoc
func (ctrl *CollectionController) Deploy(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := ctrl.Service.Deploy(c.Context(), id); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Index deployment triggered",
	})
}
