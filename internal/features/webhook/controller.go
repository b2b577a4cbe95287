package webhook

import (
	"go-indexer/internal/events"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type lifecycleEvent struct {
	Action events.Action  `json:"action"`
	Record map[string]any `json:"record"`
}

// WebhookController ingests CMS lifecycle notifications and fans them out to
// the trigger registry through the event bus.
type WebhookController struct {
	bus *events.Bus
	log *zap.Logger
}

func NewWebhookController(bus *events.Bus, log *zap.Logger) *WebhookController {
	return &WebhookController{bus: bus, log: log}
}

// Receive godoc
func (ctrl *WebhookController) Receive(c *fiber.Ctx) error {
	entity := c.Params("entity")

	var ev lifecycleEvent
	if err := c.BodyParser(&ev); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	switch ev.Action {
	case events.ActionInsert, events.ActionUpdate, events.ActionDelete:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "action must be one of insert, update, delete",
		})
	}

	ctrl.log.Debug("lifecycle event received",
		zap.String("entity", entity), zap.String("action", string(ev.Action)))

	ctrl.bus.Publish(events.Event{
		Entity: entity,
		Action: ev.Action,
		Record: ev.Record,
	})

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Event accepted",
	})
}
