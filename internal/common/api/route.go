package api

import "github.com/gofiber/fiber/v2"

// Route is implemented by every feature's API wiring so the fx app can
// collect them into one group and register them against the Fiber app.
type Route interface {
	Setup(app *fiber.App)
}
