// handlers/duel_routes.go
package handlers

import (
	"errors"
	"strconv"

	"social-rpg-system/middleware"
	"social-rpg-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupDuelRoutes(app *fiber.App, duelService *services.DuelService) {
	securedGroup := app.Group("/duels", middleware.UserContextMiddleware())

	securedGroup.Post("/challenge", func(c *fiber.Ctx) error {
		type Req struct {
			OpponentID string `json:"opponent_id" validate:"required"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if err := validate.Struct(req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "validation failed",
				"cause": err.Error(),
			})
		}

		userID := c.Locals("user_id").(string)
		duel, err := duelService.Challenge(userID, req.OpponentID)
		if err != nil {
			return duelError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(duel)
	})

	securedGroup.Post("/:duel_id/accept", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		duel, err := duelService.Accept(c.Params("duel_id"), userID)
		if err != nil {
			return duelError(c, err)
		}
		return c.JSON(duel)
	})

	securedGroup.Post("/:duel_id/decline", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		duel, err := duelService.Decline(c.Params("duel_id"), userID)
		if err != nil {
			return duelError(c, err)
		}
		return c.JSON(duel)
	})

	securedGroup.Get("/:duel_id/status", func(c *fiber.Ctx) error {
		snap, err := duelService.Status(c.Params("duel_id"))
		if err != nil {
			return duelError(c, err)
		}
		return c.JSON(snap)
	})

	// Forwards a qualifying affinity gain into the caller's active duel.
	// Normally this happens inside the submission flow; the route exists
	// for collaborators that award affinity outside of it. XP is not
	// accepted — net duel XP is derived from the start/final snapshots.
	securedGroup.Post("/record", func(c *fiber.Ctx) error {
		type Req struct {
			Warrior int64 `json:"warrior"`
			Mage    int64 `json:"mage"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		userID := c.Locals("user_id").(string)
		if err := duelService.RecordGainsForUser(userID, req.Warrior, req.Mage); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to record duel gains",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"message": "recorded"})
	})

	securedGroup.Get("/history", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		limit, _ := strconv.Atoi(c.Query("limit", "10"))
		snaps, err := duelService.History(userID, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load duel history",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"duels": snaps,
			"count": len(snaps),
		})
	})

	// Admin escape hatch
	adminGroup := app.Group("/s/admin/duels", middleware.UserContextMiddleware(), middleware.RequireAdmin())

	adminGroup.Post("/:duel_id/cancel", func(c *fiber.Ctx) error {
		duel, err := duelService.Cancel(c.Params("duel_id"))
		if err != nil {
			return duelError(c, err)
		}
		return c.JSON(duel)
	})
}

// duelError maps transition errors to actionable responses; the record is
// untouched whenever one of these comes back.
func duelError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrDuelNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrSelfChallenge),
		errors.Is(err, services.ErrBotOpponent),
		errors.Is(err, services.ErrDuelConflict),
		errors.Is(err, services.ErrDuelNotPending),
		errors.Is(err, services.ErrDuelNotActive),
		errors.Is(err, services.ErrAcceptWindowClosed),
		errors.Is(err, services.ErrDuelStillRunning):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotOpponent),
		errors.Is(err, services.ErrNotParticipant):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrChallengeCooldown):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "duel operation failed",
		"cause": err.Error(),
	})
}
