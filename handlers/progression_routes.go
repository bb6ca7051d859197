// handlers/progression_routes.go
package handlers

import (
	"errors"
	"strconv"

	"social-rpg-system/middleware"
	"social-rpg-system/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

func SetupProgressionRoutes(app *fiber.App, progressionService *services.ProgressionService) {
	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	// Submit reps: raw field map from the command/modal layer. Unknown
	// fields are dropped with warnings; only an empty valid set rejects
	// the submission.
	securedGroup.Post("/user/reps", func(c *fiber.Ctx) error {
		type Req struct {
			Stats map[string]string `json:"stats"`
			Day   string            `json:"day,omitempty"` // optional YYYY-MM-DD override
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		userID := c.Locals("user_id").(string)
		username, _ := c.Locals("username").(string)

		result, err := progressionService.SubmitReps(userID, username, req.Stats, req.Day)
		if errors.Is(err, services.ErrNoValidStats) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		}
		if err != nil {
			// Stats are committed; only the award failed and may be retried
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success":         false,
				"error":           "XP award failed, stats were recorded",
				"cause":           err.Error(),
				"validated_stats": result.ValidatedStats,
				"day":             result.Day,
			})
		}

		return c.JSON(fiber.Map{
			"success":         true,
			"day":             result.Day,
			"validated_stats": result.ValidatedStats,
			"xp_awarded":      result.XPAwarded,
			"affinities":      result.Affinities,
			"warnings":        result.Warnings,
		})
	})

	securedGroup.Get("/user/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		snap, err := progressionService.Snapshot(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load progression",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"id":               snap.Record.ID,
			"xp":               snap.Record.TotalXP,
			"warrior_affinity": snap.Record.WarriorAffinity,
			"mage_affinity":    snap.Record.MageAffinity,
			"templar_affinity": snap.Record.TemplarAffinity,
			"level":            snap.Level.Level,
			"class_name":       snap.Level.ClassName,
			"progress":         snap.Level.Progress,
			"archetype":        snap.Archetype,
		})
	})

	securedGroup.Get("/user/progress/history", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		days, _ := strconv.Atoi(c.Query("days", "7"))
		stats, err := progressionService.DailyHistory(userID, days)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get history",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"days":  days,
			"stats": stats,
		})
	})

	securedGroup.Get("/leaderboard", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "10"))
		entries, err := progressionService.Leaderboard(limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load leaderboard",
				"cause": err.Error(),
			})
		}

		// Empty board must serialize as [], not null
		response := make([]fiber.Map, 0, len(entries))
		for _, e := range entries {
			response = append(response, fiber.Map{
				"user_id":   e.Record.ExternalUserID,
				"username":  e.Record.Username,
				"xp":        e.Record.TotalXP,
				"level":     e.Level.Level,
				"class":     e.Level.ClassName,
				"archetype": e.Archetype,
			})
		}
		return c.JSON(response)
	})

	// Admin endpoints
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireAdmin())

	adminGroup.Post("/xp/adjust", func(c *fiber.Ctx) error {
		type Req struct {
			UserID  string `json:"user_id" validate:"required"`
			XP      int64  `json:"xp"`
			Warrior int64  `json:"warrior"`
			Mage    int64  `json:"mage"`
			Templar int64  `json:"templar"`
			Reason  string `json:"reason" validate:"required,max=255"`
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

		if err := progressionService.AdminAdjust(req.UserID, req.XP, req.Warrior, req.Mage, req.Templar, req.Reason); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "adjustment failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"message": "adjustment applied",
			"user_id": req.UserID,
		})
	})

	adminGroup.Post("/user/reset", func(c *fiber.Ctx) error {
		type Req struct {
			UserID string `json:"user_id" validate:"required"`
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

		if err := progressionService.AdminReset(req.UserID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "reset failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"message": "progression reset",
			"user_id": req.UserID,
		})
	})
}
