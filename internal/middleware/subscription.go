package middleware

import (
	"github.com/builtbyap/socrani-backend/internal/billing"
	"github.com/builtbyap/socrani-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// SubscriptionRequired gates paid features on the access decision derived
// from the caller's reconciled record. Denies fail closed: a missing email
// claim, a missing record, or a store failure all refuse access.
func SubscriptionRequired(gate *billing.Gate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		email, err := GetEmail(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		decision := gate.Check(c.UserContext(), email)
		if !decision.Allowed {
			return c.Status(fiber.StatusPaymentRequired).JSON(dto.ErrorResponse{
				Error: true, Message: "Active subscription required",
			})
		}
		return c.Next()
	}
}
