package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/pooyaostvoar/chess-mater/internal/dto"
	"github.com/pooyaostvoar/chess-mater/internal/models"
	"github.com/pooyaostvoar/chess-mater/internal/repository"
	"github.com/pooyaostvoar/chess-mater/internal/utils"
)

// PushHandler registers browser push subscriptions for the session user.
type PushHandler struct {
	subscriptions repository.PushSubscriptionRepository
	validator     *validator.Validate
	logger        zerolog.Logger
}

// NewPushHandler constructs a push handler instance.
func NewPushHandler(subscriptions repository.PushSubscriptionRepository, validate *validator.Validate, logger zerolog.Logger) *PushHandler {
	return &PushHandler{
		subscriptions: subscriptions,
		validator:     validate,
		logger:        logger.With().Str("component", "push_handler").Logger(),
	}
}

// Register binds the push routes under the provided router group.
func (h *PushHandler) Register(router fiber.Router) {
	router.Post("/subscribe", h.subscribe)
}

func (h *PushHandler) subscribe(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.PushSubscribeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid subscription object")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid subscription object")
	}

	subscription := models.PushSubscription{
		UserID:   userID,
		Endpoint: payload.Endpoint,
		P256dh:   payload.Keys.P256dh,
		Auth:     payload.Keys.Auth,
	}

	if err := h.subscriptions.Create(c.UserContext(), &subscription); err != nil {
		if errors.Is(err, repository.ErrSubscriptionExists) {
			// Re-subscribing the same browser is routine, not an error.
			return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "subscription stored", nil)
		}
		h.logger.Error().Err(err).Msg("failed to store push subscription")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to store subscription")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "subscription stored", nil)
}

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
		if id, ok := v.(int); ok && id > 0 {
			return uint(id)
		}
	}
	return 0
}
