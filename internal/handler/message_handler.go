package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/pooyaostvoar/chess-mater/internal/middleware"
	"github.com/pooyaostvoar/chess-mater/internal/service"
	"github.com/pooyaostvoar/chess-mater/internal/utils"
)

// MessageHandler exposes the read-side message queries outside the socket path.
type MessageHandler struct {
	unread service.UnreadService
	logger zerolog.Logger
}

// NewMessageHandler constructs a message handler instance.
func NewMessageHandler(unread service.UnreadService, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		unread: unread,
		logger: logger.With().Str("component", "message_handler").Logger(),
	}
}

// Register binds the message routes under the provided router group.
func (h *MessageHandler) Register(router fiber.Router) {
	router.Get("/unread-senders", h.unreadSenders)
}

func (h *MessageHandler) unreadSenders(c *fiber.Ctx) error {
	raw := strings.TrimSpace(c.Query("userId"))
	if raw == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "userId is required")
	}

	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid userId")
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))

	senders, err := h.unread.UnreadSenders(ctx, uint(parsed))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to aggregate unread senders")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch unread senders")
	}

	return utils.SendSuccess(c, "unread senders", senders)
}
