package service

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pooyaostvoar/chess-mater/internal/dto"
	"github.com/pooyaostvoar/chess-mater/internal/repository"
)

// ErrUserRequired indicates the unread summary was requested without a user.
var ErrUserRequired = errors.New("user id is required")

// UnreadService aggregates, per conversation partner, how many messages the
// user has not seen yet. Partners the user has only sent to still appear
// with a zero count so the client can render the full conversation list.
type UnreadService interface {
	UnreadSenders(ctx context.Context, userID uint) ([]dto.UnreadSenderResponse, error)
}

type unreadService struct {
	messages repository.MessageRepository
	users    repository.UserRepository
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewUnreadService constructs the unread summary query service.
func NewUnreadService(messages repository.MessageRepository, users repository.UserRepository, logger zerolog.Logger) UnreadService {
	return &unreadService{
		messages: messages,
		users:    users,
		logger:   logger.With().Str("component", "unread_service").Logger(),
		tracer:   otel.Tracer("github.com/pooyaostvoar/chess-mater/internal/service/unread"),
	}
}

func (s *unreadService) UnreadSenders(ctx context.Context, userID uint) ([]dto.UnreadSenderResponse, error) {
	if userID == 0 {
		return nil, ErrUserRequired
	}

	ctx, span := s.tracer.Start(ctx, "messages.unread_senders", trace.WithAttributes(
		attribute.Int64("user.id", int64(userID)),
	))
	defer span.End()

	incoming, err := s.messages.UnreadCountsBySender(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	partners, err := s.messages.MessagedUserIDs(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	counts := make(map[uint]int64, len(incoming))
	for _, row := range incoming {
		counts[row.UserID] = row.UnreadCount
	}
	for _, id := range partners {
		if _, ok := counts[id]; !ok {
			counts[id] = 0
		}
	}

	if len(counts) == 0 {
		return []dto.UnreadSenderResponse{}, nil
	}

	ids := make([]uint, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := make([]dto.UnreadSenderResponse, 0, len(users))
	for _, user := range users {
		result = append(result, dto.UnreadSenderResponse{
			UserID:         user.ID,
			Username:       user.Username,
			ProfilePicture: user.ProfilePicture,
			UnreadCount:    counts[user.ID],
		})
	}

	return result, nil
}
