package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pooyaostvoar/chess-mater/internal/dto"
	"github.com/pooyaostvoar/chess-mater/internal/models"
	"github.com/pooyaostvoar/chess-mater/internal/observability"
	"github.com/pooyaostvoar/chess-mater/internal/repository"
)

const pushFireTimeout = 10 * time.Second

// PushScheduler debounces push notifications for new messages. Each scheduled
// message gets one timer; when it fires the scheduler re-reads the message
// from the store and only pushes if the recipient still has not seen it. The
// store is the sole authority on seen state, which makes the cancel-vs-fire
// race safe: whichever side loses finds the work already done and does nothing.
type PushScheduler struct {
	mu       sync.Mutex
	pending  map[uint]*time.Timer
	stopped  bool
	delay    time.Duration
	messages repository.MessageRepository
	pusher   PushSender
	linkBase string
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewPushScheduler constructs a scheduler with the configured debounce delay.
func NewPushScheduler(messages repository.MessageRepository, pusher PushSender, delay time.Duration, linkBase string, logger zerolog.Logger) *PushScheduler {
	return &PushScheduler{
		pending:  make(map[uint]*time.Timer),
		delay:    delay,
		messages: messages,
		pusher:   pusher,
		linkBase: linkBase,
		logger:   logger.With().Str("component", "push_scheduler").Logger(),
		tracer:   otel.Tracer("github.com/pooyaostvoar/chess-mater/internal/service/push"),
	}
}

// Schedule arms the debounce timer for a freshly persisted message.
func (s *PushScheduler) Schedule(message models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if existing, ok := s.pending[message.ID]; ok {
		existing.Stop()
	}

	id := message.ID
	s.pending[id] = time.AfterFunc(s.delay, func() {
		s.fire(id)
	})
}

// Cancel stops a pending timer. Unknown or already-fired IDs are no-ops.
func (s *PushScheduler) Cancel(messageID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.pending[messageID]; ok {
		timer.Stop()
		delete(s.pending, messageID)
		observability.PushesCancelled().Inc()
	}
}

// Stop discards every pending timer. Scheduled windows are lost on restart;
// that is accepted, a missed push is cheaper than a duplicate one.
func (s *PushScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for id, timer := range s.pending {
		timer.Stop()
		delete(s.pending, id)
	}
}

func (s *PushScheduler) fire(messageID uint) {
	s.mu.Lock()
	delete(s.pending, messageID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), pushFireTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "push.debounce_fire", trace.WithAttributes(
		attribute.Int64("message.id", int64(messageID)),
	))
	defer span.End()

	message, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		// Deleted or never existed; nothing to notify about.
		return
	}

	if message.IsSeen {
		observability.PushesSuppressed().Inc()
		return
	}

	payload := dto.PushMessagePayload{
		Title: "New message",
		Body:  message.Text,
	}
	payload.Data.Link = fmt.Sprintf("%s/chat/%d", s.linkBase, message.FromUserID)

	if err := s.pusher.SendToUser(ctx, message.ToUserID, payload); err != nil {
		span.RecordError(err)
		s.logger.Warn().Err(err).Uint("message_id", messageID).Msg("failed to deliver push notification")
	}
}
