package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pooyaostvoar/chess-mater/internal/dto"
	"github.com/pooyaostvoar/chess-mater/internal/models"
	"github.com/pooyaostvoar/chess-mater/internal/observability"
	"github.com/pooyaostvoar/chess-mater/internal/repository"
)

const chatSendBufferSize = 32

// ErrEmptyMessage indicates a send whose text is empty after sanitization.
var ErrEmptyMessage = errors.New("message text is empty")

// Conn is the subset of the websocket connection the gateway uses.
type Conn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// ChatConnectionOptions wraps the identity resolved during the HTTP upgrade.
type ChatConnectionOptions struct {
	UserID        uint
	CorrelationID string
	Context       context.Context
}

// ChatService runs the realtime messaging gateway: it routes join/send/seen
// events from authenticated connections, fans broadcasts out per room, and
// hands new messages to the push scheduler.
type ChatService interface {
	ServeConnection(conn Conn, opts ChatConnectionOptions)
	Start(ctx context.Context)
}

type chatService struct {
	messages     repository.MessageRepository
	scheduler    *PushScheduler
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	validator    *validator.Validate
	sanitizer    *bluemonday.Policy
	logger       zerolog.Logger
	tracer       trace.Tracer
	hub          *chatHub
	historyLimit int
	nodeID       string
}

// chatHub tracks which connections are joined to which rooms. Joins are
// additive for the lifetime of a connection; there is no leave event.
type chatHub struct {
	mu    sync.RWMutex
	rooms map[string]map[*chatClient]struct{}
	log   zerolog.Logger
}

type chatClient struct {
	conn    Conn
	send    chan dto.ServerEvent
	options ChatConnectionOptions
	service *chatService
	closed  chan struct{}
	once    sync.Once
	rooms   map[string]struct{} // guarded by hub.mu
	baseCtx context.Context
}

// chatFanoutEvent mirrors a local broadcast to sibling nodes.
type chatFanoutEvent struct {
	Source  string             `json:"source"`
	Room    string             `json:"room"`
	Message dto.MessagePayload `json:"message"`
	SentAt  time.Time          `json:"sent_at"`
}

// NewChatService creates the websocket gateway. The redis client and NATS
// connection are optional; when nil the gateway stays process-local.
func NewChatService(messages repository.MessageRepository, scheduler *PushScheduler, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, validate *validator.Validate, historyLimit int, logger zerolog.Logger) ChatService {
	if historyLimit <= 0 {
		historyLimit = 100
	}

	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":chat"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".chat"
	}

	return &chatService{
		messages:     messages,
		scheduler:    scheduler,
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		validator:    validate,
		sanitizer:    bluemonday.StrictPolicy(),
		logger:       logger.With().Str("component", "chat_service").Logger(),
		tracer:       otel.Tracer("github.com/pooyaostvoar/chess-mater/internal/service/chat"),
		hub: &chatHub{
			rooms: make(map[string]map[*chatClient]struct{}),
			log:   logger.With().Str("component", "chat_hub").Logger(),
		},
		historyLimit: historyLimit,
		nodeID:       uuid.NewString(),
	}
}

func (s *chatService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *chatService) ServeConnection(conn Conn, opts ChatConnectionOptions) {
	baseCtx := opts.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	client := &chatClient{
		conn:    conn,
		send:    make(chan dto.ServerEvent, chatSendBufferSize),
		options: opts,
		service: s,
		closed:  make(chan struct{}),
		rooms:   make(map[string]struct{}),
		baseCtx: baseCtx,
	}

	observability.ChatConnectionsActive().Inc()

	go client.writer()
	client.reader()
}

func (s *chatService) handleJoin(ctx context.Context, client *chatClient, raw json.RawMessage) {
	var payload dto.JoinChatRequest
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.logger.Warn().Err(err).Msg("malformed join-chat payload")
		return
	}
	if err := s.validator.Struct(payload); err != nil {
		s.logger.Warn().Err(err).Msg("invalid join-chat payload")
		return
	}

	room := RoomKey(client.options.UserID, payload.OtherUserID)
	s.hub.join(client, room)

	history, err := s.messages.ListBetween(ctx, client.options.UserID, payload.OtherUserID, s.historyLimit)
	if err != nil {
		s.logger.Error().Err(err).Str("room", room).Msg("failed to load chat history")
		return
	}

	// Replay goes to the joining connection only, oldest first.
	for _, message := range history {
		client.enqueue(dto.ServerEvent{Event: dto.EventMessage, Data: dto.NewMessagePayload(message)})
	}
}

func (s *chatService) handleSend(ctx context.Context, client *chatClient, raw json.RawMessage) {
	var payload dto.SendMessageRequest
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.logger.Warn().Err(err).Msg("malformed message payload")
		return
	}

	message, err := s.processSend(ctx, client, payload)
	if err != nil {
		s.logger.Warn().Err(err).Uint("from", client.options.UserID).Msg("failed to process chat message")
		if payload.Nonce != "" {
			client.enqueue(dto.ServerEvent{Event: dto.EventError, Data: dto.ErrorPayload{Nonce: payload.Nonce, Message: err.Error()}})
		}
		return
	}

	if payload.Nonce != "" {
		client.enqueue(dto.ServerEvent{Event: dto.EventAck, Data: dto.AckPayload{Nonce: payload.Nonce, MessageID: message.ID}})
	}
}

func (s *chatService) processSend(ctx context.Context, client *chatClient, payload dto.SendMessageRequest) (models.Message, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.Message{}, err
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(payload.Text))
	if clean == "" {
		return models.Message{}, ErrEmptyMessage
	}

	room := RoomKey(client.options.UserID, payload.OtherUserID)

	attrs := []attribute.KeyValue{
		attribute.String("chat.room", room),
		attribute.Int64("chat.from", int64(client.options.UserID)),
	}
	if client.options.CorrelationID != "" {
		attrs = append(attrs, attribute.String("correlation_id", client.options.CorrelationID))
	}

	spanCtx, span := s.tracer.Start(ctx, "chat.send", trace.WithAttributes(attrs...))
	defer span.End()

	model := models.Message{
		FromUserID: client.options.UserID,
		ToUserID:   payload.OtherUserID,
		Text:       clean,
	}

	if err := s.messages.Create(spanCtx, &model); err != nil {
		span.RecordError(err)
		return models.Message{}, err
	}

	wire := dto.NewMessagePayload(model)
	s.hub.broadcast(room, dto.ServerEvent{Event: dto.EventMessage, Data: wire})
	if err := s.publish(spanCtx, room, wire); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish chat fan-out event")
	}

	s.scheduler.Schedule(model)
	observability.ChatMessagesSent().Inc()

	return model, nil
}

func (s *chatService) handleSeen(ctx context.Context, client *chatClient, raw json.RawMessage) {
	var payload dto.MessageSeenRequest
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.logger.Warn().Err(err).Msg("malformed message:seen payload")
		return
	}
	if err := s.validator.Struct(payload); err != nil {
		s.logger.Warn().Err(err).Msg("invalid message:seen payload")
		return
	}

	if err := s.messages.MarkSeen(ctx, payload.MessageID); err != nil {
		s.logger.Error().Err(err).Uint("message_id", payload.MessageID).Msg("failed to mark message seen")
		return
	}

	s.scheduler.Cancel(payload.MessageID)
}

func (s *chatService) publish(ctx context.Context, room string, message dto.MessagePayload) error {
	if (s.redis == nil || s.redisChannel == "") && (s.nats == nil || s.natsSubject == "") {
		return nil
	}

	event := chatFanoutEvent{
		Source:  s.nodeID,
		Room:    room,
		Message: message,
		SentAt:  time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *chatService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("chat redis subscription closed")
			return
		}
		s.handleFanout([]byte(msg.Payload))
	}
}

func (s *chatService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "chess-mater-chat", func(msg *nats.Msg) {
		s.handleFanout(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats chat subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain chat nats subscription")
		}
	}()
}

func (s *chatService) handleFanout(data []byte) {
	var event chatFanoutEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid chat fan-out event")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	s.hub.broadcast(event.Room, dto.ServerEvent{Event: dto.EventMessage, Data: event.Message})
}

func (h *chatHub) join(client *chatClient, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, joined := client.rooms[room]; joined {
		return
	}

	if _, exists := h.rooms[room]; !exists {
		h.rooms[room] = make(map[*chatClient]struct{})
	}
	h.rooms[room][client] = struct{}{}
	client.rooms[room] = struct{}{}
	h.log.Debug().Str("room", room).Uint("user_id", client.options.UserID).Msg("chat client joined room")
}

func (h *chatHub) unregister(client *chatClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room := range client.rooms {
		if clients, ok := h.rooms[room]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	h.log.Debug().Uint("user_id", client.options.UserID).Msg("chat client disconnected")
}

func (h *chatHub) broadcast(room string, event dto.ServerEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[room] {
		select {
		case client.send <- event:
		default:
			h.log.Warn().Str("room", room).Uint("user_id", client.options.UserID).Msg("dropping chat event for slow client")
		}
	}
}

func (c *chatClient) enqueue(event dto.ServerEvent) {
	select {
	case <-c.closed:
		return
	default:
	}

	select {
	case c.send <- event:
	default:
		c.service.logger.Warn().Uint("user_id", c.options.UserID).Msg("send queue full, dropping event")
	}
}

func (c *chatClient) reader() {
	defer c.close()

	ctx := c.baseCtx

	for {
		var envelope dto.ChatEnvelope
		if err := c.conn.ReadJSON(&envelope); err != nil {
			c.service.logger.Debug().Err(err).Msg("chat read loop ended")
			return
		}

		switch envelope.Event {
		case dto.EventJoinChat:
			c.service.handleJoin(ctx, c, envelope.Data)
		case dto.EventMessage:
			c.service.handleSend(ctx, c, envelope.Data)
		case dto.EventMessageSeen:
			c.service.handleSeen(ctx, c, envelope.Data)
		default:
			c.service.logger.Warn().Str("event", envelope.Event).Msg("unknown chat event dropped")
		}
	}
}

func (c *chatClient) writer() {
	defer c.close()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.service.logger.Debug().Err(err).Msg("chat write loop terminated")
				return
			}
		case <-time.After(30 * time.Second):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("chat ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *chatClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.service.hub.unregister(c)
		_ = c.conn.Close()
		observability.ChatConnectionsActive().Dec()
	})
}
