package dto

import (
	"encoding/json"
	"time"

	"github.com/pooyaostvoar/chess-mater/internal/models"
)

// Client -> server event names carried on the chat websocket.
const (
	EventJoinChat    = "join-chat"
	EventMessage     = "message"
	EventMessageSeen = "message:seen"
	EventAck         = "ack"
	EventError       = "error"
)

// ChatEnvelope frames every client -> server websocket payload.
type ChatEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// JoinChatRequest subscribes the connection to the conversation with another user.
type JoinChatRequest struct {
	OtherUserID uint `json:"otherUserId" validate:"required"`
}

// SendMessageRequest carries an outbound chat message. Nonce is optional;
// when present the server acknowledges success or failure back to the sender.
type SendMessageRequest struct {
	OtherUserID uint   `json:"otherUserId" validate:"required"`
	Text        string `json:"text" validate:"required,min=1,max=4000"`
	Nonce       string `json:"nonce" validate:"omitempty,max=64"`
}

// MessageSeenRequest acknowledges that the recipient has read a message.
type MessageSeenRequest struct {
	MessageID uint `json:"messageId" validate:"required"`
}

// ServerEvent frames every server -> client websocket payload.
type ServerEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// MessagePayload is the serialized form of a message broadcast to a room.
type MessagePayload struct {
	ID        uint      `json:"id"`
	From      uint      `json:"from"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	IsSeen    bool      `json:"isSeen"`
}

// AckPayload confirms a persisted send back to the originating connection.
type AckPayload struct {
	Nonce     string `json:"nonce"`
	MessageID uint   `json:"messageId"`
}

// ErrorPayload reports a dropped event back to the originating connection.
type ErrorPayload struct {
	Nonce   string `json:"nonce,omitempty"`
	Message string `json:"message"`
}

// NewMessagePayload converts a model into its wire representation.
func NewMessagePayload(message models.Message) MessagePayload {
	return MessagePayload{
		ID:        message.ID,
		From:      message.FromUserID,
		Text:      message.Text,
		CreatedAt: message.CreatedAt,
		IsSeen:    message.IsSeen,
	}
}

// UnreadSenderResponse is one conversation partner entry in the unread summary.
type UnreadSenderResponse struct {
	UserID         uint   `json:"userId"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture"`
	UnreadCount    int64  `json:"unreadCount"`
}

// PushSubscriptionKeys holds the client encryption keys of a Web Push subscription.
type PushSubscriptionKeys struct {
	P256dh string `json:"p256dh" validate:"required,max=500"`
	Auth   string `json:"auth" validate:"required,max=500"`
}

// PushSubscribeRequest registers a browser push subscription for the session user.
type PushSubscribeRequest struct {
	Endpoint string               `json:"endpoint" validate:"required,url,max=500"`
	Keys     PushSubscriptionKeys `json:"keys" validate:"required"`
}

// PushMessagePayload is the notification body handed to the push transport.
type PushMessagePayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Data  struct {
		Link string `json:"link"`
	} `json:"data"`
}
