package service

import (
	"context"
	"encoding/json"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"

	"github.com/pooyaostvoar/chess-mater/internal/dto"
	"github.com/pooyaostvoar/chess-mater/internal/observability"
	"github.com/pooyaostvoar/chess-mater/internal/repository"
)

// PushSender delivers a notification payload to every subscription a user holds.
// Delivery is best effort: individual failures are logged, never retried.
type PushSender interface {
	SendToUser(ctx context.Context, userID uint, payload dto.PushMessagePayload) error
}

// VapidConfig carries the Web Push VAPID credentials.
type VapidConfig struct {
	PublicKey  string
	PrivateKey string
	Subject    string
}

type webPushService struct {
	subscriptions repository.PushSubscriptionRepository
	vapid         VapidConfig
	logger        zerolog.Logger
}

// NewPushService constructs a Web Push sender backed by the subscription store.
func NewPushService(subscriptions repository.PushSubscriptionRepository, vapid VapidConfig, logger zerolog.Logger) PushSender {
	return &webPushService{
		subscriptions: subscriptions,
		vapid:         vapid,
		logger:        logger.With().Str("component", "push_service").Logger(),
	}
}

func (s *webPushService) SendToUser(ctx context.Context, userID uint, payload dto.PushMessagePayload) error {
	subs, err := s.subscriptions.ListByUser(ctx, userID)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	for _, sub := range subs {
		resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				P256dh: sub.P256dh,
				Auth:   sub.Auth,
			},
		}, &webpush.Options{
			Subscriber:      s.vapid.Subject,
			VAPIDPublicKey:  s.vapid.PublicKey,
			VAPIDPrivateKey: s.vapid.PrivateKey,
			TTL:             60,
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("endpoint", sub.Endpoint).Msg("failed to send push")
			continue
		}

		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			// The subscription is dead; forget it so future sends skip it.
			if err := s.subscriptions.Delete(ctx, sub.ID); err != nil {
				s.logger.Warn().Err(err).Uint("subscription_id", sub.ID).Msg("failed to remove expired subscription")
			} else {
				observability.PushSubscriptionsRemoved().Inc()
				s.logger.Info().Str("endpoint", sub.Endpoint).Msg("removed expired push subscription")
			}
		} else if resp.StatusCode >= http.StatusBadRequest {
			s.logger.Warn().Int("status", resp.StatusCode).Str("endpoint", sub.Endpoint).Msg("push endpoint rejected notification")
		} else {
			observability.PushesSent().Inc()
		}
		_ = resp.Body.Close()
	}

	return nil
}
