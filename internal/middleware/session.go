package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/pooyaostvoar/chess-mater/internal/utils"
)

// ErrNoSession indicates the credential did not resolve to a logged-in user.
var ErrNoSession = errors.New("no active session")

// SessionResolver maps a session credential to a user identity. The same
// resolver is injected into the HTTP router and the websocket upgrade path,
// so a session invalidated over HTTP is rejected on the next socket connect.
type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string) (uint, error)
}

// RedisSessionResolver reads session records written by the web login flow
// from redis. Records are JSON with the authenticated user under
// passport.user, the shape connect-redis stores.
type RedisSessionResolver struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionResolver constructs a resolver over the shared session store.
func NewRedisSessionResolver(client *redis.Client, prefix string) *RedisSessionResolver {
	return &RedisSessionResolver{client: client, prefix: prefix}
}

type sessionRecord struct {
	Passport struct {
		User uint `json:"user"`
	} `json:"passport"`
}

// Resolve looks the session up and returns the bound user ID.
func (r *RedisSessionResolver) Resolve(ctx context.Context, sessionID string) (uint, error) {
	sessionID = normalizeSessionID(sessionID)
	if sessionID == "" {
		return 0, ErrNoSession
	}

	raw, err := r.client.Get(ctx, r.prefix+sessionID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNoSession
		}
		return 0, fmt.Errorf("session lookup failed: %w", err)
	}

	var record sessionRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return 0, fmt.Errorf("malformed session record: %w", err)
	}

	if record.Passport.User == 0 {
		return 0, ErrNoSession
	}

	return record.Passport.User, nil
}

// normalizeSessionID strips the "s:<id>.<signature>" wrapping signed cookies carry.
func normalizeSessionID(value string) string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "s:") {
		value = value[2:]
		if dot := strings.LastIndex(value, "."); dot > 0 {
			value = value[:dot]
		}
	}
	return value
}

// SessionProtected guards a route group with session-cookie authentication.
// On success the resolved user ID is stored in request locals under user_id.
func SessionProtected(resolver SessionResolver, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cookie := c.Cookies(cookieName)
		if cookie == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}

		ctx := c.UserContext()
		if ctx == nil {
			ctx = context.Background()
		}

		userID, err := resolver.Resolve(ctx, cookie)
		if err != nil {
			if errors.Is(err, ErrNoSession) {
				return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
			}
			return utils.SendError(c, fiber.StatusInternalServerError, "session resolution failed")
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}
