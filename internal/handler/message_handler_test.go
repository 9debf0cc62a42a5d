package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pooyaostvoar/chess-mater/internal/dto"
	"github.com/pooyaostvoar/chess-mater/internal/handler"
	"github.com/pooyaostvoar/chess-mater/internal/service"
	"github.com/pooyaostvoar/chess-mater/internal/utils"
)

type stubUnreadService struct {
	lastUserID uint
	summary    []dto.UnreadSenderResponse
	err        error
}

func (s *stubUnreadService) UnreadSenders(_ context.Context, userID uint) ([]dto.UnreadSenderResponse, error) {
	s.lastUserID = userID
	if s.err != nil {
		return nil, s.err
	}
	return s.summary, nil
}

func setupMessageApp(unread service.UnreadService) *fiber.App {
	app := fiber.New()
	h := handler.NewMessageHandler(unread, zerolog.Nop())
	h.Register(app.Group("/api/messages"))
	return app
}

func decodeResponse(t *testing.T, body io.Reader) utils.APIResponse {
	t.Helper()
	var response utils.APIResponse
	require.NoError(t, json.NewDecoder(body).Decode(&response))
	return response
}

func TestUnreadSendersRequiresUserIDParam(t *testing.T) {
	app := setupMessageApp(&stubUnreadService{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/messages/unread-senders", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	response := decodeResponse(t, resp.Body)
	require.False(t, response.Success)
	require.Equal(t, "userId is required", response.Message)
}

func TestUnreadSendersRejectsInvalidUserID(t *testing.T) {
	app := setupMessageApp(&stubUnreadService{})

	for _, raw := range []string{"abc", "0", "-3"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/messages/unread-senders?userId="+raw, nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "userId=%s", raw)
	}
}

func TestUnreadSendersReturnsSummary(t *testing.T) {
	unread := &stubUnreadService{summary: []dto.UnreadSenderResponse{
		{UserID: 2, Username: "magnus", UnreadCount: 3},
		{UserID: 5, Username: "fabiano", UnreadCount: 0},
	}}
	app := setupMessageApp(unread)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/messages/unread-senders?userId=1", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(1), unread.lastUserID)

	response := decodeResponse(t, resp.Body)
	require.True(t, response.Success)

	encoded, err := json.Marshal(response.Data)
	require.NoError(t, err)
	var summary []dto.UnreadSenderResponse
	require.NoError(t, json.Unmarshal(encoded, &summary))
	require.Equal(t, unread.summary, summary)
}

func TestUnreadSendersServiceFailure(t *testing.T) {
	app := setupMessageApp(&stubUnreadService{err: errors.New("db down")})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/messages/unread-senders?userId=1", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
