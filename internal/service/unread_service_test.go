package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pooyaostvoar/chess-mater/internal/dto"
	"github.com/pooyaostvoar/chess-mater/internal/models"
	"github.com/pooyaostvoar/chess-mater/internal/repository"
)

type stubUserRepo struct {
	users map[uint]models.User
}

func (s *stubUserRepo) FindByIDs(_ context.Context, ids []uint) ([]models.User, error) {
	var out []models.User
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			out = append(out, user)
		}
	}
	return out, nil
}

func TestUnreadSendersMergesCountsWithZeroCountPartners(t *testing.T) {
	messages := newStubMessageRepo()
	messages.unreadCounts = []repository.UnreadSenderCount{
		{UserID: 2, UnreadCount: 2},
		{UserID: 3, UnreadCount: 1},
		{UserID: 4, UnreadCount: 0},
	}
	messages.partners = []uint{2, 5}

	users := &stubUserRepo{users: map[uint]models.User{
		2: {ID: 2, Username: "magnus", ProfilePicture: "https://cdn.example/magnus.png"},
		3: {ID: 3, Username: "hikaru"},
		4: {ID: 4, Username: "judit"},
		5: {ID: 5, Username: "fabiano"},
	}}

	svc := NewUnreadService(messages, users, zerolog.Nop())

	summary, err := svc.UnreadSenders(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, []dto.UnreadSenderResponse{
		{UserID: 2, Username: "magnus", ProfilePicture: "https://cdn.example/magnus.png", UnreadCount: 2},
		{UserID: 3, Username: "hikaru", UnreadCount: 1},
		{UserID: 4, Username: "judit", UnreadCount: 0},
		{UserID: 5, Username: "fabiano", UnreadCount: 0},
	}, summary)
}

func TestUnreadSendersEmptyForUserWithNoConversations(t *testing.T) {
	svc := NewUnreadService(newStubMessageRepo(), &stubUserRepo{}, zerolog.Nop())

	summary, err := svc.UnreadSenders(context.Background(), 1)
	require.NoError(t, err)
	require.Empty(t, summary)
}

func TestUnreadSendersRequiresUser(t *testing.T) {
	svc := NewUnreadService(newStubMessageRepo(), &stubUserRepo{}, zerolog.Nop())

	_, err := svc.UnreadSenders(context.Background(), 0)
	require.ErrorIs(t, err, ErrUserRequired)
}
