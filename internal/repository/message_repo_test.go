package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pooyaostvoar/chess-mater/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Message{}, &models.PushSubscription{}, &models.User{}))
	return db
}

func TestMessageRepositoryListBetweenReturnsOldestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	first := models.Message{FromUserID: 1, ToUserID: 2, Text: "first"}
	second := models.Message{FromUserID: 2, ToUserID: 1, Text: "second"}
	third := models.Message{FromUserID: 1, ToUserID: 2, Text: "third"}
	require.NoError(t, repo.Create(ctx, &first))
	require.NoError(t, repo.Create(ctx, &second))
	require.NoError(t, repo.Create(ctx, &third))

	// Noise from an unrelated pair must not leak in.
	require.NoError(t, repo.Create(ctx, &models.Message{FromUserID: 1, ToUserID: 9, Text: "other"}))

	messages, err := repo.ListBetween(ctx, 1, 2, 100)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	require.Equal(t, []string{"first", "second", "third"}, []string{messages[0].Text, messages[1].Text, messages[2].Text})

	// Same result regardless of which participant is passed first.
	flipped, err := repo.ListBetween(ctx, 2, 1, 100)
	require.NoError(t, err)
	require.Equal(t, messages, flipped)
}

func TestMessageRepositoryListBetweenKeepsMostRecent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, &models.Message{FromUserID: 1, ToUserID: 2, Text: "m"}))
	}

	messages, err := repo.ListBetween(ctx, 1, 2, 3)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	// The 3 newest by id, still ascending.
	require.Equal(t, messages[0].ID+1, messages[1].ID)
	require.Equal(t, messages[1].ID+1, messages[2].ID)
}

func TestMessageRepositoryMarkSeenIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	message := models.Message{FromUserID: 1, ToUserID: 2, Text: "hello"}
	require.NoError(t, repo.Create(ctx, &message))
	require.False(t, message.IsSeen)

	require.NoError(t, repo.MarkSeen(ctx, message.ID))
	require.NoError(t, repo.MarkSeen(ctx, message.ID))

	stored, err := repo.FindByID(ctx, message.ID)
	require.NoError(t, err)
	require.True(t, stored.IsSeen)
}

func TestMessageRepositoryMarkSeenMissingMessageIsNoOp(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)

	require.NoError(t, repo.MarkSeen(context.Background(), 9999))
}

func TestMessageRepositoryFindByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)

	_, err := repo.FindByID(context.Background(), 9999)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMessageRepositoryUnreadAggregates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	const userA, userB, userC, userD, userE = uint(1), uint(2), uint(3), uint(4), uint(5)

	seed := []models.Message{
		{FromUserID: userB, ToUserID: userA, Text: "seen", IsSeen: true},
		{FromUserID: userB, ToUserID: userA, Text: "unseen1"},
		{FromUserID: userB, ToUserID: userA, Text: "unseen2"},
		{FromUserID: userC, ToUserID: userA, Text: "unseen3"},
		{FromUserID: userA, ToUserID: userB, Text: "unseen4"},
		{FromUserID: userD, ToUserID: userA, Text: "seenD", IsSeen: true},
		{FromUserID: userA, ToUserID: userE, Text: "hello E"},
	}
	for i := range seed {
		require.NoError(t, repo.Create(ctx, &seed[i]))
	}

	counts, err := repo.UnreadCountsBySender(ctx, userA)
	require.NoError(t, err)

	byUser := make(map[uint]int64, len(counts))
	for _, row := range counts {
		byUser[row.UserID] = row.UnreadCount
	}
	require.Equal(t, map[uint]int64{userB: 2, userC: 1, userD: 0}, byUser)

	partners, err := repo.MessagedUserIDs(ctx, userA)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint{userB, userE}, partners)
}
