package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pooyaostvoar/chess-mater/internal/models"
)

func TestPushSubscriptionRepositoryDuplicateEndpoint(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPushSubscriptionRepository(db)
	ctx := context.Background()

	first := models.PushSubscription{UserID: 1, Endpoint: "https://push.example/abc", P256dh: "p", Auth: "a"}
	require.NoError(t, repo.Create(ctx, &first))

	duplicate := models.PushSubscription{UserID: 1, Endpoint: "https://push.example/abc", P256dh: "p", Auth: "a"}
	err := repo.Create(ctx, &duplicate)
	require.ErrorIs(t, err, ErrSubscriptionExists)
}

func TestPushSubscriptionRepositoryListAndDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPushSubscriptionRepository(db)
	ctx := context.Background()

	chrome := models.PushSubscription{UserID: 1, Endpoint: "https://push.example/chrome", P256dh: "p1", Auth: "a1"}
	firefox := models.PushSubscription{UserID: 1, Endpoint: "https://push.example/firefox", P256dh: "p2", Auth: "a2"}
	other := models.PushSubscription{UserID: 2, Endpoint: "https://push.example/other", P256dh: "p3", Auth: "a3"}
	require.NoError(t, repo.Create(ctx, &chrome))
	require.NoError(t, repo.Create(ctx, &firefox))
	require.NoError(t, repo.Create(ctx, &other))

	subs, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, subs, 2)

	require.NoError(t, repo.Delete(ctx, chrome.ID))

	subs, err = repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, "https://push.example/firefox", subs[0].Endpoint)
}
