package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationService(t *testing.T) {
	env := newTestEnv(t, 4)
	ctx := context.Background()

	env.notifier.Notify(ctx, 1, "hello")
	env.notifier.Notify(ctx, 2, "other")

	list, err := env.notifier.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "hello", list[0].Message)
	assert.False(t, list[0].IsRead)

	require.NoError(t, env.notifier.MarkRead(ctx, list[0].ID, 1))
	assert.True(t, env.store.notifications[0].IsRead)

	// чужое уведомление не найти
	assert.ErrorIs(t, env.notifier.MarkRead(ctx, list[0].ID, 2), ErrNotificationNotFound)
}

func TestNotificationService_StoreFailureIsSwallowed(t *testing.T) {
	env := newTestEnv(t, 4)
	env.store.failNotify = true

	assert.NotPanics(t, func() { env.notifier.Notify(context.Background(), 1, "lost") })
	assert.Empty(t, env.store.notifications)
}
