package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livescore-service/models"
)

func TestExecuteCleanup(t *testing.T) {
	store := NewMemoryMatchStore()
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, matchAt(1, 105, models.MatchStatusFullTime)))
	require.NoError(t, store.Upsert(ctx, matchAt(2, 90, models.MatchStatusFullTime)))

	svc := NewDataCleanupService(store, CleanupConfig{MinuteThreshold: 100})
	result, err := svc.ExecuteCleanup(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(1), result.DeletedRows)
	assert.Equal(t, 100, result.MinuteThreshold)
	assert.Equal(t, models.MatchStatusFullTime, result.Status)
}

func TestCleanupRunDisabledReturnsImmediately(t *testing.T) {
	svc := NewDataCleanupService(NewMemoryMatchStore(), CleanupConfig{})

	done := make(chan struct{})
	go func() {
		svc.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run should return when no interval is configured")
	}
}

func TestCleanupRunPeriodically(t *testing.T) {
	store := NewMemoryMatchStore()
	svc := NewDataCleanupService(store, CleanupConfig{Interval: 2 * time.Millisecond, MinuteThreshold: 100})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	require.NoError(t, store.Upsert(ctx, matchAt(3, 130, models.MatchStatusFullTime)))

	require.Eventually(t, func() bool {
		all, _ := store.GetAll(context.Background())
		return len(all) == 0
	}, 2*time.Second, 5*time.Millisecond)
}
