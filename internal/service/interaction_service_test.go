package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"inkfeed/internal/models"
	"inkfeed/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFunc adapts a function to repository.InteractionStore.
type storeFunc func(context.Context, models.InteractionKind, uint, string) (models.ToggleResult, error)

func (f storeFunc) Toggle(ctx context.Context, kind models.InteractionKind, userID uint, postID string) (models.ToggleResult, error) {
	return f(ctx, kind, userID, postID)
}

var fastRetries = InteractionConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, ScopeTimeout: time.Second}

func TestInteractionService_Validation(t *testing.T) {
	svc := NewInteractionService(testutil.NewInteractionStore("p1"), fastRetries)
	ctx := context.Background()

	_, err := svc.Toggle(ctx, 0, "p1", models.InteractionLike)
	assertAppError(t, err, models.CodeUnauthorized)

	_, err = svc.Toggle(ctx, 1, "p1", models.InteractionKind("repost"))
	assertValidationError(t, err)

	_, err = svc.Toggle(ctx, 1, "", models.InteractionLike)
	assertValidationError(t, err)
}

func TestInteractionService_ToggleTwiceRestores(t *testing.T) {
	store := testutil.NewInteractionStore("p1")
	svc := NewInteractionService(store, fastRetries)
	ctx := context.Background()

	on, err := svc.Toggle(ctx, 1, "p1", models.InteractionSave)
	require.NoError(t, err)
	assert.Equal(t, models.ToggleResult{Active: true, Count: 1}, on)

	off, err := svc.Toggle(ctx, 1, "p1", models.InteractionSave)
	require.NoError(t, err)
	assert.Equal(t, models.ToggleResult{Active: false, Count: 0}, off)
	assert.Zero(t, store.Rows("p1", models.InteractionSave))
}

func TestInteractionService_NotFoundIsNotRetried(t *testing.T) {
	store := testutil.NewInteractionStore()
	svc := NewInteractionService(store, fastRetries)

	_, err := svc.Toggle(context.Background(), 1, "missing", models.InteractionLike)
	assertAppError(t, err, models.CodeNotFound)
	assert.Equal(t, 1, store.Calls())
}

func TestInteractionService_RetriesConflicts(t *testing.T) {
	store := testutil.NewInteractionStore("p1")
	store.FailFirst = 2
	svc := NewInteractionService(store, fastRetries)

	res, err := svc.Toggle(context.Background(), 1, "p1", models.InteractionLike)
	require.NoError(t, err)
	assert.Equal(t, models.ToggleResult{Active: true, Count: 1}, res)
	assert.Equal(t, 3, store.Calls())
}

func TestInteractionService_ConflictExhaustion(t *testing.T) {
	store := testutil.NewInteractionStore("p1")
	store.FailFirst = 100
	svc := NewInteractionService(store, fastRetries)

	_, err := svc.Toggle(context.Background(), 1, "p1", models.InteractionLike)
	appErr := assertAppError(t, err, models.CodeConflict)
	assert.Equal(t, 8*time.Millisecond, appErr.RetryAfter)
	assert.Equal(t, 3, store.Calls())
	assert.Zero(t, store.Count("p1", models.InteractionLike))
}

func TestInteractionService_ScopeTimeoutCountsAsConflict(t *testing.T) {
	store := testutil.NewInteractionStore("p1")
	store.Delay = 200 * time.Millisecond
	svc := NewInteractionService(store, InteractionConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, ScopeTimeout: 5 * time.Millisecond})

	_, err := svc.Toggle(context.Background(), 1, "p1", models.InteractionLike)
	assertAppError(t, err, models.CodeConflict)
	assert.Equal(t, 2, store.Calls())
	assert.Zero(t, store.Count("p1", models.InteractionLike))
}

func TestInteractionService_UnexpectedErrorIsInternal(t *testing.T) {
	calls := 0
	svc := NewInteractionService(storeFunc(func(context.Context, models.InteractionKind, uint, string) (models.ToggleResult, error) {
		calls++
		return models.ToggleResult{}, errors.New("disk on fire")
	}), fastRetries)

	_, err := svc.Toggle(context.Background(), 1, "p1", models.InteractionLike)
	assertAppError(t, err, models.CodeInternal)
	assert.Equal(t, 1, calls)
}

func TestInteractionService_ConcurrentDistinctUsersConverge(t *testing.T) {
	const users = 25
	store := testutil.NewInteractionStore("p1")
	store.Delay = time.Millisecond
	svc := NewInteractionService(store, fastRetries)

	var wg sync.WaitGroup
	errs := make(chan error, users)
	for u := uint(1); u <= users; u++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Toggle(context.Background(), u, "p1", models.InteractionLike)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, users, store.Count("p1", models.InteractionLike))
	assert.Equal(t, users, store.Rows("p1", models.InteractionLike))
}

func TestInteractionService_ConcurrentSameUserStaysConsistent(t *testing.T) {
	store := testutil.NewInteractionStore("p1")
	store.Delay = time.Millisecond
	svc := NewInteractionService(store, fastRetries)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Toggle(context.Background(), 1, "p1", models.InteractionLike)
		}()
	}
	wg.Wait()

	// An even number of toggles by one user leaves nothing behind.
	assert.Zero(t, store.Count("p1", models.InteractionLike))
	assert.Zero(t, store.Rows("p1", models.InteractionLike))
}
