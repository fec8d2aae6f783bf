package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"inkfeed/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInteractionStore_ToggleTwiceRestoresState(t *testing.T) {
	for _, kind := range []models.InteractionKind{models.InteractionLike, models.InteractionSave} {
		t.Run(string(kind), func(t *testing.T) {
			db := setupSQLiteDB(t)
			author := createUser(t, db, "artist")
			post := createPosts(t, db, author.ID, baseTime, 1)[0]
			store := NewInteractionStore(db)
			ctx := context.Background()

			on, err := store.Toggle(ctx, kind, 7, post.ID)
			require.NoError(t, err)
			assert.Equal(t, models.ToggleResult{Active: true, Count: 1}, on)

			off, err := store.Toggle(ctx, kind, 7, post.ID)
			require.NoError(t, err)
			assert.Equal(t, models.ToggleResult{Active: false, Count: 0}, off)

			var reloaded models.Post
			require.NoError(t, db.First(&reloaded, "id = ?", post.ID).Error)
			assert.Zero(t, reloaded.LikesCount)
			assert.Zero(t, reloaded.SavesCount)
		})
	}
}

func TestInteractionStore_CountTracksDistinctUsers(t *testing.T) {
	db := setupSQLiteDB(t)
	author := createUser(t, db, "artist")
	post := createPosts(t, db, author.ID, baseTime, 1)[0]
	store := NewInteractionStore(db)
	ctx := context.Background()

	for u := uint(1); u <= 5; u++ {
		res, err := store.Toggle(ctx, models.InteractionLike, u, post.ID)
		require.NoError(t, err)
		assert.Equal(t, int(u), res.Count)
	}
	// A save does not move the like counter.
	res, err := store.Toggle(ctx, models.InteractionSave, 1, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)

	var likes int64
	require.NoError(t, db.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&likes).Error)
	assert.Equal(t, int64(5), likes)

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, "id = ?", post.ID).Error)
	assert.Equal(t, 5, reloaded.LikesCount)
	assert.Equal(t, 1, reloaded.SavesCount)
}

func TestInteractionStore_CounterNeverNegative(t *testing.T) {
	db := setupSQLiteDB(t)
	author := createUser(t, db, "artist")
	post := createPosts(t, db, author.ID, baseTime, 1)[0]
	store := NewInteractionStore(db)

	// A join row with a counter that drifted to zero.
	require.NoError(t, db.Create(&models.Like{UserID: 3, PostID: post.ID}).Error)

	res, err := store.Toggle(context.Background(), models.InteractionLike, 3, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ToggleResult{Active: false, Count: 0}, res)

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, "id = ?", post.ID).Error)
	assert.Zero(t, reloaded.LikesCount)
}

func TestInteractionStore_NotFound(t *testing.T) {
	db := setupSQLiteDB(t)
	author := createUser(t, db, "artist")
	post := createPosts(t, db, author.ID, baseTime, 1)[0]
	store := NewInteractionStore(db)
	ctx := context.Background()

	_, err := store.Toggle(ctx, models.InteractionLike, 1, "does-not-exist")
	assert.ErrorIs(t, err, ErrPostNotFound)

	require.NoError(t, NewPostRepository(db).Delete(ctx, post.ID))
	_, err = store.Toggle(ctx, models.InteractionLike, 1, post.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)

	_, err = store.Toggle(ctx, models.InteractionKind("share"), 1, post.ID)
	assert.Error(t, err)
}

func TestInteractionStore_LocksRowAndUpdatesAtomically(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewInteractionStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "id","likes_count","saves_count" FROM "posts" WHERE id = \$1 .* FOR UPDATE`).
		WithArgs("p1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "likes_count", "saves_count"}).AddRow("p1", 4, 0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "likes" WHERE user_id = \$1 AND post_id = \$2`).
		WithArgs(9, "p1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`INSERT INTO "likes"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(`UPDATE "posts" SET "likes_count"=likes_count \+ 1 WHERE id = \$1`).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := store.Toggle(context.Background(), models.InteractionLike, 9, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.ToggleResult{Active: true, Count: 5}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInteractionStore_ToggleOffDecrementsSaves(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewInteractionStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM "posts" .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "likes_count", "saves_count"}).AddRow("p1", 0, 2))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "saved_posts"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(`DELETE FROM "saved_posts" WHERE user_id = \$1 AND post_id = \$2`).
		WithArgs(9, "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "posts" SET "saves_count"=CASE WHEN saves_count > 0 THEN saves_count - 1 ELSE 0 END`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := store.Toggle(context.Background(), models.InteractionSave, 9, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.ToggleResult{Active: false, Count: 1}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInteractionStore_DeadlockIsConflict(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewInteractionStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM "posts" .* FOR UPDATE`).
		WillReturnError(&pgconn.PgError{Code: "40P01", Message: "deadlock detected"})
	mock.ExpectRollback()

	_, err := store.Toggle(context.Background(), models.InteractionLike, 1, "p1")
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrConflict, true},
		{"wrapped sentinel", fmt.Errorf("toggle: %w", ErrConflict), true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"serialization", &pgconn.PgError{Code: "40001"}, true},
		{"lock not available", fmt.Errorf("x: %w", &pgconn.PgError{Code: "55P03"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"not found", ErrPostNotFound, false},
		{"other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConflict(tt.err))
		})
	}
}
