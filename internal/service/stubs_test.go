package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"inkfeed/internal/cursor"
	"inkfeed/internal/models"
	"inkfeed/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn     func(context.Context, *models.Post) error
	getByIDFn    func(context.Context, string) (*models.Post, error)
	deleteFn     func(context.Context, string) error
	listRecentFn func(context.Context, repository.PostFilter, *cursor.Cursor, int) ([]*models.Post, error)
	listRankedFn func(context.Context, repository.PostFilter, models.SortMode, int, int) ([]*models.Post, error)
	countFn      func(context.Context, repository.PostFilter) (int64, error)

	mu        sync.Mutex
	countRuns int
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id string) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) ListRecent(ctx context.Context, f repository.PostFilter, after *cursor.Cursor, n int) ([]*models.Post, error) {
	return s.listRecentFn(ctx, f, after, n)
}
func (s *postRepoStub) ListRanked(ctx context.Context, f repository.PostFilter, sort models.SortMode, offset, limit int) ([]*models.Post, error) {
	return s.listRankedFn(ctx, f, sort, offset, limit)
}
func (s *postRepoStub) Count(ctx context.Context, f repository.PostFilter) (int64, error) {
	s.mu.Lock()
	s.countRuns++
	s.mu.Unlock()
	return s.countFn(ctx, f)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:  func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id string) (*models.Post, error) { return nil, repository.ErrPostNotFound },
		deleteFn:  func(_ context.Context, _ string) error { return nil },
		listRecentFn: func(_ context.Context, _ repository.PostFilter, _ *cursor.Cursor, _ int) ([]*models.Post, error) {
			return nil, nil
		},
		listRankedFn: func(_ context.Context, _ repository.PostFilter, _ models.SortMode, _, _ int) ([]*models.Post, error) {
			return nil, nil
		},
		countFn: func(_ context.Context, _ repository.PostFilter) (int64, error) { return 0, nil },
	}
}

// relRepoStub is a stub for repository.RelationshipRepository that counts calls.
type relRepoStub struct {
	liked     []string
	saved     []string
	followed  []uint
	following []uint
	err       error

	mu    sync.Mutex
	calls map[string]int
	// lastAuthors is the author list passed to FollowedAmong.
	lastAuthors []uint
}

func newRelRepoStub() *relRepoStub {
	return &relRepoStub{calls: map[string]int{}}
}

func (s *relRepoStub) record(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[name]++
}

func (s *relRepoStub) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *relRepoStub) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *relRepoStub) LikedPostIDs(_ context.Context, _ uint, _ []string) ([]string, error) {
	s.record("liked")
	return s.liked, s.err
}
func (s *relRepoStub) SavedPostIDs(_ context.Context, _ uint, _ []string) ([]string, error) {
	s.record("saved")
	return s.saved, s.err
}
func (s *relRepoStub) FollowedAmong(_ context.Context, _ uint, authorIDs []uint) ([]uint, error) {
	s.record("followed")
	s.mu.Lock()
	s.lastAuthors = authorIDs
	s.mu.Unlock()
	return s.followed, s.err
}
func (s *relRepoStub) FollowingIDs(_ context.Context, _ uint) ([]uint, error) {
	s.record("following")
	return s.following, s.err
}
func (s *relRepoStub) Follow(_ context.Context, _, _ uint) error {
	s.record("follow")
	return s.err
}
func (s *relRepoStub) Unfollow(_ context.Context, _, _ uint) error {
	s.record("unfollow")
	return s.err
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	users map[uint]*models.User
}

func (s *userRepoStub) Create(_ context.Context, u *models.User) error {
	s.users[u.ID] = u
	return nil
}
func (s *userRepoStub) GetByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

// assertAppError asserts that err is an AppError with the given code.
func assertAppError(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeValidation)
}

func intPtr(v int) *int { return &v }
