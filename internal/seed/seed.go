package seed

import (
	"context"
	"fmt"

	"inkfeed/internal/models"
	"inkfeed/internal/observability"

	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	NumUsers int
	NumPosts int
	// FollowsPerUser is the upper bound of accounts each user follows.
	FollowsPerUser int
	// InteractionsPerPost bounds the likes and saves each post receives.
	InteractionsPerPost int
	MaxDays             int
	Seed                int64
}

// DefaultOptions returns a small but realistic dataset.
func DefaultOptions() Options {
	return Options{
		NumUsers:            50,
		NumPosts:            300,
		FollowsPerUser:      10,
		InteractionsPerPost: 15,
		MaxDays:             90,
	}
}

// Summary reports what a run created.
type Summary struct {
	Users   int
	Follows int
	Posts   int
	Likes   int
	Saves   int
}

// Seeder populates the database with users, follow edges, posts and
// interactions.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
	opts    Options
}

// NewSeeder creates a seeder writing to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db, opts.Seed, opts.MaxDays), opts: opts}
}

// ClearAll removes every row the seeder can create, including soft-deleted
// posts.
func (s *Seeder) ClearAll() error {
	for _, model := range []any{
		&models.Like{},
		&models.SavedPost{},
		&models.Follow{},
		&models.Post{},
		&models.User{},
	} {
		if err := s.db.Unscoped().Where("1 = 1").Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Run seeds according to the options.
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	f := s.factory

	users := make([]*models.User, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		u, err := f.CreateUser()
		if err != nil {
			return sum, err
		}
		users = append(users, u)
	}
	sum.Users = len(users)
	if len(users) == 0 {
		return sum, nil
	}

	for _, u := range users {
		want := f.faker.Number(0, min(s.opts.FollowsPerUser, len(users)-1))
		followed := 0
		for _, idx := range f.shuffled(len(users)) {
			if followed == want {
				break
			}
			target := users[idx]
			if target.ID == u.ID {
				continue
			}
			if err := f.CreateFollow(u, target); err != nil {
				return sum, fmt.Errorf("create follow: %w", err)
			}
			followed++
		}
		sum.Follows += followed
	}

	posts := make([]*models.Post, 0, s.opts.NumPosts)
	for i := 0; i < s.opts.NumPosts; i++ {
		posts = append(posts, f.BuildPost(users[f.faker.Number(0, len(users)-1)]))
	}
	if err := f.CreatePostsBatch(posts); err != nil {
		return sum, err
	}
	sum.Posts = len(posts)

	for _, p := range posts {
		n := f.faker.Number(0, min(s.opts.InteractionsPerPost, len(users)))
		for _, idx := range f.shuffled(len(users))[:n] {
			if _, err := f.Toggle(ctx, models.InteractionLike, users[idx], p); err != nil {
				return sum, fmt.Errorf("seed like: %w", err)
			}
			sum.Likes++
			if f.faker.Number(1, 4) == 1 {
				if _, err := f.Toggle(ctx, models.InteractionSave, users[idx], p); err != nil {
					return sum, fmt.Errorf("seed save: %w", err)
				}
				sum.Saves++
			}
		}
	}

	observability.Logger.InfoContext(ctx, "seed complete",
		"users", sum.Users, "follows", sum.Follows, "posts", sum.Posts,
		"likes", sum.Likes, "saves", sum.Saves)
	return sum, nil
}
