// Package seed provides helpers to create demo data for the feed. These
// helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"time"

	"inkfeed/internal/models"
	"inkfeed/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	postTypes = []string{"tattoo", "flash", "sketch", "healed", "wip"}
	styles    = []string{
		"blackwork", "fine-line", "neo-traditional", "american-traditional",
		"japanese", "realism", "watercolor", "dotwork", "geometric", "lettering",
	}
	bodyParts = []string{
		"forearm", "upper-arm", "sleeve", "back", "chest", "ribs",
		"thigh", "calf", "ankle", "hand", "neck", "shoulder",
	}
)

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db           *gorm.DB
	faker        *gofakeit.Faker
	interactions repository.InteractionStore
	maxDays      int
	nextUser     int
}

// NewFactory creates a Factory bound to db. A zero seed picks a random one.
func NewFactory(db *gorm.DB, seed int64, maxDays int) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if maxDays <= 0 {
		maxDays = 90
	}
	return &Factory{
		db:           db,
		faker:        gofakeit.New(seed),
		interactions: repository.NewInteractionStore(db),
		maxDays:      maxDays,
	}
}

// CreateUser persists a user with a unique username.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	f.nextUser++
	user := &models.User{
		Username:  fmt.Sprintf("%s%d", f.faker.Username(), f.nextUser),
		AvatarURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
	}
	for _, override := range overrides {
		override(user)
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// BuildPost constructs a post by author without persisting it.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	// realistic created_at spread
	back := time.Duration(f.faker.Number(0, f.maxDays*24*60)) * time.Minute
	post := &models.Post{
		UserID:     author.ID,
		Caption:    f.faker.Sentence(f.faker.Number(4, 14)),
		ImageURL:   fmt.Sprintf("https://picsum.photos/seed/%s/800/800", f.faker.UUID()),
		Visibility: models.VisibilityPublic,
		Status:     models.PostStatusPublished,
		Type:       f.faker.RandomString(postTypes),
		Style:      f.faker.RandomString(styles),
		BodyPart:   f.faker.RandomString(bodyParts),
		Location:   f.faker.City(),
		Featured:   f.faker.Number(1, 10) == 1,
		ViewsCount: f.faker.Number(0, 5000),
		CreatedAt:  time.Now().UTC().Add(-back),
	}
	if f.faker.Number(1, 20) == 1 {
		post.Visibility = models.VisibilityPrivate
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePostsBatch persists posts in batches of 100.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if err := f.db.CreateInBatches(posts, 100).Error; err != nil {
		return fmt.Errorf("create posts: %w", err)
	}
	return nil
}

// CreateFollow records follower -> following. Existing edges are kept.
func (f *Factory) CreateFollow(follower, following *models.User) error {
	return f.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{FollowerID: follower.ID, FollowingID: following.ID}).Error
}

// Toggle goes through the interaction store so counters stay consistent
// with the join tables.
func (f *Factory) Toggle(ctx context.Context, kind models.InteractionKind, user *models.User, post *models.Post) (models.ToggleResult, error) {
	return f.interactions.Toggle(ctx, kind, user.ID, post.ID)
}

// shuffled returns 0..n-1 in random order.
func (f *Factory) shuffled(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	f.faker.ShuffleInts(out)
	return out
}
