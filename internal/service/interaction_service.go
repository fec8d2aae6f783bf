package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inkfeed/internal/config"
	"inkfeed/internal/models"
	"inkfeed/internal/observability"
	"inkfeed/internal/repository"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
)

// InteractionConfig bounds the conflict retry loop.
type InteractionConfig struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	ScopeTimeout time.Duration
}

// InteractionConfigFrom extracts the toggle retry policy from application config.
func InteractionConfigFrom(cfg *config.Config) InteractionConfig {
	return InteractionConfig{
		MaxAttempts:  cfg.ToggleMaxAttempts,
		BaseDelay:    cfg.ToggleBaseDelay,
		ScopeTimeout: cfg.ToggleScopeTimeout,
	}
}

func (c InteractionConfig) withDefaults() InteractionConfig {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 50 * time.Millisecond
	}
	if c.ScopeTimeout <= 0 {
		c.ScopeTimeout = 10 * time.Second
	}
	return c
}

// retryAfter is the delay suggested to clients once local retries are spent.
func (c InteractionConfig) retryAfter() time.Duration {
	return c.BaseDelay << c.MaxAttempts
}

// InteractionService toggles likes and saves, absorbing transient store
// conflicts with a bounded, jittered exponential backoff.
type InteractionService struct {
	store repository.InteractionStore
	cfg   InteractionConfig
}

func NewInteractionService(store repository.InteractionStore, cfg InteractionConfig) *InteractionService {
	return &InteractionService{store: store, cfg: cfg.withDefaults()}
}

// Toggle flips userID's kind interaction on postID and returns the new state.
func (s *InteractionService) Toggle(ctx context.Context, userID uint, postID string, kind models.InteractionKind) (models.ToggleResult, error) {
	if userID == 0 {
		return models.ToggleResult{}, models.NewUnauthorizedError("Authentication required")
	}
	if !kind.Valid() {
		return models.ToggleResult{}, models.NewValidationError("kind must be one of: like, save")
	}
	if postID == "" {
		return models.ToggleResult{}, models.NewValidationError("Invalid post id")
	}

	span, ctx := observability.NewSpan(ctx, "interaction.toggle",
		attribute.String("interaction.kind", string(kind)),
		attribute.String("post.id", postID),
	)
	defer span.End()

	attempts := 0
	op := func() (models.ToggleResult, error) {
		attempts++
		scoped, cancel := context.WithTimeout(ctx, s.cfg.ScopeTimeout)
		defer cancel()

		res, err := s.store.Toggle(scoped, kind, userID, postID)
		switch {
		case err == nil:
			return res, nil
		case errors.Is(err, repository.ErrPostNotFound):
			return res, backoff.Permanent(models.NewNotFoundError("Post", postID))
		case repository.IsConflict(err):
			return res, err
		case errors.Is(scoped.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			return res, fmt.Errorf("%w: atomic scope exceeded %s", repository.ErrConflict, s.cfg.ScopeTimeout)
		case ctx.Err() != nil:
			return res, backoff.Permanent(ctx.Err())
		default:
			return res, backoff.Permanent(models.NewInternalError(err))
		}
	}

	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(s.newBackOff()),
		backoff.WithMaxTries(uint(s.cfg.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			observability.ToggleRetries.WithLabelValues(string(kind)).Inc()
			observability.Logger.WarnContext(ctx, "retrying interaction toggle after conflict",
				"kind", kind,
				"post_id", postID,
				"attempt", attempts,
				"backoff", next,
				"error", err,
			)
		}),
	)
	span.AddAttributes(attribute.Int("interaction.attempts", attempts))
	if err != nil {
		span.SetError(err)
		return models.ToggleResult{}, s.mapError(ctx, kind, err)
	}

	outcome := "off"
	if res.Active {
		outcome = "on"
	}
	observability.ToggleOutcomes.WithLabelValues(string(kind), outcome).Inc()
	return res, nil
}

func (s *InteractionService) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0.5
	b.MaxInterval = s.cfg.retryAfter()
	return b
}

func (s *InteractionService) mapError(ctx context.Context, kind models.InteractionKind, err error) error {
	var appErr *models.AppError
	switch {
	case errors.As(err, &appErr):
		outcome := "error"
		if appErr.Code == models.CodeNotFound {
			outcome = "not_found"
		} else {
			observability.Logger.ErrorContext(ctx, "interaction toggle failed", "kind", kind, "error", err)
		}
		observability.ToggleOutcomes.WithLabelValues(string(kind), outcome).Inc()
		return appErr
	case repository.IsConflict(err):
		observability.ToggleOutcomes.WithLabelValues(string(kind), "conflict").Inc()
		return models.NewConflictError(err, s.cfg.retryAfter())
	default:
		// Caller went away.
		observability.ToggleOutcomes.WithLabelValues(string(kind), "cancelled").Inc()
		return err
	}
}
