package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/accessdesk/access-api/internal/models"
	appErrors "github.com/accessdesk/access-api/pkg/errors"
)

// DraftRepository stores wizard sessions in Redis, keyed per owner. Drafts
// are working state, not records: loss of a draft is an inconvenience, never
// data corruption, so writes are best-effort with a TTL backstop.
type DraftRepository struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewDraftRepository constructs the repository.
func NewDraftRepository(client *redis.Client, ttl time.Duration, logger *zap.Logger) *DraftRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &DraftRepository{client: client, logger: logger, ttl: ttl}
}

func draftKey(ownerEID string) string {
	return "draft:" + ownerEID
}

// Get loads the owner's active draft. Returns ErrDraftNotFound when no draft
// exists or Redis is unavailable.
func (r *DraftRepository) Get(ctx context.Context, ownerEID string) (*models.DraftRequest, error) {
	if r.client == nil {
		return nil, appErrors.ErrDraftNotFound
	}
	raw, err := r.client.Get(ctx, draftKey(ownerEID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("draft read failed, treating as absent", zap.String("owner", ownerEID), zap.Error(err))
		}
		return nil, appErrors.ErrDraftNotFound
	}
	var draft models.DraftRequest
	if err := json.Unmarshal(raw, &draft); err != nil {
		r.logger.Warn("stored draft is unreadable, treating as absent", zap.String("owner", ownerEID), zap.Error(err))
		return nil, appErrors.ErrDraftNotFound
	}
	return &draft, nil
}

// Save persists the draft, refreshing its TTL.
func (r *DraftRepository) Save(ctx context.Context, draft *models.DraftRequest) error {
	if r.client == nil {
		return nil
	}
	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal draft %s: %w", draft.OwnerEID, err)
	}
	if err := r.client.Set(ctx, draftKey(draft.OwnerEID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set draft %s: %w", draft.OwnerEID, err)
	}
	return nil
}

// Delete removes the owner's draft after submission or cancel.
func (r *DraftRepository) Delete(ctx context.Context, ownerEID string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, draftKey(ownerEID)).Err(); err != nil {
		return fmt.Errorf("redis delete draft %s: %w", ownerEID, err)
	}
	return nil
}
