package repository

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/accessdesk/access-api/pkg/errors"
)

func TestDraftRepositoryGetWithoutClient(t *testing.T) {
	repo := NewDraftRepository(nil, time.Hour, nil)

	_, err := repo.Get(context.Background(), "E123456")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDraftNotFound.Code, appErrors.FromError(err).Code)
}

func TestDraftRepositoryGetUnreachableRedis(t *testing.T) {
	// Nothing listens on port 1; the read fails and degrades to "no draft"
	// instead of surfacing an internal error.
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	repo := NewDraftRepository(client, time.Hour, nil)

	_, err := repo.Get(context.Background(), "E123456")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDraftNotFound.Code, appErrors.FromError(err).Code)
}
