package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accessdesk/access-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func assetRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "name", "type", "description", "owner", "roles", "created_at", "updated_at"})
	for _, id := range ids {
		rows.AddRow(id, "Asset "+id, "dataset", "", nil, []byte("[]"), time.Now(), time.Now())
	}
	return rows
}

func TestAssetRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssetRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, type, description, owner, roles, created_at, updated_at FROM assets WHERE 1=1 AND type = $1 ORDER BY name ASC LIMIT 20 OFFSET 0")).
		WithArgs(models.AssetDataset).
		WillReturnRows(assetRows("d1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM assets WHERE 1=1 AND type = $1")).
		WithArgs(models.AssetDataset).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	datasetType := models.AssetDataset
	assets, total, err := repo.List(context.Background(), models.AssetFilter{Type: &datasetType})
	require.NoError(t, err)
	assert.Len(t, assets, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssetRepositoryListSearch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssetRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("(LOWER(name) LIKE $1 OR LOWER(description) LIKE $1)")).
		WithArgs("%customer%").
		WillReturnRows(assetRows("d1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("%customer%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	assets, _, err := repo.List(context.Background(), models.AssetFilter{Search: "Customer"})
	require.NoError(t, err)
	assert.Len(t, assets, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssetRepositoryFindByIDsPreservesOrder(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssetRepository(db)

	// Rows come back in storage order; the result follows the requested order.
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id IN ($1,$2)")).
		WithArgs("b", "a").
		WillReturnRows(assetRows("a", "b"))

	assets, err := repo.FindByIDs(context.Background(), []string{"b", "a"})
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "b", assets[0].ID)
	assert.Equal(t, "a", assets[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
