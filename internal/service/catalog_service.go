package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/accessdesk/access-api/internal/dto"
	"github.com/accessdesk/access-api/internal/models"
	"github.com/accessdesk/access-api/internal/rules"
	appErrors "github.com/accessdesk/access-api/pkg/errors"
)

type catalogAssetRepository interface {
	List(ctx context.Context, filter models.AssetFilter) ([]models.Asset, int, error)
	FindByID(ctx context.Context, id string) (*models.Asset, error)
}

type catalogProfileRepository interface {
	FindByEID(ctx context.Context, eid string) (*models.UserProfile, error)
}

// CatalogService serves the requestable asset catalog, requester profiles and
// rule previews for a hypothetical request context.
type CatalogService struct {
	assets    catalogAssetRepository
	profiles  catalogProfileRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewCatalogService constructs the service.
func NewCatalogService(assets catalogAssetRepository, profiles catalogProfileRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CatalogService{assets: assets, profiles: profiles, cache: cache, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

type cachedAssetList struct {
	Assets     []models.Asset     `json:"assets"`
	Pagination *models.Pagination `json:"pagination"`
}

// ListAssets returns catalog assets matching the query and indicates cache
// utilisation.
func (s *CatalogService) ListAssets(ctx context.Context, query dto.ListAssetsQuery) ([]models.Asset, *models.Pagination, bool, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid asset query")
	}

	filter := models.AssetFilter{Search: query.Search, Page: query.Page, PageSize: query.PageSize}
	if query.Type != "" {
		t := models.AssetType(query.Type)
		filter.Type = &t
	}

	cacheKey := fmt.Sprintf("catalog:assets:%s:%s:%d:%d", query.Type, strings.ToLower(query.Search), filter.Page, filter.PageSize)
	var cached cachedAssetList
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return cached.Assets, cached.Pagination, true, nil
	}

	assets, total, err := s.assets.List(ctx, filter)
	if err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assets")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}

	if err := s.cache.Set(ctx, cacheKey, cachedAssetList{Assets: assets, Pagination: pagination}, 0); err != nil {
		s.logger.Warn("catalog cache write failed", zap.String("key", cacheKey), zap.Error(err))
	}
	return assets, pagination, false, nil
}

// GetAsset fetches a single catalog asset.
func (s *CatalogService) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	asset, err := s.assets.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "asset not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load asset")
	}
	return asset, nil
}

// GetProfile returns the requester profile with the trainings that would
// auto-verify against the full prerequisite catalog.
func (s *CatalogService) GetProfile(ctx context.Context, eid string) (*dto.ProfileResponse, error) {
	profile, err := s.profiles.FindByEID(ctx, eid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}

	verified := rules.AutoVerifyPrereqs(profile, rules.MasterPrerequisites())
	ids := make([]string, 0, len(verified))
	for id := range verified {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return &dto.ProfileResponse{Profile: profile, Verified: ids}, nil
}

// PreviewContext resolves prerequisites, form fields and the approver path for
// a hypothetical context without creating a draft.
func (s *CatalogService) PreviewContext(ctx context.Context, query dto.ContextPreviewQuery) (*dto.ContextPreviewResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid context query")
	}

	accessType := models.AccessType(query.AccessType)
	assetType := models.AssetType(query.AssetType)
	environment := models.Environment(query.Environment)

	return &dto.ContextPreviewResponse{
		Prerequisites: rules.PrereqsForContext(accessType, assetType, environment),
		Fields:        rules.FieldsForContext(accessType, assetType, environment),
		ApproverPath:  rules.ApproverPath(accessType, assetType, environment),
	}, nil
}

// DatasetRoleView resolves role requirements for a dataset asset against the
// requester's training history, applying any session overrides. Expired CBT
// completions do not count.
func (s *CatalogService) DatasetRoleView(ctx context.Context, assetID, eid string, overrides map[string]bool) ([]models.RoleRequirement, error) {
	asset, err := s.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset.Type != models.AssetDataset {
		return nil, appErrors.Clone(appErrors.ErrValidation, "roles are only defined for dataset assets")
	}

	profile, err := s.profiles.FindByEID(ctx, eid)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}

	now := s.now()
	roles := make([]models.RoleRequirement, len(asset.Roles))
	for i, role := range asset.Roles {
		roles[i] = role
		roles[i].RequiredCbt = append([]models.CbtRequirement(nil), role.RequiredCbt...)
	}
	for i := range roles {
		for j := range roles[i].RequiredCbt {
			cbt := &roles[i].RequiredCbt[j]
			if profile != nil {
				if completedAt, ok := profile.CbtCompletions[cbt.ID]; ok {
					at := completedAt
					cbt.LastCompletedAt = &at
				}
			}
			if overrides[cbt.ID] {
				at := now
				cbt.LastCompletedAt = &at
			}
			if cbt.LastCompletedAt != nil && !cbt.Valid(now) {
				cbt.LastCompletedAt = nil
			}
		}
	}
	return roles, nil
}
