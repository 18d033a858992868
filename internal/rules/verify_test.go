package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/accessdesk/access-api/internal/models"
)

func TestAutoVerifyPrereqs_VerifiableTrainingOnly(t *testing.T) {
	profile := &models.UserProfile{
		EID:                "E123456",
		CompletedTrainings: []string{PrereqCBTs, PrereqExchangeTeam},
	}
	prereqs := PrereqsForContext(models.AccessHuman, models.AssetBI, models.EnvDev)

	verified := AutoVerifyPrereqs(profile, prereqs)

	assert.Contains(t, verified, PrereqCBTs)
	// exchange_team is in the profile but not auto-verified in the catalog
	assert.NotContains(t, verified, PrereqExchangeTeam)
}

func TestAutoVerifyPrereqs_MissingTraining(t *testing.T) {
	profile := &models.UserProfile{EID: "E123456"}
	prereqs := PrereqsForContext(models.AccessHuman, models.AssetDataset, models.EnvDev)

	verified := AutoVerifyPrereqs(profile, prereqs)
	assert.Empty(t, verified)
}

func TestAutoVerifyPrereqs_NilProfile(t *testing.T) {
	prereqs := PrereqsForContext(models.AccessHuman, models.AssetDataset, models.EnvDev)
	assert.Empty(t, AutoVerifyPrereqs(nil, prereqs))
}

func TestAreAllAssetsPrereqsComplete(t *testing.T) {
	assets := []models.Asset{
		{ID: "ds-1", Type: models.AssetDataset},
		{ID: "ds-2", Type: models.AssetDataset},
	}
	status := make(models.PrereqStatusMap)
	for _, p := range PrereqsForContext(models.AccessHuman, models.AssetDataset, models.EnvDev) {
		status.Set("ds-1", p.ID, models.PrereqComplete)
		status.Set("ds-2", p.ID, models.PrereqComplete)
	}

	assert.True(t, AreAllAssetsPrereqsComplete(status, assets, models.AccessHuman, models.EnvDev))

	status.Set("ds-2", PrereqObjects, models.PrereqIncomplete)
	assert.False(t, AreAllAssetsPrereqsComplete(status, assets, models.AccessHuman, models.EnvDev))
}

func TestAreAllAssetsPrereqsComplete_AutoCounts(t *testing.T) {
	assets := []models.Asset{{ID: "bi-1", Type: models.AssetBI}}
	status := make(models.PrereqStatusMap)
	status.Set("bi-1", PrereqExchangeTeam, models.PrereqComplete)
	status.Set("bi-1", PrereqCBTs, models.PrereqAuto)

	assert.True(t, AreAllAssetsPrereqsComplete(status, assets, models.AccessHuman, models.EnvDev))
}

func TestAreAllAssetsPrereqsComplete_ContextSwitchInvalidates(t *testing.T) {
	// Satisfy the dev prerequisites for an API asset, then flip to prod.
	// The prod-only entries are absent from the map, so the check fails
	// without any explicit invalidation step.
	assets := []models.Asset{{ID: "api-1", Type: models.AssetAPI}}
	status := make(models.PrereqStatusMap)
	for _, p := range PrereqsForContext(models.AccessMachine, models.AssetAPI, models.EnvDev) {
		status.Set("api-1", p.ID, models.PrereqComplete)
	}

	assert.True(t, AreAllAssetsPrereqsComplete(status, assets, models.AccessMachine, models.EnvDev))
	assert.False(t, AreAllAssetsPrereqsComplete(status, assets, models.AccessMachine, models.EnvProd))
}

func TestAreAllAssetsPrereqsComplete_NoAssets(t *testing.T) {
	assert.True(t, AreAllAssetsPrereqsComplete(nil, nil, models.AccessHuman, models.EnvDev))
}

func TestMarkPrereqsComplete(t *testing.T) {
	assets := []models.Asset{{ID: "ds-1", Type: models.AssetDataset}}

	status := MarkPrereqsComplete(assets, models.AccessHuman, models.EnvDev)

	assert.Equal(t, models.PrereqAuto, status.Get("ds-1", PrereqCBTs))
	assert.Equal(t, models.PrereqComplete, status.Get("ds-1", PrereqBatchID))
	assert.Equal(t, models.PrereqComplete, status.Get("ds-1", PrereqObjects))
	assert.True(t, AreAllAssetsPrereqsComplete(status, assets, models.AccessHuman, models.EnvDev))
}
