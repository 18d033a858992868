package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accessdesk/access-api/internal/models"
)

func TestDefaultValues_SeedsIdentityFromProfile(t *testing.T) {
	profile := &models.UserProfile{EID: "E123456", Title: "Data Analyst", LOB: "card"}
	fields := FieldsForContext(models.AccessHuman, models.AssetDataset, models.EnvDev)

	values := DefaultValues(fields, profile)

	assert.Equal(t, "E123456", values[FieldEID].Text)
	assert.Equal(t, "Data Analyst", values[FieldTitle].Text)
	assert.Equal(t, "card", values[FieldLOB].Text)
	assert.True(t, values[FieldBusinessJustification].IsZero())
}

func TestDefaultValues_NilProfile(t *testing.T) {
	fields := FieldsForContext(models.AccessHuman, models.AssetBI, models.EnvDev)

	values := DefaultValues(fields, nil)

	assert.Len(t, values, len(fields))
	assert.True(t, values[FieldEID].IsZero())
}

func TestDefaultValuesForContext_ProdGetsAWSAccount(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	prod := DefaultValuesForContext(models.AccessHuman, models.AssetBI, models.EnvProd, nil, now)
	assert.Equal(t, "123456789012", prod[FieldProdAWSAccountID].Text)

	dev := DefaultValuesForContext(models.AccessHuman, models.AssetBI, models.EnvDev, nil, now)
	_, present := dev[FieldProdAWSAccountID]
	assert.False(t, present)
}

func TestDefaultValuesForContext_APIMachine(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	profile := &models.UserProfile{EID: "E123456"}

	values := DefaultValuesForContext(models.AccessMachine, models.AssetAPI, models.EnvDev, profile, now)

	require.Contains(t, values, FieldEndpoints)
	assert.Equal(t, []string{"/api/v1/customers", "/api/v1/orders"}, values[FieldEndpoints].Tags)
	assert.Equal(t, float64(200), values[FieldExpectedResponseTime].Number)
	assert.Equal(t, float64(5000), values[FieldAverageTransactions].Number)
	assert.Equal(t, "2026-09-01", values[FieldProductionDate].Text)
	assert.Equal(t, "ONCALL-E123456", values[FieldOnCallSupportID].Text)
	assert.Equal(t, "data_pipeline", values[FieldApplicationName].Text)
}
