package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accessdesk/access-api/internal/models"
)

func TestParseTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, ParseTags("a, b,c"))
	assert.Equal(t, []string{"/api/v1/x", "/api/v1/y"}, ParseTags("/api/v1/x\n/api/v1/y"))
	assert.Equal(t, []string{"solo"}, ParseTags("  solo  "))
	assert.Nil(t, ParseTags(""))
	assert.Nil(t, ParseTags(" , ,\n"))
}

func TestCoerceValue(t *testing.T) {
	tagField, _ := FieldByID(FieldEndpoints)
	numField, _ := FieldByID(FieldExpectedResponseTime)
	textField, _ := FieldByID(FieldEID)

	v, err := CoerceValue(tagField, "a,b", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, v.Tags)

	v, err = CoerceValue(tagField, "", []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, v.Tags)

	v, err = CoerceValue(numField, "250", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(250), v.Number)

	_, err = CoerceValue(numField, "fast", nil)
	assert.Error(t, err)

	v, err = CoerceValue(textField, "  E123456  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "E123456", v.Text)
}

func TestValidateFields_RequiredMissing(t *testing.T) {
	fields := FieldsForContext(models.AccessHuman, models.AssetDataset, models.EnvDev)

	errs := ValidateFields(fields, models.FieldValueMap{})

	require.NotEmpty(t, errs)
	var ids []string
	for _, e := range errs {
		ids = append(ids, e.FieldID)
	}
	assert.Contains(t, ids, FieldEnvironment)
	assert.Contains(t, ids, FieldBusinessJustification)
	assert.Contains(t, ids, FieldEID)
	// optional fields do not error when absent
	assert.NotContains(t, ids, FieldBatchID)
	assert.NotContains(t, ids, FieldDataSensitivity)
}

func TestValidateFields_FirstErrorInCatalogOrder(t *testing.T) {
	fields := FieldsForContext(models.AccessHuman, models.AssetDataset, models.EnvDev)

	errs := ValidateFields(fields, models.FieldValueMap{})

	require.NotEmpty(t, errs)
	assert.Equal(t, FieldEnvironment, errs[0].FieldID)
}

func TestValidateFields_PositiveNumber(t *testing.T) {
	field, ok := FieldByID(FieldExpectedResponseTime)
	require.True(t, ok)

	errs := ValidateFields([]models.AccessField{field}, models.FieldValueMap{
		FieldExpectedResponseTime: {Kind: models.FieldNumber, Number: -5},
	})
	require.Len(t, errs, 1)
	assert.Equal(t, "Must be a positive number", errs[0].Message)

	errs = ValidateFields([]models.AccessField{field}, models.FieldValueMap{
		FieldExpectedResponseTime: {Kind: models.FieldNumber, Number: 200},
	})
	assert.Empty(t, errs)
}

func TestValidateFields_DateFormat(t *testing.T) {
	field, ok := FieldByID(FieldProductionDate)
	require.True(t, ok)

	errs := ValidateFields([]models.AccessField{field}, models.FieldValueMap{
		FieldProductionDate: {Kind: models.FieldDate, Text: "03/15/2026"},
	})
	require.Len(t, errs, 1)
	assert.Equal(t, "Must be in YYYY-MM-DD format", errs[0].Message)

	errs = ValidateFields([]models.AccessField{field}, models.FieldValueMap{
		FieldProductionDate: {Kind: models.FieldDate, Text: "2026-03-15"},
	})
	assert.Empty(t, errs)
}

func TestValidateFields_CompleteContextPasses(t *testing.T) {
	profile := &models.UserProfile{EID: "E123456", Title: "Data Analyst", LOB: "card"}
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	for _, asset := range []models.AssetType{models.AssetAPI, models.AssetDataset, models.AssetBI, models.AssetWarehouse} {
		for _, env := range []models.Environment{models.EnvDev, models.EnvProd} {
			fields := FieldsForContext(models.AccessMachine, asset, env)
			values := DefaultValuesForContext(models.AccessMachine, asset, env, profile, now)

			errs := ValidateFields(fields, values)
			assert.Empty(t, errs, "%s/%s should validate clean", asset, env)
		}
	}
}
