package rules

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/accessdesk/access-api/internal/models"
)

// DefaultValues seeds a fresh value map for the given fields, pre-populating
// identity fields from the profile.
func DefaultValues(fields []models.AccessField, profile *models.UserProfile) models.FieldValueMap {
	values := make(models.FieldValueMap, len(fields))
	for _, field := range fields {
		value := models.FieldValue{Kind: field.Type}
		if profile != nil {
			switch field.ID {
			case FieldEID:
				value.Text = profile.EID
			case FieldTitle:
				value.Text = profile.Title
			case FieldLOB:
				value.Text = profile.LOB
			}
		}
		values[field.ID] = value
	}
	return values
}

// DefaultValuesForContext produces plausible autofill values for the context.
// Used by the explicit autofill-assumptions action; the values pass
// ValidateFields for the same context.
func DefaultValuesForContext(accessType models.AccessType, assetType models.AssetType, environment models.Environment, profile *models.UserProfile, now time.Time) models.FieldValueMap {
	today := now.UTC().Format("2006-01-02")
	values := models.FieldValueMap{
		FieldEnvironment: {Kind: models.FieldSelect, Text: string(environment)},
		FieldBusinessJustification: {
			Kind: models.FieldTextarea,
			Text: fmt.Sprintf(
				"Requesting %s access to %s in %s environment for ongoing project requirements. This access is necessary to support critical business operations and data analytics workflows.",
				accessType, assetType, environment,
			),
		},
	}
	if profile != nil {
		values[FieldEID] = models.FieldValue{Kind: models.FieldText, Text: profile.EID}
		values[FieldTitle] = models.FieldValue{Kind: models.FieldText, Text: profile.Title}
		values[FieldLOB] = models.FieldValue{Kind: models.FieldSelect, Text: profile.LOB}
	}

	if accessType == models.AccessMachine {
		values[FieldApplicationName] = models.FieldValue{Kind: models.FieldSelect, Text: "data_pipeline"}
		values[FieldClientID] = models.FieldValue{Kind: models.FieldText, Text: clientIDFor(profile, now)}
	}

	if assetType == models.AssetAPI && accessType == models.AccessMachine {
		values[FieldEndpoints] = models.FieldValue{Kind: models.FieldTags, Tags: []string{"/api/v1/customers", "/api/v1/orders"}}
		values[FieldExpectedResponseTime] = models.FieldValue{Kind: models.FieldNumber, Number: 200}
		values[FieldAverageTransactions] = models.FieldValue{Kind: models.FieldNumber, Number: 5000}
		values[FieldProductionDate] = models.FieldValue{Kind: models.FieldDate, Text: today}
		values[FieldOnCallSupportID] = models.FieldValue{Kind: models.FieldText, Text: onCallIDFor(profile)}
	}

	if assetType == models.AssetDataset {
		values[FieldBatchID] = models.FieldValue{Kind: models.FieldText, Text: batchIDFor(now)}
		values[FieldObjects] = models.FieldValue{Kind: models.FieldTags, Tags: []string{"customers", "transactions"}}
		values[FieldDataSensitivity] = models.FieldValue{Kind: models.FieldSelect, Text: "internal"}
	}

	if assetType == models.AssetWarehouse {
		values[FieldApplicationName] = models.FieldValue{Kind: models.FieldSelect, Text: "analytics_dashboard"}
		values[FieldOnCallSupportID] = models.FieldValue{Kind: models.FieldText, Text: onCallIDFor(profile)}
		values[FieldEntitlements] = models.FieldValue{Kind: models.FieldSelect, Text: "read"}
	}

	if environment == models.EnvProd {
		values[FieldProdAWSAccountID] = models.FieldValue{Kind: models.FieldText, Text: "123456789012"}
	}

	return values
}

func clientIDFor(profile *models.UserProfile, now time.Time) string {
	eid := "unknown"
	if profile != nil && profile.EID != "" {
		eid = strings.ToLower(profile.EID)
	}
	return fmt.Sprintf("client-%s-%s", eid, strconv.FormatInt(now.UnixMilli(), 36))
}

func onCallIDFor(profile *models.UserProfile) string {
	eid := "unknown"
	if profile != nil && profile.EID != "" {
		eid = profile.EID
	}
	return "ONCALL-" + eid
}

func batchIDFor(now time.Time) string {
	suffix := strconv.FormatInt(now.UnixMilli(), 36)
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return "BATCH-" + strings.ToUpper(suffix)
}
