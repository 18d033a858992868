package rules

import "github.com/accessdesk/access-api/internal/models"

// PrereqsForContext returns the ordered, deduplicated prerequisite list for a
// request context. Prerequisites are assembled per asset-type bucket with
// environment-conditional additions appended; duplicates collapse keeping
// first occurrence order. Unknown asset types yield an empty list, since the
// prerequisite schema is advisory, not authoritative.
func PrereqsForContext(accessType models.AccessType, assetType models.AssetType, environment models.Environment) []models.Prerequisite {
	var ids []string

	switch assetType {
	case models.AssetAPI:
		ids = append(ids, PrereqExchangeTeam, PrereqAppAccess, PrereqOnCallSupport, PrereqAWSAccount, PrereqASVScan)
		if environment == models.EnvProd {
			ids = append(ids, PrereqProdAccess, PrereqProdAWSAccount)
		} else {
			ids = append(ids, PrereqPreProdAccess)
		}
	case models.AssetDataset:
		ids = append(ids, PrereqCBTs, PrereqBatchID, PrereqObjects)
	case models.AssetWarehouse:
		ids = append(ids, PrereqCBTs, PrereqBatchID, PrereqProdAWSAccount)
	case models.AssetBI:
		ids = append(ids, PrereqExchangeTeam, PrereqCBTs)
	}

	seen := make(map[string]struct{}, len(ids))
	prereqs := make([]models.Prerequisite, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := PrerequisiteByID(id); ok {
			prereqs = append(prereqs, p)
		}
	}
	return prereqs
}

// PrereqsByAsset resolves the prerequisite list for every asset in a draft.
func PrereqsByAsset(assets []models.Asset, accessType models.AccessType, environment models.Environment) map[string][]models.Prerequisite {
	byAsset := make(map[string][]models.Prerequisite, len(assets))
	for _, asset := range assets {
		byAsset[asset.ID] = PrereqsForContext(accessType, asset.Type, environment)
	}
	return byAsset
}

// ApproverPath returns the ordered approver role labels a request must
// traverse. The path always starts with Manager; CurrentApproverIndex on a
// request indexes into this slice.
func ApproverPath(accessType models.AccessType, assetType models.AssetType, environment models.Environment) []string {
	path := []string{ApproverManager}

	switch assetType {
	case models.AssetDataset:
		path = append(path, ApproverDataOwner)
		if accessType == models.AccessMachine || environment == models.EnvProd {
			path = append(path, ApproverSecurity)
		}
	case models.AssetAPI:
		path = append(path, ApproverAPIOwner)
		if environment == models.EnvProd {
			path = append(path, ApproverSecurity, ApproverCompliance)
		}
	default:
		path = append(path, ApproverDataOwner)
	}

	return path
}

// FieldsForContext returns the ordered form fields for a request context:
// the environment selector first, then the context defaults, then asset-type
// conditionals, then the production-only AWS account field. Order is stable
// for identical inputs and defines presentation order.
func FieldsForContext(accessType models.AccessType, assetType models.AssetType, environment models.Environment) []models.AccessField {
	ids := []string{FieldEnvironment}
	ids = append(ids, defaultFieldIDs(accessType)...)
	ids = append(ids, conditionalFieldIDs(accessType, assetType)...)
	if environment == models.EnvProd {
		ids = append(ids, FieldProdAWSAccountID)
	}

	fields := make([]models.AccessField, 0, len(ids))
	for _, id := range ids {
		if f, ok := FieldByID(id); ok {
			fields = append(fields, f)
		}
	}
	return fields
}

func defaultFieldIDs(accessType models.AccessType) []string {
	ids := []string{FieldBusinessJustification, FieldEID, FieldTitle, FieldLOB}
	if accessType == models.AccessMachine {
		ids = append(ids, FieldApplicationName, FieldClientID)
	}
	return ids
}

func conditionalFieldIDs(accessType models.AccessType, assetType models.AssetType) []string {
	switch assetType {
	case models.AssetAPI:
		if accessType == models.AccessMachine {
			return []string{FieldEndpoints, FieldExpectedResponseTime, FieldAverageTransactions, FieldProductionDate, FieldOnCallSupportID}
		}
		return nil
	case models.AssetDataset:
		return []string{FieldBatchID, FieldObjects, FieldDataSensitivity}
	case models.AssetWarehouse:
		return []string{FieldApplicationName, FieldOnCallSupportID, FieldEntitlements}
	case models.AssetBI:
		return []string{FieldApplicationName, FieldEntitlements}
	default:
		return nil
	}
}
