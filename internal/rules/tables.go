// Package rules holds the static access-request catalogs and the pure
// functions that derive prerequisites, form fields and approver paths from a
// request context (access type, asset type, environment).
package rules

import "github.com/accessdesk/access-api/internal/models"

// Approver role labels, in the order requests are routed.
const (
	ApproverManager    = "Manager"
	ApproverDataOwner  = "Data Owner"
	ApproverAPIOwner   = "API Owner"
	ApproverSecurity   = "Security"
	ApproverCompliance = "Compliance"
)

// Prerequisite catalog ids.
const (
	PrereqExchangeTeam      = "exchange_team"
	PrereqAppAccess         = "app_access"
	PrereqBatchID           = "batch_id"
	PrereqPreProdAccess     = "pre_production_access"
	PrereqProdAccess        = "production_access"
	PrereqAWSAccount        = "aws_account"
	PrereqOnCallSupport     = "on_call_support"
	PrereqProdAWSAccount    = "production_aws_account"
	PrereqASVScan           = "asv_scan"
	PrereqCBTs              = "cbts"
	PrereqObjects           = "objects"
)

// masterPrerequisites is the full prerequisite catalog. Loaded once at package
// init, read-only for the process lifetime.
var masterPrerequisites = []models.Prerequisite{
	{
		ID:          PrereqExchangeTeam,
		Label:       "Exchange Team",
		Description: "Be part of an Exchange team with appropriate permissions",
		Link:        "/teams/join",
	},
	{
		ID:          PrereqAppAccess,
		Label:       "App Access",
		Description: "Application must be registered and approved for access",
		Link:        "/applications/register",
	},
	{
		ID:          PrereqBatchID,
		Label:       "Batch ID",
		Description: "Valid Batch ID for data processing workflows",
	},
	{
		ID:          PrereqPreProdAccess,
		Label:       "Pre-production Access",
		Description: "Access approval for development and staging environments",
	},
	{
		ID:          PrereqProdAccess,
		Label:       "Production Access",
		Description: "Manager approval required for production environment access",
	},
	{
		ID:          PrereqAWSAccount,
		Label:       "AWS Account",
		Description: "Valid AWS account configured for the application",
		Link:        "/infrastructure/aws-setup",
	},
	{
		ID:          PrereqOnCallSupport,
		Label:       "On-Call Support Contact",
		Description: "On-call support rotation and contact information",
		Link:        "/operations/on-call",
	},
	{
		ID:          PrereqProdAWSAccount,
		Label:       "Production AWS Account",
		Description: "Production-specific AWS account details",
	},
	{
		ID:          PrereqASVScan,
		Label:       "ASV Scan",
		Description: "Valid Application Security Verification scan results",
		Link:        "/security/asv-scans",
		AllowUpload: true,
	},
	{
		ID:           PrereqCBTs,
		Label:        "CBTs (Computer-Based Trainings)",
		Description:  "Complete required training modules for data access",
		Link:         "/training/courses",
		AutoVerified: true,
		Verifiable:   true,
	},
	{
		ID:          PrereqObjects,
		Label:       "Objects",
		Description: "Specific database objects or tables requested",
	},
}

var prerequisiteByID = func() map[string]models.Prerequisite {
	index := make(map[string]models.Prerequisite, len(masterPrerequisites))
	for _, p := range masterPrerequisites {
		index[p.ID] = p
	}
	return index
}()

// MasterPrerequisites returns a copy of the full prerequisite catalog.
func MasterPrerequisites() []models.Prerequisite {
	out := make([]models.Prerequisite, len(masterPrerequisites))
	copy(out, masterPrerequisites)
	return out
}

// PrerequisiteByID looks up a catalog entry.
func PrerequisiteByID(id string) (models.Prerequisite, bool) {
	p, ok := prerequisiteByID[id]
	return p, ok
}

// Field catalog ids.
const (
	FieldBusinessJustification = "businessJustification"
	FieldEID                   = "eid"
	FieldTitle                 = "title"
	FieldLOB                   = "lob"
	FieldEnvironment           = "environment"
	FieldApplicationName       = "applicationName"
	FieldOnCallSupportID       = "onCallSupportId"
	FieldEntitlements          = "entitlements"
	FieldClientID              = "clientId"
	FieldBatchID               = "batchId"
	FieldEndpoints             = "endpoints"
	FieldExpectedResponseTime  = "expectedResponseTimeMs"
	FieldAverageTransactions   = "averageTransactions"
	FieldProductionDate        = "productionDate"
	FieldProdAWSAccountID      = "productionAwsAccountId"
	FieldObjects               = "objects"
	FieldDataSensitivity       = "dataSensitivity"
)

// fieldLibrary is the catalog of standardized form fields.
var fieldLibrary = map[string]models.AccessField{
	FieldBusinessJustification: {
		ID:          FieldBusinessJustification,
		Label:       "Business Justification",
		Placeholder: "Explain why you need access to this asset...",
		Type:        models.FieldTextarea,
		Required:    true,
		Description: "Provide a clear business reason for requesting access",
	},
	FieldEID: {
		ID:          FieldEID,
		Label:       "Employee ID (EID)",
		Placeholder: "e.g., E123456",
		Type:        models.FieldText,
		Required:    true,
	},
	FieldTitle: {
		ID:          FieldTitle,
		Label:       "Job Title",
		Placeholder: "e.g., Data Analyst",
		Type:        models.FieldText,
		Required:    true,
	},
	FieldLOB: {
		ID:          FieldLOB,
		Label:       "Line of Business",
		Placeholder: "Select your LOB",
		Type:        models.FieldSelect,
		Required:    true,
		Options: []models.FieldOption{
			{Value: "card", Label: "Card"},
			{Value: "epx", Label: "EPX"},
			{Value: "bank", Label: "Bank"},
			{Value: "auto", Label: "Auto"},
			{Value: "software", Label: "Software"},
			{Value: "other", Label: "Other"},
		},
	},
	FieldEnvironment: {
		ID:          FieldEnvironment,
		Label:       "Environment",
		Placeholder: "Select environment",
		Type:        models.FieldSelect,
		Required:    true,
		Options: []models.FieldOption{
			{Value: "dev", Label: "Development"},
			{Value: "stage", Label: "Staging"},
			{Value: "prod", Label: "Production"},
		},
		Description: "Select the environment you need access to",
	},
	FieldApplicationName: {
		ID:          FieldApplicationName,
		Label:       "Application Name",
		Placeholder: "Select or enter application name",
		Type:        models.FieldSelect,
		Required:    true,
		Options: []models.FieldOption{
			{Value: "customer_portal", Label: "Customer Portal"},
			{Value: "data_pipeline", Label: "Data Pipeline Service"},
			{Value: "analytics_dashboard", Label: "Analytics Dashboard"},
			{Value: "ml_model_service", Label: "ML Model Service"},
			{Value: "reporting_engine", Label: "Reporting Engine"},
		},
	},
	FieldOnCallSupportID: {
		ID:          FieldOnCallSupportID,
		Label:       "On-call Support / Production ID",
		Placeholder: "e.g., PROD-ONCALL-123",
		Type:        models.FieldText,
		Required:    true,
		Description: "Your on-call rotation identifier or production support contact",
	},
	FieldEntitlements: {
		ID:          FieldEntitlements,
		Label:       "Required Entitlements",
		Placeholder: "Select entitlements",
		Type:        models.FieldSelect,
		Options: []models.FieldOption{
			{Value: "read", Label: "Read"},
			{Value: "write", Label: "Write"},
			{Value: "admin", Label: "Admin"},
		},
	},
	FieldClientID: {
		ID:          FieldClientID,
		Label:       "Client ID",
		Placeholder: "e.g., client-abc-123",
		Type:        models.FieldText,
		Required:    true,
	},
	FieldBatchID: {
		ID:          FieldBatchID,
		Label:       "Batch ID",
		Placeholder: "e.g., batch-xyz-789",
		Type:        models.FieldText,
		Description: "Required for dataset batch processing workflows",
	},
	FieldEndpoints: {
		ID:          FieldEndpoints,
		Label:       "Required API Endpoints",
		Placeholder: "e.g., /api/v1/customers, /api/v1/profiles",
		Type:        models.FieldTags,
		Required:    true,
		Description: "Enter endpoints separated by commas or new lines",
	},
	FieldExpectedResponseTime: {
		ID:             FieldExpectedResponseTime,
		Label:          "Expected Response Time",
		Placeholder:    "e.g., 200",
		Type:           models.FieldNumber,
		Required:       true,
		RightAdornment: "ms",
		Description:    "Target response time in milliseconds",
	},
	FieldAverageTransactions: {
		ID:          FieldAverageTransactions,
		Label:       "Average Transactions per Day",
		Placeholder: "e.g., 10000",
		Type:        models.FieldNumber,
		Required:    true,
		Description: "Expected daily transaction volume",
	},
	FieldProductionDate: {
		ID:          FieldProductionDate,
		Label:       "Expected Production Date",
		Placeholder: "YYYY-MM-DD",
		Type:        models.FieldDate,
		Description: "When do you plan to go live in production?",
	},
	FieldProdAWSAccountID: {
		ID:          FieldProdAWSAccountID,
		Label:       "Production AWS Account ID",
		Placeholder: "e.g., 123456789012",
		Type:        models.FieldText,
		Required:    true,
		Description: "Your 12-digit AWS account identifier for production",
	},
	FieldObjects: {
		ID:          FieldObjects,
		Label:       "Database Objects / Tables",
		Placeholder: "e.g., customers, transactions",
		Type:        models.FieldTags,
		Description: "Specific tables or objects you need access to",
	},
	FieldDataSensitivity: {
		ID:          FieldDataSensitivity,
		Label:       "Data Sensitivity Level",
		Placeholder: "Select sensitivity",
		Type:        models.FieldSelect,
		Options: []models.FieldOption{
			{Value: "public", Label: "Public"},
			{Value: "internal", Label: "Internal"},
			{Value: "confidential", Label: "Confidential"},
			{Value: "restricted", Label: "Restricted"},
		},
	},
}

// FieldByID looks up a field catalog entry.
func FieldByID(id string) (models.AccessField, bool) {
	f, ok := fieldLibrary[id]
	return f, ok
}
