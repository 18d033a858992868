package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accessdesk/access-api/internal/dto"
	"github.com/accessdesk/access-api/internal/models"
	"github.com/accessdesk/access-api/internal/rules"
	appErrors "github.com/accessdesk/access-api/pkg/errors"
)

type draftStoreStub struct {
	drafts map[string]*models.DraftRequest
	saves  int
}

func newDraftStoreStub() *draftStoreStub {
	return &draftStoreStub{drafts: make(map[string]*models.DraftRequest)}
}

func (s *draftStoreStub) Get(ctx context.Context, ownerEID string) (*models.DraftRequest, error) {
	if draft, ok := s.drafts[ownerEID]; ok {
		return draft, nil
	}
	return nil, appErrors.ErrDraftNotFound
}

func (s *draftStoreStub) Save(ctx context.Context, draft *models.DraftRequest) error {
	s.saves++
	s.drafts[draft.OwnerEID] = draft
	return nil
}

func (s *draftStoreStub) Delete(ctx context.Context, ownerEID string) error {
	delete(s.drafts, ownerEID)
	return nil
}

type draftAssetRepoStub struct {
	assets map[string]models.Asset
}

func (s *draftAssetRepoStub) FindByIDs(ctx context.Context, ids []string) ([]models.Asset, error) {
	result := make([]models.Asset, 0, len(ids))
	for _, id := range ids {
		if asset, ok := s.assets[id]; ok {
			result = append(result, asset)
		}
	}
	return result, nil
}

type draftProfileRepoStub struct {
	profile *models.UserProfile
}

func (s *draftProfileRepoStub) FindByEID(ctx context.Context, eid string) (*models.UserProfile, error) {
	if s.profile == nil {
		return nil, sql.ErrNoRows
	}
	return s.profile, nil
}

type submissionRepoStub struct {
	created []models.AccessRequest
	logs    []*models.AuditLog
	err     error
}

func (s *submissionRepoStub) CreateBatch(ctx context.Context, requests []models.AccessRequest) error {
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, requests...)
	return nil
}

func (s *submissionRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.logs = append(s.logs, log)
	return nil
}

type submissionNotifierStub struct {
	submitted         []models.AccessRequest
	draftSaves        int
	prereqsIncomplete int
}

func (s *submissionNotifierStub) RequestSubmitted(requests []models.AccessRequest) {
	s.submitted = append(s.submitted, requests...)
}

func (s *submissionNotifierStub) DraftSaved(draft models.DraftRequest) {
	s.draftSaves++
}

func (s *submissionNotifierStub) PrereqsIncomplete(draft models.DraftRequest) {
	s.prereqsIncomplete++
}

func draftTestFixtures() (*draftStoreStub, *draftAssetRepoStub, *draftProfileRepoStub, *submissionRepoStub, *submissionNotifierStub) {
	store := newDraftStoreStub()
	assets := &draftAssetRepoStub{assets: map[string]models.Asset{
		"d1": {ID: "d1", Name: "Customer 360", Type: models.AssetDataset},
		"a1": {ID: "a1", Name: "Payments API", Type: models.AssetAPI},
	}}
	profiles := &draftProfileRepoStub{profile: &models.UserProfile{
		EID:                "E123456",
		Name:               "Jordan Smith",
		Title:              "Data Analyst",
		LOB:                "card",
		CompletedTrainings: []string{"cbts"},
	}}
	return store, assets, profiles, &submissionRepoStub{}, &submissionNotifierStub{}
}

func newTestDraftService(cfg DraftConfig) (*DraftService, *draftStoreStub, *submissionRepoStub, *submissionNotifierStub) {
	store, assets, profiles, submissions, notifier := draftTestFixtures()
	svc := NewDraftService(store, assets, profiles, submissions, notifier, nil, validator.New(), nil, cfg)
	return svc, store, submissions, notifier
}

func TestDraftServiceStartSeedsContext(t *testing.T) {
	svc, store, _, _ := newTestDraftService(DraftConfig{})

	res, err := svc.Start(context.Background(), "E123456", dto.StartDraftRequest{
		AssetIDs:   []string{"d1"},
		AccessType: "human",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StepPrerequisites, res.Draft.Step)
	assert.Equal(t, models.EnvDev, res.Draft.Environment)
	assert.Equal(t, "d1", res.Draft.ActiveAssetID)

	// cbts is auto-verified from the profile training history.
	assert.Equal(t, models.PrereqAuto, res.Draft.PrereqStatus.Get("d1", rules.PrereqCBTs))
	assert.Equal(t, models.PrereqIncomplete, res.Draft.PrereqStatus.Get("d1", rules.PrereqBatchID))

	// Identity fields seed from the profile.
	assert.Equal(t, "E123456", res.Draft.FieldValues[rules.FieldEID].Text)
	assert.Equal(t, "Data Analyst", res.Draft.FieldValues[rules.FieldTitle].Text)

	assert.Equal(t, 1, store.saves)
}

func TestDraftServiceStartUnknownAsset(t *testing.T) {
	svc, _, _, _ := newTestDraftService(DraftConfig{})

	_, err := svc.Start(context.Background(), "E123456", dto.StartDraftRequest{AssetIDs: []string{"missing"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDraftServiceStepGuardBlocksForward(t *testing.T) {
	svc, _, _, _ := newTestDraftService(DraftConfig{})

	_, err := svc.Start(context.Background(), "E123456", dto.StartDraftRequest{
		AssetIDs:   []string{"d1"},
		AccessType: "human",
	})
	require.NoError(t, err)

	res, err := svc.Step(context.Background(), "E123456", dto.StepRequest{Action: "next"})
	require.NoError(t, err)
	assert.Equal(t, models.StepPrerequisites, res.Draft.Step)
	assert.False(t, res.CanAdvance)
	assert.Equal(t, "complete all prerequisites to continue", res.BlockReason)
}

func TestDraftServiceStepBlockReasonDistinguishesAccessType(t *testing.T) {
	svc, _, _, _ := newTestDraftService(DraftConfig{})

	_, err := svc.Start(context.Background(), "E123456", dto.StartDraftRequest{AssetIDs: []string{"d1"}})
	require.NoError(t, err)

	// No access type picked yet: that is the blocker, not the prerequisites.
	res, err := svc.Step(context.Background(), "E123456", dto.StepRequest{Action: "next"})
	require.NoError(t, err)
	assert.False(t, res.CanAdvance)
	assert.Equal(t, "select an access type to continue", res.BlockReason)

	human := "human"
	res, err = svc.Update(context.Background(), "E123456", dto.UpdateDraftRequest{AccessType: &human})
	require.NoError(t, err)
	assert.Equal(t, "complete all prerequisites to continue", res.BlockReason)
}

func TestDraftServiceAutofillAssumesMachineProd(t *testing.T) {
	svc, _, _, _ := newTestDraftService(DraftConfig{})

	_, err := svc.Start(context.Background(), "E123456", dto.StartDraftRequest{AssetIDs: []string{"d1"}})
	require.NoError(t, err)

	res, err := svc.Autofill(context.Background(), "E123456")
	require.NoError(t, err)

	assert.Equal(t, models.AccessMachine, res.Draft.AccessType)
	assert.Equal(t, models.EnvProd, res.Draft.Environment)
	assert.Equal(t, "prod", res.Draft.FieldValues[rules.FieldEnvironment].Text)
	assert.True(t, res.CanAdvance)
	assert.Empty(t, res.BlockReason)

	require.Len(t, res.Draft.Attachments, 1)
	assert.Equal(t, "asv_scan_results_2024.pdf", res.Draft.Attachments[0].Name)
	assert.Equal(t, rules.PrereqASVScan, res.Draft.Attachments[0].PrereqID)
}

func TestDraftServiceWizardFlow(t *testing.T) {
	svc, _, _, _ := newTestDraftService(DraftConfig{})
	ctx := context.Background()

	_, err := svc.Start(ctx, "E123456", dto.StartDraftRequest{
		AssetIDs:   []string{"d1"},
		AccessType: "human",
	})
	require.NoError(t, err)

	res, err := svc.Autofill(ctx, "E123456")
	require.NoError(t, err)
	assert.True(t, res.CanAdvance)

	res, err = svc.Step(ctx, "E123456", dto.StepRequest{Action: "next"})
	require.NoError(t, err)
	assert.Equal(t, models.StepDetails, res.Draft.Step)
	assert.True(t, res.CanAdvance)
	assert.Empty(t, res.FieldErrors)

	res, err = svc.Step(ctx, "E123456", dto.StepRequest{Action: "next"})
	require.NoError(t, err)
	assert.Equal(t, models.StepReview, res.Draft.Step)

	res, err = svc.Step(ctx, "E123456", dto.StepRequest{Action: "back"})
	require.NoError(t, err)
	assert.Equal(t, models.StepDetails, res.Draft.Step)

	res, err = svc.Step(ctx, "E123456", dto.StepRequest{Action: "goto", Target: 1})
	require.NoError(t, err)
	assert.Equal(t, models.StepPrerequisites, res.Draft.Step)

	// goto never moves forward.
	res, err = svc.Step(ctx, "E123456", dto.StepRequest{Action: "goto", Target: 3})
	require.NoError(t, err)
	assert.Equal(t, models.StepPrerequisites, res.Draft.Step)
}

func TestDraftServiceGetResumesOnDetails(t *testing.T) {
	svc, _, _, _ := newTestDraftService(DraftConfig{})
	ctx := context.Background()

	_, err := svc.Start(ctx, "E123456", dto.StartDraftRequest{
		AssetIDs:   []string{"d1"},
		AccessType: "human",
	})
	require.NoError(t, err)

	res, err := svc.Get(ctx, "E123456")
	require.NoError(t, err)
	assert.Equal(t, models.StepDetails, res.Draft.Step)
}

func TestDraftServiceUpdateCoercesFields(t *testing.T) {
	svc, _, _, _ := newTestDraftService(DraftConfig{})
	ctx := context.Background()

	_, err := svc.Start(ctx, "E123456", dto.StartDraftRequest{
		AssetIDs:   []string{"a1"},
		AccessType: "machine",
	})
	require.NoError(t, err)

	res, err := svc.Update(ctx, "E123456", dto.UpdateDraftRequest{
		FieldValues: map[string]dto.RawValue{
			rules.FieldExpectedResponseTime: {Text: "250"},
			rules.FieldEndpoints:            {Text: "/api/v1/a, /api/v1/b"},
			rules.FieldEnvironment:          {Text: "prod"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, float64(250), res.Draft.FieldValues[rules.FieldExpectedResponseTime].Number)
	assert.Equal(t, []string{"/api/v1/a", "/api/v1/b"}, res.Draft.FieldValues[rules.FieldEndpoints].Tags)
	// Writing the environment field keeps the draft context in sync.
	assert.Equal(t, models.EnvProd, res.Draft.Environment)

	_, err = svc.Update(ctx, "E123456", dto.UpdateDraftRequest{
		FieldValues: map[string]dto.RawValue{"bogus": {Text: "x"}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDraftServiceSetPrereqStatus(t *testing.T) {
	svc, _, _, _ := newTestDraftService(DraftConfig{})
	ctx := context.Background()

	_, err := svc.Start(ctx, "E123456", dto.StartDraftRequest{
		AssetIDs:   []string{"d1"},
		AccessType: "human",
	})
	require.NoError(t, err)

	res, err := svc.SetPrereqStatus(ctx, "E123456", dto.SetPrereqStatusRequest{
		AssetID: "d1", PrereqID: rules.PrereqBatchID, Complete: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PrereqComplete, res.Draft.PrereqStatus.Get("d1", rules.PrereqBatchID))

	// Verifiable prerequisites flip to auto instead of complete.
	res, err = svc.SetPrereqStatus(ctx, "E123456", dto.SetPrereqStatusRequest{
		AssetID: "d1", PrereqID: rules.PrereqCBTs, Complete: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PrereqAuto, res.Draft.PrereqStatus.Get("d1", rules.PrereqCBTs))

	_, err = svc.SetPrereqStatus(ctx, "E123456", dto.SetPrereqStatusRequest{
		AssetID: "other", PrereqID: rules.PrereqBatchID, Complete: true,
	})
	require.Error(t, err)
}

func TestDraftServiceSubmitFansOutPerAsset(t *testing.T) {
	svc, store, submissions, notifier := newTestDraftService(DraftConfig{})
	ctx := context.Background()

	_, err := svc.Start(ctx, "E123456", dto.StartDraftRequest{
		AssetIDs:    []string{"d1", "a1"},
		AccessType:  "machine",
		Environment: "prod",
	})
	require.NoError(t, err)

	_, err = svc.Autofill(ctx, "E123456")
	require.NoError(t, err)
	_, err = svc.Step(ctx, "E123456", dto.StepRequest{Action: "next"})
	require.NoError(t, err)
	_, err = svc.Step(ctx, "E123456", dto.StepRequest{Action: "next"})
	require.NoError(t, err)

	res, err := svc.Submit(ctx, "E123456", models.LoginRequest{IP: "10.0.0.1"})
	require.NoError(t, err)
	require.Len(t, res.Requests, 2)

	dataset, api := res.Requests[0], res.Requests[1]
	assert.Equal(t, "d1", dataset.Assets[0].ID)
	assert.Equal(t, []string{rules.ApproverManager, rules.ApproverDataOwner, rules.ApproverSecurity}, []string(dataset.ApproverPath))
	assert.Equal(t, []string{rules.ApproverManager, rules.ApproverAPIOwner, rules.ApproverSecurity, rules.ApproverCompliance}, []string(api.ApproverPath))

	for _, req := range res.Requests {
		assert.Equal(t, models.StatusPendingManager, req.Status)
		assert.Equal(t, 0, req.CurrentApproverIndex)
		assert.Equal(t, "E123456", req.RequesterEID)
	}

	assert.Len(t, submissions.created, 2)
	assert.Len(t, submissions.logs, 2)
	assert.Len(t, notifier.submitted, 2)

	// The draft is cleared on submission.
	_, ok := store.drafts["E123456"]
	assert.False(t, ok)
}

func TestDraftServiceSubmitRequiresReviewStep(t *testing.T) {
	svc, store, submissions, _ := newTestDraftService(DraftConfig{})
	ctx := context.Background()

	_, err := svc.Start(ctx, "E123456", dto.StartDraftRequest{
		AssetIDs:   []string{"d1"},
		AccessType: "machine",
	})
	require.NoError(t, err)

	_, err = svc.Autofill(ctx, "E123456")
	require.NoError(t, err)

	// Everything is satisfied, but the wizard is still on step one.
	_, err = svc.Submit(ctx, "E123456", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStepBlocked.Code, appErrors.FromError(err).Code)
	assert.Empty(t, submissions.created)

	_, err = svc.Step(ctx, "E123456", dto.StepRequest{Action: "next"})
	require.NoError(t, err)
	_, err = svc.Step(ctx, "E123456", dto.StepRequest{Action: "next"})
	require.NoError(t, err)

	// Next past review is not a submission and never reaches confirmation.
	_, err = svc.Step(ctx, "E123456", dto.StepRequest{Action: "next"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStepBlocked.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.StepReview, store.drafts["E123456"].Step)
	assert.Empty(t, submissions.created)

	res, err := svc.Submit(ctx, "E123456", models.LoginRequest{})
	require.NoError(t, err)
	require.Len(t, res.Requests, 1)
}

func TestDraftServiceSubmitIncompletePrereqs(t *testing.T) {
	svc, store, submissions, notifier := newTestDraftService(DraftConfig{})
	ctx := context.Background()

	_, err := svc.Start(ctx, "E123456", dto.StartDraftRequest{
		AssetIDs:   []string{"d1"},
		AccessType: "human",
	})
	require.NoError(t, err)

	// A stale draft can sit on review while its prerequisites no longer hold.
	store.drafts["E123456"].Step = models.StepReview

	_, err = svc.Submit(ctx, "E123456", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStepBlocked.Code, appErrors.FromError(err).Code)
	assert.Empty(t, submissions.created)
	assert.Equal(t, models.StepPrerequisites, store.drafts["E123456"].Step)
	assert.Equal(t, 1, notifier.prereqsIncomplete)
}

func TestDraftServiceSubmitValidationRoutesToDetails(t *testing.T) {
	svc, store, submissions, _ := newTestDraftService(DraftConfig{})
	ctx := context.Background()

	_, err := svc.Start(ctx, "E123456", dto.StartDraftRequest{
		AssetIDs:   []string{"d1"},
		AccessType: "human",
	})
	require.NoError(t, err)

	_, err = svc.Autofill(ctx, "E123456")
	require.NoError(t, err)

	_, err = svc.Update(ctx, "E123456", dto.UpdateDraftRequest{
		FieldValues: map[string]dto.RawValue{rules.FieldBusinessJustification: {Text: ""}},
	})
	require.NoError(t, err)
	store.drafts["E123456"].Step = models.StepReview

	_, err = svc.Submit(ctx, "E123456", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, submissions.created)
	assert.Equal(t, models.StepDetails, store.drafts["E123456"].Step)
}

func TestDraftServiceDebounceBuffersFieldEdits(t *testing.T) {
	svc, store, _, notifier := newTestDraftService(DraftConfig{DebounceInterval: time.Hour})
	ctx := context.Background()

	_, err := svc.Start(ctx, "E123456", dto.StartDraftRequest{AssetIDs: []string{"d1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)

	// A burst of keystrokes buffers in memory; last write wins.
	_, err = svc.Update(ctx, "E123456", dto.UpdateDraftRequest{
		FieldValues: map[string]dto.RawValue{rules.FieldBusinessJustification: {Text: "because"}},
	})
	require.NoError(t, err)
	_, err = svc.Update(ctx, "E123456", dto.UpdateDraftRequest{
		FieldValues: map[string]dto.RawValue{rules.FieldBusinessJustification: {Text: "because reasons"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)

	// Reads see the buffered draft before it flushes.
	res, err := svc.Get(ctx, "E123456")
	require.NoError(t, err)
	assert.Equal(t, "because reasons", res.Draft.FieldValues[rules.FieldBusinessJustification].Text)

	svc.Flush(ctx)
	assert.Equal(t, 2, store.saves)
	assert.Equal(t, "because reasons", store.drafts["E123456"].FieldValues[rules.FieldBusinessJustification].Text)
	assert.Equal(t, 1, notifier.draftSaves)
}

func TestDraftServiceStructuralEditsPersistImmediately(t *testing.T) {
	svc, store, _, _ := newTestDraftService(DraftConfig{DebounceInterval: time.Hour})
	ctx := context.Background()

	_, err := svc.Start(ctx, "E123456", dto.StartDraftRequest{
		AssetIDs:   []string{"d1"},
		AccessType: "human",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)

	// Prerequisite toggles do not wait out the debounce window.
	_, err = svc.SetPrereqStatus(ctx, "E123456", dto.SetPrereqStatusRequest{
		AssetID: "d1", PrereqID: rules.PrereqBatchID, Complete: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, store.saves)
	assert.Equal(t, models.PrereqComplete, store.drafts["E123456"].PrereqStatus.Get("d1", rules.PrereqBatchID))

	machine := "machine"
	_, err = svc.Update(ctx, "E123456", dto.UpdateDraftRequest{AccessType: &machine})
	require.NoError(t, err)
	assert.Equal(t, 3, store.saves)
	assert.Equal(t, models.AccessMachine, store.drafts["E123456"].AccessType)

	_, err = svc.AddAttachment(ctx, "E123456", models.FileAttachment{Name: "scan.pdf", Size: 64, MIMEType: "application/pdf"})
	require.NoError(t, err)
	assert.Equal(t, 4, store.saves)
}

func TestDraftServiceAttachmentSynchronous(t *testing.T) {
	svc, _, _, _ := newTestDraftService(DraftConfig{})
	ctx := context.Background()

	_, err := svc.Start(ctx, "E123456", dto.StartDraftRequest{
		AssetIDs:   []string{"d1"},
		AccessType: "human",
	})
	require.NoError(t, err)

	res, err := svc.AddAttachment(ctx, "E123456", models.FileAttachment{Name: "scan.pdf", Size: 512, MIMEType: "application/pdf"})
	require.NoError(t, err)
	assert.False(t, res.Pending)
	assert.False(t, res.Attachment.UploadedAt.IsZero())

	draft, err := svc.Get(ctx, "E123456")
	require.NoError(t, err)
	require.Len(t, draft.Draft.Attachments, 1)
	assert.Equal(t, "scan.pdf", draft.Draft.Attachments[0].Name)
}

func TestDraftServiceAttachmentMarksASVCompleteOnAllAssets(t *testing.T) {
	svc, store, _, _ := newTestDraftService(DraftConfig{})
	ctx := context.Background()

	_, err := svc.Start(ctx, "E123456", dto.StartDraftRequest{
		AssetIDs:   []string{"a1", "d1"},
		AccessType: "machine",
	})
	require.NoError(t, err)

	res, err := svc.AddAttachment(ctx, "E123456", models.FileAttachment{
		Name: "asv.pdf", Size: 128, MIMEType: "application/pdf", PrereqID: rules.PrereqASVScan,
	})
	require.NoError(t, err)
	assert.Equal(t, rules.PrereqASVScan, res.Attachment.PrereqID)

	stored := store.drafts["E123456"]
	assert.Equal(t, models.PrereqComplete, stored.PrereqStatus.Get("a1", rules.PrereqASVScan))
	assert.Equal(t, models.PrereqComplete, stored.PrereqStatus.Get("d1", rules.PrereqASVScan))

	// Evidence for other prerequisites leaves statuses alone.
	_, err = svc.AddAttachment(ctx, "E123456", models.FileAttachment{
		Name: "batch.txt", Size: 16, MIMEType: "text/plain", PrereqID: "bogus",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDraftServiceCancel(t *testing.T) {
	svc, _, _, _ := newTestDraftService(DraftConfig{})
	ctx := context.Background()

	_, err := svc.Start(ctx, "E123456", dto.StartDraftRequest{AssetIDs: []string{"d1"}})
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, "E123456"))

	_, err = svc.Get(ctx, "E123456")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDraftNotFound.Code, appErrors.FromError(err).Code)
}
