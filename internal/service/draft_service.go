package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/accessdesk/access-api/internal/dto"
	"github.com/accessdesk/access-api/internal/models"
	"github.com/accessdesk/access-api/internal/rules"
	appErrors "github.com/accessdesk/access-api/pkg/errors"
)

type draftStore interface {
	Get(ctx context.Context, ownerEID string) (*models.DraftRequest, error)
	Save(ctx context.Context, draft *models.DraftRequest) error
	Delete(ctx context.Context, ownerEID string) error
}

type draftAssetRepository interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Asset, error)
}

type draftProfileRepository interface {
	FindByEID(ctx context.Context, eid string) (*models.UserProfile, error)
}

type submissionRepository interface {
	CreateBatch(ctx context.Context, requests []models.AccessRequest) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type submissionNotifier interface {
	RequestSubmitted(requests []models.AccessRequest)
	DraftSaved(draft models.DraftRequest)
	PrereqsIncomplete(draft models.DraftRequest)
}

// DraftConfig tunes wizard persistence behaviour. Zero values make every
// write synchronous, which is what the tests rely on.
type DraftConfig struct {
	DebounceInterval time.Duration
	UploadDelay      time.Duration
}

type pendingWrite struct {
	draft *models.DraftRequest
	timer *time.Timer
}

// DraftService owns the request wizard: a strictly linear four step flow with
// guarded forward transitions. Mutations buffer in memory and flush to the
// store after a quiet period, so a burst of keystrokes costs one write.
type DraftService struct {
	store     draftStore
	assets    draftAssetRepository
	profiles  draftProfileRepository
	requests  submissionRepository
	notifier  submissionNotifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    DraftConfig
	now       func() time.Time

	mu      sync.Mutex
	pending map[string]*pendingWrite
}

// NewDraftService constructs the service.
func NewDraftService(store draftStore, assets draftAssetRepository, profiles draftProfileRepository, requests submissionRepository, notifier submissionNotifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config DraftConfig) *DraftService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DraftService{
		store:     store,
		assets:    assets,
		profiles:  profiles,
		requests:  requests,
		notifier:  notifier,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
		pending:   make(map[string]*pendingWrite),
	}
}

// Start opens a wizard session for the selected assets, replacing any
// existing draft for the owner. Prerequisites satisfiable from the profile
// are marked auto immediately.
func (s *DraftService) Start(ctx context.Context, ownerEID string, req dto.StartDraftRequest) (*dto.DraftResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid draft payload")
	}

	assets, err := s.assets.FindByIDs(ctx, req.AssetIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assets")
	}
	if len(assets) != len(req.AssetIDs) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "one or more assets not found")
	}

	environment := models.Environment(req.Environment)
	if environment == "" {
		environment = models.EnvDev
	}

	draft := &models.DraftRequest{
		ID:           uuid.NewString(),
		OwnerEID:     ownerEID,
		Assets:       assets,
		AccessType:   models.AccessType(req.AccessType),
		Environment:  environment,
		Step:         models.StepPrerequisites,
		PrereqStatus: make(models.PrereqStatusMap),
		FieldValues:  make(models.FieldValueMap),
		LastSavedAt:  s.now(),
	}
	if len(assets) > 0 {
		draft.ActiveAssetID = assets[0].ID
	}

	profile := s.loadProfile(ctx, ownerEID)
	s.applyAutoVerify(draft, profile)
	if fields := s.contextFields(draft); len(fields) > 0 {
		draft.FieldValues = rules.DefaultValues(fields, profile)
	}

	if err := s.store.Save(ctx, draft); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist draft")
	}
	return s.buildResponse(draft), nil
}

// Get restores the owner's active draft. A draft that already carries an
// access type resumes on the details step rather than replaying step one.
func (s *DraftService) Get(ctx context.Context, ownerEID string) (*dto.DraftResponse, error) {
	draft, err := s.loadDraft(ctx, ownerEID)
	if err != nil {
		return nil, err
	}
	if draft.AccessType != "" && draft.Step == models.StepPrerequisites {
		draft.Step = models.StepDetails
		s.saveNow(draft)
	}
	return s.buildResponse(draft), nil
}

// Update applies partial wizard state. Field values are coerced against the
// catalog before they are stored and their write is debounced; structural
// members (access type, environment, active asset, roles, overrides) persist
// immediately.
func (s *DraftService) Update(ctx context.Context, ownerEID string, req dto.UpdateDraftRequest) (*dto.DraftResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid draft payload")
	}

	draft, err := s.loadDraft(ctx, ownerEID)
	if err != nil {
		return nil, err
	}

	if req.AccessType != nil {
		draft.AccessType = models.AccessType(*req.AccessType)
	}
	if req.Environment != nil {
		draft.Environment = models.Environment(*req.Environment)
		draft.FieldValues[rules.FieldEnvironment] = models.FieldValue{Kind: models.FieldSelect, Text: *req.Environment}
	}
	if req.ActiveAssetID != nil {
		if !draftHasAsset(draft, *req.ActiveAssetID) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "active asset is not part of this draft")
		}
		draft.ActiveAssetID = *req.ActiveAssetID
	}

	for fieldID, raw := range req.FieldValues {
		field, ok := rules.FieldByID(fieldID)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown field "+fieldID)
		}
		value, err := rules.CoerceValue(field, raw.Text, raw.List)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid field value")
		}
		draft.FieldValues[fieldID] = value
		if fieldID == rules.FieldEnvironment && value.Text != "" {
			draft.Environment = models.Environment(value.Text)
		}
	}

	if req.DatasetRoles != nil {
		if draft.DatasetRoles == nil {
			draft.DatasetRoles = make(map[string][]string)
		}
		for assetID, roleIDs := range req.DatasetRoles {
			draft.DatasetRoles[assetID] = roleIDs
		}
	}
	if req.CbtOverrides != nil {
		if draft.CbtOverrides == nil {
			draft.CbtOverrides = make(map[string]map[string]bool)
		}
		for assetID, overrides := range req.CbtOverrides {
			draft.CbtOverrides[assetID] = overrides
		}
	}

	structural := req.AccessType != nil || req.Environment != nil || req.ActiveAssetID != nil ||
		req.DatasetRoles != nil || req.CbtOverrides != nil
	if structural {
		s.saveNow(draft)
	} else {
		s.scheduleSave(draft)
	}
	return s.buildResponse(draft), nil
}

// SetPrereqStatus toggles a prerequisite for one asset. Verifiable entries
// flip to auto when completed, everything else to complete.
func (s *DraftService) SetPrereqStatus(ctx context.Context, ownerEID string, req dto.SetPrereqStatusRequest) (*dto.DraftResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid prerequisite payload")
	}

	draft, err := s.loadDraft(ctx, ownerEID)
	if err != nil {
		return nil, err
	}
	if !draftHasAsset(draft, req.AssetID) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "asset is not part of this draft")
	}
	prereq, ok := rules.PrerequisiteByID(req.PrereqID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown prerequisite "+req.PrereqID)
	}

	status := models.PrereqIncomplete
	if req.Complete {
		status = models.PrereqComplete
		if prereq.Verifiable {
			status = models.PrereqAuto
		}
	}
	draft.PrereqStatus.Set(req.AssetID, req.PrereqID, status)

	s.saveNow(draft)
	return s.buildResponse(draft), nil
}

// Autofill fills the draft with demo assumptions: a machine/prod context,
// default field values for that context, every prerequisite satisfied and a
// canned ASV scan attachment standing in for the real evidence upload.
func (s *DraftService) Autofill(ctx context.Context, ownerEID string) (*dto.DraftResponse, error) {
	draft, err := s.loadDraft(ctx, ownerEID)
	if err != nil {
		return nil, err
	}

	draft.AccessType = models.AccessMachine
	draft.Environment = models.EnvProd
	draft.PrereqStatus = rules.MarkPrereqsComplete(draft.Assets, draft.AccessType, draft.Environment)

	profile := s.loadProfile(ctx, ownerEID)
	if primary := draft.PrimaryAsset(); primary != nil {
		draft.FieldValues = rules.DefaultValuesForContext(draft.AccessType, primary.Type, draft.Environment, profile, s.now())
	}

	draft.Attachments = []models.FileAttachment{{
		Name:       "asv_scan_results_2024.pdf",
		Size:       245760,
		MIMEType:   "application/pdf",
		PrereqID:   rules.PrereqASVScan,
		UploadedAt: s.now(),
	}}

	s.saveNow(draft)
	return s.buildResponse(draft), nil
}

// Step drives wizard navigation. Forward moves are guarded; a failed guard
// leaves the draft where it is and reports the blocking reason instead of
// failing the call. Back is unconditional, goto only ever moves backward, and
// the review step exits through Submit alone.
func (s *DraftService) Step(ctx context.Context, ownerEID string, req dto.StepRequest) (*dto.DraftResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid step payload")
	}

	draft, err := s.loadDraft(ctx, ownerEID)
	if err != nil {
		return nil, err
	}

	switch req.Action {
	case "next":
		switch draft.Step {
		case models.StepPrerequisites:
			if s.canLeavePrerequisites(draft) {
				draft.Step = models.StepDetails
			}
		case models.StepDetails:
			if len(s.fieldErrors(draft)) == 0 {
				draft.Step = models.StepReview
			}
		case models.StepReview:
			// Confirmation is only reachable through Submit; navigating past
			// review would claim a submission that never happened.
			return nil, appErrors.Clone(appErrors.ErrStepBlocked, "review is completed by submitting the request")
		}
	case "back":
		if draft.Step == models.StepDetails || draft.Step == models.StepReview {
			draft.Step--
		}
	case "goto":
		target := models.WizardStep(req.Target)
		if target >= models.StepPrerequisites && target <= draft.Step {
			draft.Step = target
		}
	}

	s.saveNow(draft)
	return s.buildResponse(draft), nil
}

// AddAttachment records an evidence upload on the draft. A configured upload
// delay defers the attach to emulate the storage round trip; zero attaches
// synchronously. Evidence uploaded against the ASV scan prerequisite marks
// that prerequisite complete on every asset in the draft.
func (s *DraftService) AddAttachment(ctx context.Context, ownerEID string, attachment models.FileAttachment) (*dto.AttachmentResponse, error) {
	draft, err := s.loadDraft(ctx, ownerEID)
	if err != nil {
		return nil, err
	}
	if attachment.PrereqID != "" {
		if _, ok := rules.PrerequisiteByID(attachment.PrereqID); !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown prerequisite "+attachment.PrereqID)
		}
	}

	attachment.UploadedAt = s.now()

	if s.config.UploadDelay > 0 {
		time.AfterFunc(s.config.UploadDelay, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if pw, ok := s.pending[ownerEID]; ok {
				applyAttachment(pw.draft, attachment)
				return
			}
			bg := context.Background()
			current, err := s.store.Get(bg, ownerEID)
			if err != nil {
				return
			}
			applyAttachment(current, attachment)
			if err := s.store.Save(bg, current); err != nil {
				s.logger.Warn("failed to persist delayed attachment", zap.String("owner", ownerEID), zap.Error(err))
			}
		})
		return &dto.AttachmentResponse{Attachment: attachment, Pending: true}, nil
	}

	applyAttachment(draft, attachment)
	s.saveNow(draft)
	return &dto.AttachmentResponse{Attachment: attachment, Pending: false}, nil
}

// applyAttachment appends the attachment and, for ASV scan evidence, flips
// the prerequisite to complete across all of the draft's assets.
func applyAttachment(draft *models.DraftRequest, attachment models.FileAttachment) {
	draft.Attachments = append(draft.Attachments, attachment)
	if attachment.PrereqID != rules.PrereqASVScan {
		return
	}
	if draft.PrereqStatus == nil {
		draft.PrereqStatus = make(models.PrereqStatusMap)
	}
	for _, asset := range draft.Assets {
		draft.PrereqStatus.Set(asset.ID, rules.PrereqASVScan, models.PrereqComplete)
	}
}

// Cancel discards the owner's draft.
func (s *DraftService) Cancel(ctx context.Context, ownerEID string) error {
	s.dropPending(ownerEID)
	if err := s.store.Delete(ctx, ownerEID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to discard draft")
	}
	return nil
}

// Submit finalizes the wizard from the review step. Prerequisites and fields
// are revalidated defensively; a failure routes the wizard back to the
// offending step instead of submitting partially. On success one access
// request per asset is created atomically, the draft is cleared and the
// notification pipeline is fed.
func (s *DraftService) Submit(ctx context.Context, ownerEID string, meta models.LoginRequest) (*dto.SubmitDraftResponse, error) {
	draft, err := s.loadDraft(ctx, ownerEID)
	if err != nil {
		return nil, err
	}
	if draft.Step != models.StepReview {
		return nil, appErrors.Clone(appErrors.ErrStepBlocked, "draft has not reached the review step")
	}
	if draft.AccessType == "" {
		return nil, appErrors.Clone(appErrors.ErrStepBlocked, "access type not selected")
	}
	if !rules.AreAllAssetsPrereqsComplete(draft.PrereqStatus, draft.Assets, draft.AccessType, draft.Environment) {
		draft.Step = models.StepPrerequisites
		s.saveNow(draft)
		if s.notifier != nil {
			s.notifier.PrereqsIncomplete(*draft)
		}
		return nil, appErrors.Clone(appErrors.ErrStepBlocked, "prerequisites are incomplete")
	}
	if errs := s.fieldErrors(draft); len(errs) > 0 {
		draft.Step = models.StepDetails
		s.saveNow(draft)
		return nil, appErrors.Clone(appErrors.ErrValidation, "submission failed validation")
	}

	profile := s.loadProfile(ctx, ownerEID)
	requests := s.fanOut(draft, profile)

	if err := s.requests.CreateBatch(ctx, requests); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist requests")
	}
	s.metrics.RecordSubmission(len(requests))

	s.dropPending(ownerEID)
	if err := s.store.Delete(ctx, ownerEID); err != nil {
		s.logger.Warn("failed to clear submitted draft", zap.String("owner", ownerEID), zap.Error(err))
	}

	for i := range requests {
		if err := s.requests.CreateAuditLog(ctx, &models.AuditLog{
			Action:     models.AuditActionRequestSubmit,
			Resource:   "access_request",
			ResourceID: &requests[i].ID,
			IPAddress:  meta.IP,
			UserAgent:  meta.UserAgent,
		}); err != nil {
			s.logger.Warn("failed to record submission audit log", zap.Error(err))
		}
	}

	if s.notifier != nil {
		s.notifier.RequestSubmitted(requests)
	}

	return &dto.SubmitDraftResponse{Requests: requests}, nil
}

// Flush writes every debounced draft immediately. Called on shutdown.
func (s *DraftService) Flush(ctx context.Context) {
	s.mu.Lock()
	drafts := make([]*models.DraftRequest, 0, len(s.pending))
	for owner, pw := range s.pending {
		pw.timer.Stop()
		drafts = append(drafts, pw.draft)
		delete(s.pending, owner)
	}
	s.mu.Unlock()

	for _, draft := range drafts {
		s.persist(ctx, draft)
	}
}

func (s *DraftService) loadDraft(ctx context.Context, ownerEID string) (*models.DraftRequest, error) {
	s.mu.Lock()
	if pw, ok := s.pending[ownerEID]; ok {
		draft := pw.draft
		s.mu.Unlock()
		return draft, nil
	}
	s.mu.Unlock()

	draft, err := s.store.Get(ctx, ownerEID)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrDraftNotFound.Code {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load draft")
	}
	if draft.PrereqStatus == nil {
		draft.PrereqStatus = make(models.PrereqStatusMap)
	}
	if draft.FieldValues == nil {
		draft.FieldValues = make(models.FieldValueMap)
	}
	return draft, nil
}

// saveNow persists the draft synchronously, superseding any buffered write
// for the same owner. Structural changes (context picks, prerequisite
// toggles, attachments, navigation) go through here; only field-value edits
// ride the debounce.
func (s *DraftService) saveNow(draft *models.DraftRequest) {
	s.dropPending(draft.OwnerEID)
	draft.LastSavedAt = s.now()
	s.persist(context.Background(), draft)
}

// scheduleSave buffers the draft and arms the debounce timer. With no
// debounce configured the write happens inline.
func (s *DraftService) scheduleSave(draft *models.DraftRequest) {
	draft.LastSavedAt = s.now()

	if s.config.DebounceInterval <= 0 {
		s.persist(context.Background(), draft)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	owner := draft.OwnerEID
	if pw, ok := s.pending[owner]; ok {
		pw.draft = draft
		pw.timer.Reset(s.config.DebounceInterval)
		return
	}
	pw := &pendingWrite{draft: draft}
	pw.timer = time.AfterFunc(s.config.DebounceInterval, func() { s.flush(owner) })
	s.pending[owner] = pw
}

func (s *DraftService) flush(ownerEID string) {
	s.mu.Lock()
	pw, ok := s.pending[ownerEID]
	if ok {
		delete(s.pending, ownerEID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	s.persist(context.Background(), pw.draft)
}

// persist writes one draft to the store. Failures are logged and swallowed:
// a lost autosave is recoverable, a blocked wizard is not.
func (s *DraftService) persist(ctx context.Context, draft *models.DraftRequest) {
	if err := s.store.Save(ctx, draft); err != nil {
		s.logger.Warn("failed to persist draft", zap.String("owner", draft.OwnerEID), zap.Error(err))
	}
	s.metrics.RecordDraftSave()
	if s.notifier != nil {
		s.notifier.DraftSaved(*draft)
	}
}

func (s *DraftService) dropPending(ownerEID string) {
	s.mu.Lock()
	if pw, ok := s.pending[ownerEID]; ok {
		pw.timer.Stop()
		delete(s.pending, ownerEID)
	}
	s.mu.Unlock()
}

func (s *DraftService) loadProfile(ctx context.Context, eid string) *models.UserProfile {
	profile, err := s.profiles.FindByEID(ctx, eid)
	if err != nil {
		return nil
	}
	return profile
}

func (s *DraftService) applyAutoVerify(draft *models.DraftRequest, profile *models.UserProfile) {
	if profile == nil {
		return
	}
	for _, asset := range draft.Assets {
		prereqs := rules.PrereqsForContext(draft.AccessType, asset.Type, draft.Environment)
		for id := range rules.AutoVerifyPrereqs(profile, prereqs) {
			draft.PrereqStatus.Set(asset.ID, id, models.PrereqAuto)
		}
	}
}

func (s *DraftService) canLeavePrerequisites(draft *models.DraftRequest) bool {
	return draft.AccessType != "" &&
		rules.AreAllAssetsPrereqsComplete(draft.PrereqStatus, draft.Assets, draft.AccessType, draft.Environment)
}

func (s *DraftService) contextFields(draft *models.DraftRequest) []models.AccessField {
	primary := draft.PrimaryAsset()
	if primary == nil || draft.AccessType == "" {
		return nil
	}
	return rules.FieldsForContext(draft.AccessType, primary.Type, draft.Environment)
}

func (s *DraftService) fieldErrors(draft *models.DraftRequest) []rules.FieldError {
	fields := s.contextFields(draft)
	if len(fields) == 0 {
		return nil
	}
	return rules.ValidateFields(fields, draft.FieldValues)
}

func (s *DraftService) fanOut(draft *models.DraftRequest, profile *models.UserProfile) []models.AccessRequest {
	now := s.now()
	requester := requesterIdentity(draft, profile)

	requests := make([]models.AccessRequest, 0, len(draft.Assets))
	for _, asset := range draft.Assets {
		req := models.AccessRequest{
			ID:                   uuid.NewString(),
			Assets:               models.AssetList{asset},
			AccessType:           draft.AccessType,
			Environment:          draft.Environment,
			RequesterEID:         requester.EID,
			RequesterName:        requester.Name,
			RequesterTitle:       requester.Title,
			RequesterLOB:         requester.LOB,
			Fields:               draft.FieldValues,
			Status:               models.StatusPendingManager,
			ApproverPath:         rules.ApproverPath(draft.AccessType, asset.Type, draft.Environment),
			CurrentApproverIndex: 0,
			Attachments:          draft.Attachments,
			SelectedRoles:        draft.DatasetRoles[asset.ID],
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		requests = append(requests, req)
	}
	return requests
}

func (s *DraftService) buildResponse(draft *models.DraftRequest) *dto.DraftResponse {
	resp := &dto.DraftResponse{
		Draft:         draft,
		Prerequisites: rules.PrereqsByAsset(draft.Assets, draft.AccessType, draft.Environment),
		Fields:        s.contextFields(draft),
	}
	if primary := draft.PrimaryAsset(); primary != nil && draft.AccessType != "" {
		resp.ApproverPath = rules.ApproverPath(draft.AccessType, primary.Type, draft.Environment)
	}

	switch draft.Step {
	case models.StepPrerequisites:
		resp.CanAdvance = s.canLeavePrerequisites(draft)
		if !resp.CanAdvance {
			if draft.AccessType == "" {
				resp.BlockReason = "select an access type to continue"
			} else {
				resp.BlockReason = "complete all prerequisites to continue"
			}
		}
	case models.StepDetails:
		errs := s.fieldErrors(draft)
		resp.CanAdvance = len(errs) == 0
		if !resp.CanAdvance {
			resp.BlockReason = "resolve the highlighted field errors to continue"
		}
		for _, e := range errs {
			resp.FieldErrors = append(resp.FieldErrors, dto.FieldErrorItem{FieldID: e.FieldID, Message: e.Message})
		}
	default:
		resp.CanAdvance = true
	}
	return resp
}

func draftHasAsset(draft *models.DraftRequest, assetID string) bool {
	for _, a := range draft.Assets {
		if a.ID == assetID {
			return true
		}
	}
	return false
}

type identity struct {
	EID   string
	Name  string
	Title string
	LOB   string
}

func requesterIdentity(draft *models.DraftRequest, profile *models.UserProfile) identity {
	id := identity{EID: draft.OwnerEID}
	if profile != nil {
		id.EID = profile.EID
		id.Name = profile.Name
		id.Title = profile.Title
		id.LOB = profile.LOB
	}
	if v, ok := draft.FieldValues[rules.FieldEID]; ok && v.Text != "" {
		id.EID = v.Text
	}
	if v, ok := draft.FieldValues[rules.FieldTitle]; ok && v.Text != "" {
		id.Title = v.Text
	}
	if v, ok := draft.FieldValues[rules.FieldLOB]; ok && v.Text != "" {
		id.LOB = v.Text
	}
	return id
}
