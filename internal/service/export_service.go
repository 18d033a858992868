package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/accessdesk/access-api/internal/models"
	appErrors "github.com/accessdesk/access-api/pkg/errors"
	"github.com/accessdesk/access-api/pkg/export"
	"github.com/accessdesk/access-api/pkg/storage"
)

type exportRequestRepository interface {
	FindByID(ctx context.Context, id string) (*models.AccessRequest, error)
	ListByRequester(ctx context.Context, eid string, status *models.RequestStatus, page, pageSize int) ([]models.AccessRequest, int, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
}

type receiptRenderer interface {
	RenderReceipt(title string, rows []export.KV) ([]byte, error)
}

// ExportResult captures generated file metadata with a signed download token.
type ExportResult struct {
	RelativePath string
	Token        string
	ExpiresAt    time.Time
}

// ExportService renders request history exports and submission receipts.
type ExportService struct {
	requests exportRequestRepository
	storage  fileStorage
	csv      tableRenderer
	pdf      receiptRenderer
	signer   *storage.TokenSigner
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(requests exportRequestRepository, store fileStorage, signer *storage.TokenSigner, logger *zap.Logger, csv tableRenderer, pdf receiptRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		requests: requests,
		storage:  store,
		csv:      csv,
		pdf:      pdf,
		signer:   signer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var historyColumns = []string{"Request ID", "Asset", "Type", "Access", "Environment", "Status", "Current Approver", "Submitted"}

// RequestHistoryCSV renders the requester's full submission history as CSV.
func (s *ExportService) RequestHistoryCSV(ctx context.Context, eid string) ([]byte, string, error) {
	requests, _, err := s.requests.ListByRequester(ctx, eid, nil, 1, 100)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request history")
	}

	table := export.Table{Columns: historyColumns}
	for _, r := range requests {
		assetName, assetType := primaryAssetInfo(r)
		table.Rows = append(table.Rows, []string{
			r.ID,
			assetName,
			assetType,
			string(r.AccessType),
			string(r.Environment),
			statusLabel(r.Status),
			r.CurrentApprover(),
			r.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	payload, err := s.csv.Render(table)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	filename := fmt.Sprintf("requests_%s_%s.csv", sanitize(eid), s.now().Format("20060102_150405"))
	return payload, filename, nil
}

// Receipt renders a PDF receipt for one submitted request, stores it and
// returns a signed download token.
func (s *ExportService) Receipt(ctx context.Context, requestID string) (*ExportResult, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "request not found")
	}

	assetName, assetType := primaryAssetInfo(*request)
	rows := []export.KV{
		{Key: "Request ID", Value: request.ID},
		{Key: "Asset", Value: assetName},
		{Key: "Asset Type", Value: assetType},
		{Key: "Access Type", Value: string(request.AccessType)},
		{Key: "Environment", Value: string(request.Environment)},
		{Key: "Requester", Value: fmt.Sprintf("%s (%s)", request.RequesterName, request.RequesterEID)},
		{Key: "Status", Value: statusLabel(request.Status)},
		{Key: "Approver Path", Value: strings.Join(request.ApproverPath, " -> ")},
		{Key: "Submitted", Value: request.CreatedAt.Format("2006-01-02 15:04")},
	}
	for fieldID, value := range request.Fields {
		if value.IsZero() {
			continue
		}
		rows = append(rows, export.KV{Key: fieldID, Value: value.String()})
	}

	payload, err := s.pdf.RenderReceipt("Access Request Receipt", rows)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}

	filename := fmt.Sprintf("receipt_%s.pdf", sanitize(request.ID))
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store receipt")
	}

	token, expiresAt, err := s.signer.Sign(request.ID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign receipt url")
	}

	return &ExportResult{RelativePath: relPath, Token: token, ExpiresAt: expiresAt}, nil
}

// OpenByToken validates a download token and opens the referenced file.
func (s *ExportService) OpenByToken(token string) (*os.File, error) {
	_, relPath, err := s.signer.Verify(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export file not found")
	}
	return file, nil
}

func primaryAssetInfo(r models.AccessRequest) (string, string) {
	if len(r.Assets) == 0 {
		return "", ""
	}
	return r.Assets[0].Name, string(r.Assets[0].Type)
}

func sanitize(raw string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, raw)
}
