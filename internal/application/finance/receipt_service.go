package finance

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxReceiptSize caps receipt uploads when no limit is configured
const DefaultMaxReceiptSize int64 = 10 << 20

const receiptPrefix = "receipts"

// Receipt error codes
const (
	CodeReceiptTypeNotAllowed = "RECEIPT_TYPE_NOT_ALLOWED"
	CodeReceiptTooLarge       = "RECEIPT_TOO_LARGE"
	CodeReceiptNotFound       = "RECEIPT_NOT_FOUND"
)

var receiptExtensions = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
}

// ReceiptStorage is the object store receipts are uploaded to
type ReceiptStorage interface {
	GenerateUploadURL(ctx context.Context, key, contentType string, expiresIn time.Duration) (string, time.Time, error)
	GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
	ObjectExists(ctx context.Context, key string) (bool, error)
}

// ReceiptService hands out presigned URLs for payment receipts. Clients
// upload directly to storage and then reference the key in an abatement.
type ReceiptService struct {
	storage ReceiptStorage
	maxSize int64
	expiry  time.Duration
	logger  *zap.Logger
}

// NewReceiptService creates a ReceiptService
func NewReceiptService(storage ReceiptStorage, maxSize int64, expiry time.Duration, logger *zap.Logger) *ReceiptService {
	if maxSize <= 0 {
		maxSize = DefaultMaxReceiptSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptService{storage: storage, maxSize: maxSize, expiry: expiry, logger: logger}
}

// ReceiptKey builds receipts/<company>/<yyyy>/<mm>/<uuid><ext>
func ReceiptKey(companyID uuid.UUID, contentType string, now time.Time) (string, error) {
	ext, ok := receiptExtensions[normalizeContentType(contentType)]
	if !ok {
		return "", shared.NewDomainError(CodeReceiptTypeNotAllowed,
			fmt.Sprintf("Receipts of type %q are not accepted", contentType))
	}
	return path.Join(receiptPrefix, companyID.String(), now.UTC().Format("2006/01"), uuid.NewString()+ext), nil
}

func normalizeContentType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

func companyPrefix(companyID uuid.UUID) string {
	return receiptPrefix + "/" + companyID.String() + "/"
}

// RequestUpload validates the declared file and presigns an upload
func (s *ReceiptService) RequestUpload(ctx context.Context, cc shared.CompanyContext, req ReceiptUploadRequest) (*ReceiptUploadResponse, error) {
	if err := cc.Validate(); err != nil {
		return nil, err
	}
	if req.Size <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Receipt size must be positive")
	}
	if req.Size > s.maxSize {
		return nil, shared.NewDomainError(CodeReceiptTooLarge,
			fmt.Sprintf("Receipt exceeds the %d byte limit", s.maxSize))
	}
	key, err := ReceiptKey(cc.CompanyID, req.ContentType, time.Now())
	if err != nil {
		return nil, err
	}

	url, expiresAt, err := s.storage.GenerateUploadURL(ctx, key, normalizeContentType(req.ContentType), s.expiry)
	if err != nil {
		return nil, fmt.Errorf("failed to presign receipt upload: %w", err)
	}

	s.logger.Debug("receipt upload presigned",
		zap.String("company_id", cc.CompanyID.String()),
		zap.String("key", key),
		zap.String("file_name", req.FileName))

	return &ReceiptUploadResponse{Key: key, UploadURL: url, ExpiresAt: expiresAt}, nil
}

// Verify checks that key belongs to the company and was uploaded
func (s *ReceiptService) Verify(ctx context.Context, cc shared.CompanyContext, key string) error {
	if !strings.HasPrefix(key, companyPrefix(cc.CompanyID)) || strings.Contains(key, "..") {
		return shared.NewDomainError(shared.CodeInvalidInput, "Receipt key does not belong to this company")
	}
	exists, err := s.storage.ObjectExists(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to check receipt: %w", err)
	}
	if !exists {
		return shared.NewDomainError(CodeReceiptNotFound, "Receipt has not been uploaded")
	}
	return nil
}

// DownloadURL presigns a download for a stored receipt
func (s *ReceiptService) DownloadURL(ctx context.Context, cc shared.CompanyContext, key string) (*ReceiptDownloadResponse, error) {
	if !strings.HasPrefix(key, companyPrefix(cc.CompanyID)) {
		return nil, shared.ErrNotFound
	}
	url, expiresAt, err := s.storage.GenerateDownloadURL(ctx, key, s.expiry)
	if err != nil {
		return nil, fmt.Errorf("failed to presign receipt download: %w", err)
	}
	return &ReceiptDownloadResponse{Key: key, DownloadURL: url, ExpiresAt: expiresAt}, nil
}
