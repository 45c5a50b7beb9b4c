package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/course-market/services/storage"
	"github.com/sahilchouksey/course-market/utils/apperror"
	"github.com/sahilchouksey/course-market/utils/pdfvalidation"
)

// MaxUploadSize is the largest accepted upload in bytes
const MaxUploadSize = 5 * 1024 * 1024

// Upload purposes
const (
	UploadPurposeGeneral             = ""
	UploadPurposeCertificateTemplate = "certificate_template"
)

var allowedUploadTypes = map[string]string{
	"image/jpeg":      "images",
	"image/png":       "images",
	"application/pdf": "documents",
}

// UploadService validates uploaded files and hands them to the object store
type UploadService struct {
	store storage.Store
	now   func() time.Time
}

// NewUploadService creates a new upload service
func NewUploadService(store storage.Store) *UploadService {
	return &UploadService{store: store, now: time.Now}
}

// UploadResult describes a stored file
type UploadResult struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	PageCount   int    `json:"page_count,omitempty"`
}

// Upload checks size and sniffed content type, validates PDFs, and stores
// the file as images/ or documents/<unix millis>_<random>.<ext>
func (s *UploadService) Upload(ctx context.Context, data []byte, purpose string) (*UploadResult, error) {
	if len(data) == 0 {
		return nil, apperror.InvalidArgument("file is empty")
	}
	if len(data) > MaxUploadSize {
		return nil, apperror.InvalidArgument("file exceeds the %dMB limit", MaxUploadSize/(1024*1024))
	}

	mime := mimetype.Detect(data)
	contentType := mime.String()
	folder := ""
	for allowed, dir := range allowedUploadTypes {
		if mime.Is(allowed) {
			contentType = allowed
			folder = dir
			break
		}
	}
	if folder == "" {
		return nil, apperror.InvalidArgument("file type %s is not allowed; use JPEG, PNG or PDF", mime.String())
	}

	result := &UploadResult{ContentType: contentType, Size: len(data)}

	if contentType == "application/pdf" {
		limits := pdfvalidation.UploadLimits
		if purpose == UploadPurposeCertificateTemplate {
			limits = pdfvalidation.CertificateTemplateLimits
		}
		check := pdfvalidation.ValidatePDFBytes(data, limits)
		if !check.Valid {
			return nil, apperror.InvalidArgument("%s", check.Error)
		}
		result.PageCount = check.PageCount
	} else if purpose == UploadPurposeCertificateTemplate {
		return nil, apperror.InvalidArgument("certificate template must be a PDF")
	}

	suffix, err := randomSuffix()
	if err != nil {
		return nil, apperror.Internal("failed to name upload", err)
	}
	result.Key = fmt.Sprintf("%s/%d_%s%s", folder, s.now().UnixMilli(), suffix, mime.Extension())

	url, err := s.store.Put(ctx, result.Key, data, contentType)
	if err != nil {
		return nil, apperror.Internal("failed to store upload", err)
	}
	result.URL = url

	log.Infow("file uploaded", "key", result.Key, "content_type", contentType, "size", result.Size)
	return result, nil
}

func randomSuffix() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
