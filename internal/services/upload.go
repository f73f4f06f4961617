package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/whomimohshukla/freelancehub/internal/config"
	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/pkg/logger"
	"github.com/whomimohshukla/freelancehub/pkg/response"
	"gorm.io/gorm"
)

var uploadPurposes = map[string]bool{
	models.UploadPurposeAvatar:      true,
	models.UploadPurposeAttachment:  true,
	models.UploadPurposePortfolio:   true,
	models.UploadPurposeDeliverable: true,
}

type UploadService struct {
	db  *gorm.DB
	cfg *config.StorageConfig
}

func NewUploadService(db *gorm.DB, cfg *config.StorageConfig) *UploadService {
	return &UploadService{db: db, cfg: cfg}
}

func (s *UploadService) maxBytes() int64 {
	mb := s.cfg.MaxUploadMB
	if mb <= 0 {
		mb = 10
	}
	return int64(mb) << 20
}

// MaxBytes is the request body limit handlers should apply
func (s *UploadService) MaxBytes() int64 {
	return s.maxBytes()
}

func (s *UploadService) allowed(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		for _, t := range s.cfg.AllowedTypes {
			if m.Is(t) {
				return true
			}
		}
	}
	return false
}

// Path returns where a stored file lives on disk
func (s *UploadService) Path(storedName string) string {
	return filepath.Join(s.cfg.UploadDir, filepath.Base(storedName))
}

func (s *UploadService) publicURL(storedName string) string {
	base := strings.TrimSuffix(s.cfg.PublicBaseURL, "/")
	if base == "" {
		base = "/files"
	}
	return base + "/" + storedName
}

// Save sniffs, checks and stores an uploaded file
func (s *UploadService) Save(actor Actor, fh *multipart.FileHeader, purpose string) (*models.Upload, error) {
	if purpose == "" {
		purpose = models.UploadPurposeAttachment
	}
	if !uploadPurposes[purpose] {
		return nil, response.NewBadRequest("invalid purpose")
	}
	if fh.Size <= 0 {
		return nil, response.NewBadRequest("file is empty")
	}
	if fh.Size > s.maxBytes() {
		return nil, response.NewBadRequest(fmt.Sprintf("file exceeds %d MB", s.maxBytes()>>20))
	}

	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	mt, err := mimetype.DetectReader(src)
	if err != nil {
		return nil, fmt.Errorf("detect file type: %w", err)
	}
	if !s.allowed(mt) {
		return nil, response.NewBadRequest("file type " + mt.String() + " is not allowed")
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return nil, err
	}
	stored := uuid.NewString() + mt.Extension()
	dst, err := os.OpenFile(s.Path(stored), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	written, err := io.Copy(dst, io.LimitReader(src, s.maxBytes()+1))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err == nil && written > s.maxBytes() {
		err = response.NewBadRequest(fmt.Sprintf("file exceeds %d MB", s.maxBytes()>>20))
	}
	if err != nil {
		os.Remove(s.Path(stored))
		return nil, err
	}

	upload := models.Upload{
		OwnerID:      actor.UserID,
		OriginalName: truncate(filepath.Base(fh.Filename), 255),
		StoredName:   stored,
		MimeType:     mt.String(),
		Size:         written,
		Purpose:      purpose,
		URL:          s.publicURL(stored),
	}
	if err := s.db.Create(&upload).Error; err != nil {
		os.Remove(s.Path(stored))
		return nil, err
	}
	return &upload, nil
}

func (s *UploadService) Get(id uint) (*models.Upload, error) {
	var upload models.Upload
	if err := s.db.First(&upload, id).Error; err != nil {
		return nil, notFoundOr(err, "upload not found")
	}
	return &upload, nil
}

// Delete removes the record and the file; owner or admin
func (s *UploadService) Delete(actor Actor, id uint) error {
	upload, err := s.Get(id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && upload.OwnerID != actor.UserID {
		return response.NewForbidden("only the owner can delete this file")
	}
	if err := s.db.Delete(upload).Error; err != nil {
		return err
	}
	if err := os.Remove(s.Path(upload.StoredName)); err != nil && !os.IsNotExist(err) {
		logger.Warn().Err(err).Str("file", upload.StoredName).Msg("[Upload] failed to remove file")
	}
	return nil
}
