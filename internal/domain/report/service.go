package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitacare/portal/internal/platform/blobstore"
	"github.com/vitacare/portal/internal/platform/db"
	"github.com/vitacare/portal/internal/platform/notification"
	"github.com/vitacare/portal/pkg/pagination"
)

// ErrInvalidReportType rejects a report_type outside the fixed set.
var ErrInvalidReportType = errors.New("invalid report_type")

// DefaultSort lists newest reports first.
var DefaultSort = pagination.Sort{Field: "created_at", Desc: true}

// SortFields are the columns a report listing may be ordered by.
var SortFields = map[string]bool{"created_at": true, "report_date": true, "file_name": true}

// Notifier is the slice of notification.Notifier the service needs.
type Notifier interface {
	Notify(ctx context.Context, patientID uuid.UUID, templateID string, data map[string]string) (*notification.Notification, error)
}

// Upload is one incoming file plus its classification.
type Upload struct {
	FileName    string
	ContentType string
	ReportType  string
	Notes       string
	Content     io.Reader
}

type Service struct {
	repo     Repository
	blobs    blobstore.BlobStore
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, blobs blobstore.BlobStore, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		blobs:    blobs,
		notifier: notifier,
		logger:   logger.With().Str("component", "reports").Logger(),
		now:      time.Now,
	}
}

// Upload stores the file and records a report dated today. owner is the
// blob owner (the account email).
func (s *Service) Upload(ctx context.Context, patientID uuid.UUID, owner string, u Upload) (*MedicalReport, error) {
	if u.ReportType == "" {
		u.ReportType = TypeOther
	}
	if !ValidReportType(u.ReportType) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidReportType, u.ReportType)
	}
	meta, err := s.blobs.Put(ctx, blobstore.Metadata{Owner: owner, FileName: u.FileName, ContentType: u.ContentType}, u.Content)
	if err != nil {
		return nil, err
	}

	m := s.fromBlob(patientID, meta, u.ReportType)
	m.Notes = u.Notes
	if err := s.repo.Create(ctx, m); err != nil {
		if derr := s.blobs.Delete(ctx, meta.ID); derr != nil {
			s.logger.Warn().Err(derr).Str("blob_id", meta.ID.String()).Msg("orphaned blob after failed report insert")
		}
		return nil, fmt.Errorf("create report: %w", err)
	}
	s.announce(ctx, m)
	return m, nil
}

// AttachUpload records a report for a blob uploaded before the patient
// existed (onboarding). The blob must belong to owner.
func (s *Service) AttachUpload(ctx context.Context, patientID uuid.UUID, owner string, blobID uuid.UUID) error {
	meta, err := s.blobs.Stat(ctx, blobID)
	if err != nil {
		return err
	}
	if meta.Owner != owner {
		return blobstore.ErrBlobNotFound
	}
	m := s.fromBlob(patientID, meta, TypeOther)
	if err := s.repo.Create(ctx, m); err != nil {
		return err
	}
	s.announce(ctx, m)
	return nil
}

func (s *Service) fromBlob(patientID uuid.UUID, meta *blobstore.Metadata, reportType string) *MedicalReport {
	blobID := meta.ID
	now := s.now()
	return &MedicalReport{
		PatientID:  patientID,
		BlobID:     &blobID,
		FileName:   meta.FileName,
		FileURL:    meta.URL(),
		FileType:   meta.Extension(),
		ReportType: reportType,
		ReportDate: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
	}
}

func (s *Service) announce(ctx context.Context, m *MedicalReport) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, m.PatientID, notification.TemplateReportUploaded,
		map[string]string{"file_name": m.FileName}); err != nil {
		s.logger.Warn().Err(err).Str("report_id", m.ID.String()).Msg("report notification failed")
	}
}

func (s *Service) List(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]*MedicalReport, int, error) {
	if p.Sort.Field == "" {
		p.Sort = DefaultSort
	}
	return s.repo.ListByPatient(ctx, patientID, p)
}

// All returns every report of the patient, newest first.
func (s *Service) All(ctx context.Context, patientID uuid.UUID) ([]*MedicalReport, error) {
	items, _, err := s.repo.ListByPatient(ctx, patientID, pagination.Params{Limit: pagination.MaxLimit, Sort: DefaultSort})
	return items, err
}

func (s *Service) Count(ctx context.Context, patientID uuid.UUID) (int, error) {
	return s.repo.CountByPatient(ctx, patientID)
}

// Delete removes the patient's report and its stored file. Reports of other
// patients are reported as not found.
func (s *Service) Delete(ctx context.Context, patientID, id uuid.UUID) error {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if m.PatientID != patientID {
		return db.ErrNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if m.BlobID != nil {
		if err := s.blobs.Delete(ctx, *m.BlobID); err != nil && !errors.Is(err, blobstore.ErrBlobNotFound) {
			s.logger.Warn().Err(err).Str("blob_id", m.BlobID.String()).Msg("blob delete failed")
		}
	}
	return nil
}
