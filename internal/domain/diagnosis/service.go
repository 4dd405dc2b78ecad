package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitacare/portal/internal/domain/advisory"
	"github.com/vitacare/portal/internal/platform/blobstore"
	"github.com/vitacare/portal/pkg/pagination"
)

// FailureMessage replaces any analysis error shown to the patient.
const FailureMessage = "Unable to analyze the image. Please try again."

var ErrNotImage = errors.New("only image files can be analyzed")

var DefaultSort = pagination.Sort{Field: "created_at", Desc: true}

// Image is one uploaded picture to analyze.
type Image struct {
	FileName    string
	ContentType string
	Content     io.Reader
}

// Result is the outcome shown after an analysis. A failed analysis carries
// only Error and Message.
type Result struct {
	Error     bool                    `json:"error,omitempty"`
	Message   string                  `json:"message,omitempty"`
	Analysis  *advisory.ImageAnalysis `json:"analysis,omitempty"`
	Diagnosis *AIDiagnosis            `json:"diagnosis,omitempty"`
}

type Service struct {
	repo    Repository
	blobs   blobstore.BlobStore
	adapter *advisory.Adapter
	logger  zerolog.Logger
}

func NewService(repo Repository, blobs blobstore.BlobStore, adapter *advisory.Adapter, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		blobs:   blobs,
		adapter: adapter,
		logger:  logger.With().Str("component", "diagnosis").Logger(),
	}
}

// Analyze stores the image, asks for a reading and records it. Provider
// failures yield a Result with Error set and leave nothing behind; only
// input and storage problems are returned as errors.
func (s *Service) Analyze(ctx context.Context, patientID uuid.UUID, owner string, img Image) (*Result, error) {
	if !strings.HasPrefix(img.ContentType, "image/") {
		return nil, ErrNotImage
	}
	meta, err := s.blobs.Put(ctx, blobstore.Metadata{Owner: owner, FileName: img.FileName, ContentType: img.ContentType}, img.Content)
	if err != nil {
		return nil, err
	}
	content, _, err := s.blobs.Get(ctx, meta.ID)
	if err != nil {
		s.discard(ctx, meta.ID)
		return nil, fmt.Errorf("read image: %w", err)
	}

	analysis, err := advisory.Invoke[advisory.ImageAnalysis](ctx, s.adapter, advisory.ImagePrompt(blobstore.DataURL(meta.ContentType, content)))
	if err != nil {
		s.discard(ctx, meta.ID)
		return &Result{Error: true, Message: FailureMessage}, nil
	}

	d := &AIDiagnosis{
		PatientID:             patientID,
		ImageURL:              meta.URL(),
		Condition:             analysis.Condition,
		Confidence:            analysis.ConfidenceScore(),
		Severity:              analysis.Severity,
		RecommendedSpecialist: analysis.Specialist,
		Advice:                analysis.Advice,
		Precautions:           analysis.Precautions,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		s.logger.Error().Err(err).Msg("store diagnosis")
		s.discard(ctx, meta.ID)
		return &Result{Error: true, Message: FailureMessage}, nil
	}
	s.logger.Info().Str("diagnosis_id", d.ID.String()).Str("severity", d.Severity).Msg("image analyzed")
	return &Result{Analysis: analysis, Diagnosis: d}, nil
}

func (s *Service) discard(ctx context.Context, id uuid.UUID) {
	if err := s.blobs.Delete(ctx, id); err != nil && !errors.Is(err, blobstore.ErrBlobNotFound) {
		s.logger.Warn().Err(err).Str("blob_id", id.String()).Msg("orphaned image blob")
	}
}

func (s *Service) List(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]*AIDiagnosis, int, error) {
	return s.repo.ListByPatient(ctx, patientID, p)
}

// Recent returns up to limit diagnoses, newest first.
func (s *Service) Recent(ctx context.Context, patientID uuid.UUID, limit int) ([]*AIDiagnosis, error) {
	items, _, err := s.repo.ListByPatient(ctx, patientID, pagination.Params{Limit: limit, Sort: DefaultSort})
	return items, err
}
