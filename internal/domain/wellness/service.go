package wellness

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

const tipLimit = 10

var (
	ErrInvalidMeasurement = errors.New("weight and height must be positive")
	ErrInvalidTip         = errors.New("tip title and content are required")
)

type Service struct {
	tips   TipRepository
	logger zerolog.Logger
}

func NewService(tips TipRepository, logger zerolog.Logger) *Service {
	return &Service{tips: tips, logger: logger.With().Str("component", "wellness").Logger()}
}

func (s *Service) BMI(weightKg, heightCm float64) (BMI, error) {
	if weightKg <= 0 || heightCm <= 0 {
		return BMI{}, ErrInvalidMeasurement
	}
	return ComputeBMI(weightKg, heightCm), nil
}

// Tips returns the newest published tips, or DefaultTips when there are
// none or they cannot be read.
func (s *Service) Tips(ctx context.Context) []*Tip {
	items, err := s.tips.Latest(ctx, tipLimit)
	if err != nil {
		s.logger.Warn().Err(err).Msg("load health tips, serving defaults")
	}
	if len(items) > 0 && err == nil {
		return items
	}
	out := make([]*Tip, len(DefaultTips))
	for i := range DefaultTips {
		t := DefaultTips[i]
		out[i] = &t
	}
	return out
}

// SeedTips publishes DefaultTips when the table is empty.
func (s *Service) SeedTips(ctx context.Context) (int, error) {
	existing, err := s.tips.Latest(ctx, 1)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for i := range DefaultTips {
		t := DefaultTips[i]
		if err := s.tips.Create(ctx, &t); err != nil {
			return i, fmt.Errorf("create tip %q: %w", t.Title, err)
		}
	}
	return len(DefaultTips), nil
}

// Publish adds a tip to the published set.
func (s *Service) Publish(ctx context.Context, t *Tip) error {
	t.Title = strings.TrimSpace(t.Title)
	t.Content = strings.TrimSpace(t.Content)
	if t.Title == "" || t.Content == "" {
		return ErrInvalidTip
	}
	if err := s.tips.Create(ctx, t); err != nil {
		return fmt.Errorf("create tip: %w", err)
	}
	s.logger.Info().Str("title", t.Title).Msg("health tip published")
	return nil
}
