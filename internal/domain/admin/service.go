// Package admin is the operator console: background job control, the live
// dispatch board and wellness publishing.
package admin

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitacare/portal/internal/domain/emergency"
	"github.com/vitacare/portal/internal/domain/wellness"
	"github.com/vitacare/portal/internal/platform/jobs"
)

type JobRunner interface {
	Stats() map[string]jobs.Stats
	RunNow(ctx context.Context, name string) error
}

type Dispatch interface {
	Active() int
	Cancel(ctx context.Context, id uuid.UUID) (*emergency.Request, error)
}

type Presence interface {
	ClientCount() int
}

type TipPublisher interface {
	Publish(ctx context.Context, t *wellness.Tip) error
}

// Overview is a point-in-time snapshot of the running instance.
type Overview struct {
	ActiveDispatches int                   `json:"active_dispatches"`
	ConnectedClients int                   `json:"connected_clients"`
	Jobs             map[string]jobs.Stats `json:"jobs"`
	StartedAt        time.Time             `json:"started_at"`
	Uptime           string                `json:"uptime"`
}

type Service struct {
	jobs      JobRunner
	dispatch  Dispatch
	presence  Presence
	tips      TipPublisher
	logger    zerolog.Logger
	startedAt time.Time
	now       func() time.Time
}

func NewService(jobs JobRunner, dispatch Dispatch, presence Presence, tips TipPublisher, logger zerolog.Logger) *Service {
	return &Service{
		jobs:      jobs,
		dispatch:  dispatch,
		presence:  presence,
		tips:      tips,
		logger:    logger.With().Str("component", "admin").Logger(),
		startedAt: time.Now().UTC(),
		now:       time.Now,
	}
}

func (s *Service) Overview() Overview {
	return Overview{
		ActiveDispatches: s.dispatch.Active(),
		ConnectedClients: s.presence.ClientCount(),
		Jobs:             s.jobs.Stats(),
		StartedAt:        s.startedAt,
		Uptime:           s.now().Sub(s.startedAt).Truncate(time.Second).String(),
	}
}

// RunJob runs a registered job now and returns its updated counters.
func (s *Service) RunJob(ctx context.Context, name, actor string) (jobs.Stats, error) {
	s.logger.Info().Str("job", name).Str("actor", actor).Msg("manual job run")
	err := s.jobs.RunNow(ctx, name)
	return s.jobs.Stats()[name], err
}

// CancelDispatch stands a request down on behalf of dispatch staff.
func (s *Service) CancelDispatch(ctx context.Context, id uuid.UUID, actor string) (*emergency.Request, error) {
	r, err := s.dispatch.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Warn().Str("request_id", id.String()).Str("actor", actor).Msg("dispatch cancelled by staff")
	return r, nil
}

func (s *Service) PublishTip(ctx context.Context, t *wellness.Tip) error {
	return s.tips.Publish(ctx, t)
}
