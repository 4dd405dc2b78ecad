package emergency

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitacare/portal/internal/platform/auth"
	"github.com/vitacare/portal/internal/platform/db"
	"github.com/vitacare/portal/internal/platform/notification"
	"github.com/vitacare/portal/internal/platform/websocket"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidRequest    = errors.New("invalid emergency request")
)

// ETA bounds in minutes, inclusive.
const (
	minETA = 5
	maxETA = 14
)

type Service struct {
	repo     Repository
	tx       db.TxRunner
	engine   *Engine
	fallback Coordinate
	logger   zerolog.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewService builds the request service. fallback is the coordinate used
// when the caller's location is unknown.
func NewService(repo Repository, tx db.TxRunner, engine *Engine, fallback Coordinate, logger zerolog.Logger) *Service {
	if tx == nil {
		tx = db.RunDirect
	}
	return &Service{
		repo:     repo,
		tx:       tx,
		engine:   engine,
		fallback: fallback,
		logger:   logger.With().Str("component", "emergency").Logger(),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Service) randomETA() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return minETA + s.rnd.Intn(maxETA-minETA+1)
}

// ResolveLocation applies the location policy: an explicit coordinate is
// used as given; a missing one, or a denied geolocation, falls back to the
// configured coordinate and is flagged approximate.
func (s *Service) ResolveLocation(d RequestDraft) (Coordinate, bool, error) {
	if d.GeolocationDenied || (d.Latitude == nil && d.Longitude == nil) {
		return s.fallback, true, nil
	}
	if d.Latitude == nil || d.Longitude == nil {
		return Coordinate{}, false, fmt.Errorf("%w: latitude and longitude go together", ErrInvalidRequest)
	}
	c := Coordinate{Latitude: *d.Latitude, Longitude: *d.Longitude}
	if !c.Valid() {
		return Coordinate{}, false, fmt.Errorf("%w: coordinate out of range", ErrInvalidRequest)
	}
	return c, false, nil
}

// Create records a new request for the patient and starts its dispatch feed.
func (s *Service) Create(ctx context.Context, patientID uuid.UUID, d RequestDraft) (*Request, error) {
	typ := d.Type
	if typ == "" {
		typ = TypeOther
	}
	if !validTypes[typ] {
		return nil, fmt.Errorf("%w: unknown emergency type %q", ErrInvalidRequest, typ)
	}
	loc, approx, err := s.ResolveLocation(d)
	if err != nil {
		return nil, err
	}

	r := &Request{
		PatientID:           patientID,
		Latitude:            loc.Latitude,
		Longitude:           loc.Longitude,
		LocationApproximate: approx,
		EmergencyType:       typ,
		Status:              StatusRequested,
		EstimatedArrival:    s.randomETA(),
	}
	err = s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, r); err != nil {
			return err
		}
		return s.repo.AddHistory(ctx, r.ID, StatusRequested)
	})
	if err != nil {
		return nil, fmt.Errorf("create emergency request: %w", err)
	}

	s.logger.Info().Str("request_id", r.ID.String()).Str("type", typ).Bool("approximate", approx).Msg("emergency requested")
	s.engine.publish(ctx, r, EventStatus, TrackingFor(r, r.Status, 0))
	if _, err := s.engine.Track(ctx, r); err != nil {
		// The request is recorded; the dispatch-resume job adopts it.
		s.logger.Warn().Err(err).Str("request_id", r.ID.String()).Msg("start dispatch tracker")
	}
	return r, nil
}

// Get returns the patient's own request.
func (s *Service) Get(ctx context.Context, patientID, id uuid.UUID) (*Request, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.PatientID != patientID {
		return nil, db.ErrNotFound
	}
	return r, nil
}

func (s *Service) List(ctx context.Context, patientID uuid.UUID, limit int) ([]*Request, error) {
	return s.repo.ListByPatient(ctx, patientID, limit)
}

func (s *Service) History(ctx context.Context, patientID, id uuid.UUID) ([]*StatusChange, error) {
	if _, err := s.Get(ctx, patientID, id); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, id)
}

func (s *Service) Cancel(ctx context.Context, patientID, id uuid.UUID) (*Request, error) {
	if _, err := s.Get(ctx, patientID, id); err != nil {
		return nil, err
	}
	return s.engine.Cancel(ctx, id)
}

// Snapshot is the current tracking state of r as an event. A live tracker
// on this instance wins unless the stored row is already ahead of it.
func (s *Service) Snapshot(r *Request) (websocket.Event, error) {
	progress, status := r.Progress, r.Status
	if p, st, ok := s.engine.Live(r.ID); ok && !IsTerminal(r.Status) && statusRank[st] >= statusRank[r.Status] {
		progress, status = p, st
	} else if r.Status == StatusArrived {
		progress = 1
	}
	return websocket.NewEvent(EventSnapshot, Topic(r.ID), resourceType, r.ID.String(), TrackingFor(r, status, progress))
}

// Authorize admits a client to its own patient topic and to the feeds of
// its own emergency requests.
func (s *Service) Authorize(ctx context.Context, topic string) bool {
	pid := auth.PatientIDFromContext(ctx)
	if pid == uuid.Nil {
		return false
	}
	if topic == notification.PatientTopic(pid) {
		return true
	}
	raw, ok := strings.CutPrefix(topic, "emergency/")
	if !ok {
		return false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return false
	}
	_, err = s.Get(ctx, pid, id)
	return err == nil
}
