package emergency

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitacare/portal/internal/platform/db"
	"github.com/vitacare/portal/internal/platform/notification"
	"github.com/vitacare/portal/internal/platform/websocket"
)

const (
	EventStatus   = "emergency.status"
	EventPosition = "emergency.position"
	EventSnapshot = "emergency.snapshot"
)

const resourceType = "EmergencyRequest"

// Topic is the feed of one request.
func Topic(id uuid.UUID) string {
	return "emergency/" + id.String()
}

type Notifier interface {
	Notify(ctx context.Context, patientID uuid.UUID, templateID string, data map[string]string) (*notification.Notification, error)
}

// EngineConfig tunes the simulated fleet. Lease is how long a claim on a
// request survives without renewal; it is never shorter than three ticks.
type EngineConfig struct {
	Tick  time.Duration
	Step  float64
	Lease time.Duration
}

type tracker struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	progress float64
	status   string
}

func (t *tracker) state() (float64, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress, t.status
}

func (t *tracker) set(progress float64, status string) {
	t.mu.Lock()
	t.progress, t.status = progress, status
	t.mu.Unlock()
}

// Engine advances every active request on a fixed tick. Status transitions
// are written (request row and history) before they are published; position
// updates are only published.
//
// Several instances may share one database. Each request is followed by the
// instance holding its lease, renewed on every tick, and the guarded status
// write stops any tracker whose request moved on without it.
type Engine struct {
	id        uuid.UUID
	repo      Repository
	tx        db.TxRunner
	publisher websocket.Publisher
	notifier  Notifier
	tick      time.Duration
	step      float64
	lease     time.Duration
	logger    zerolog.Logger

	ctx  context.Context
	halt context.CancelFunc
	wg   sync.WaitGroup

	mu       sync.Mutex
	trackers map[uuid.UUID]*tracker
	closed   bool
}

func NewEngine(repo Repository, tx db.TxRunner, publisher websocket.Publisher, notifier Notifier, cfg EngineConfig, logger zerolog.Logger) *Engine {
	if tx == nil {
		tx = db.RunDirect
	}
	if cfg.Tick <= 0 {
		cfg.Tick = 200 * time.Millisecond
	}
	if cfg.Step <= 0 || cfg.Step > 1 {
		cfg.Step = 0.02
	}
	if cfg.Lease <= 0 {
		cfg.Lease = 30 * time.Second
	}
	if cfg.Lease < 3*cfg.Tick {
		cfg.Lease = 3 * cfg.Tick
	}
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New()
	return &Engine{
		id:        id,
		repo:      repo,
		tx:        tx,
		publisher: publisher,
		notifier:  notifier,
		tick:      cfg.Tick,
		step:      cfg.Step,
		lease:     cfg.Lease,
		logger:    logger.With().Str("component", "dispatch").Str("engine_id", id.String()).Logger(),
		ctx:       ctx,
		halt:      cancel,
		trackers:  make(map[uuid.UUID]*tracker),
	}
}

// ID identifies this engine as a lease owner.
func (e *Engine) ID() uuid.UUID {
	return e.id
}

// Resume starts tracking every non-terminal request nobody else holds,
// from the lower bound of its persisted status. It returns how many
// trackers it started. Run periodically it also adopts requests whose
// owner stopped renewing.
func (e *Engine) Resume(ctx context.Context) (int, error) {
	active, err := e.repo.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active requests: %w", err)
	}
	started := 0
	for _, r := range active {
		ok, err := e.Track(ctx, r)
		if err != nil {
			e.logger.Warn().Err(err).Str("request_id", r.ID.String()).Msg("claim request")
			continue
		}
		if ok {
			started++
		}
	}
	if started > 0 {
		e.logger.Info().Int("requests", started).Msg("resumed dispatch trackers")
	}
	return started, nil
}

// Track claims r and starts following it from its persisted status. It
// reports false, without error, when r is terminal, already tracked here,
// held by another instance, or the engine is shut down.
func (e *Engine) Track(ctx context.Context, r *Request) (bool, error) {
	if IsTerminal(r.Status) || e.ignores(r.ID) {
		return false, nil
	}
	claimed, err := e.repo.Claim(ctx, r.ID, e.id, e.lease)
	if err != nil || !claimed {
		return false, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.trackers[r.ID]; ok {
		return false, nil
	}
	if e.closed {
		return false, nil
	}
	tctx, cancel := context.WithCancel(e.ctx)
	t := &tracker{cancel: cancel, done: make(chan struct{}), progress: LowerBound(r.Status), status: r.Status}
	e.trackers[r.ID] = t
	e.wg.Add(1)
	go e.run(tctx, t, *r)
	return true, nil
}

// ignores reports whether Track has nothing to do for id here.
func (e *Engine) ignores(id uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.trackers[id]
	return e.closed || ok
}

// Live returns the in-memory progress and status of a tracked request.
func (e *Engine) Live(id uuid.UUID) (float64, string, bool) {
	e.mu.Lock()
	t, ok := e.trackers[id]
	e.mu.Unlock()
	if !ok {
		return 0, "", false
	}
	p, s := t.state()
	return p, s, true
}

// Active is the number of running trackers.
func (e *Engine) Active() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.trackers)
}

func (e *Engine) run(ctx context.Context, t *tracker, r Request) {
	defer e.wg.Done()
	defer close(t.done)
	defer e.forget(r.ID, t)

	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	progress, status := t.state()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !e.renew(ctx, r.ID) {
			return
		}

		progress = math.Min(1, progress+e.step)
		if next := StatusFor(progress); advances(status, next) {
			err := e.transition(ctx, &r, next, progress)
			switch {
			case err == nil:
				status = next
			case ctx.Err() != nil:
				return
			case errors.Is(err, ErrInvalidTransition):
				// Cancelled, or advanced by another instance.
				e.logger.Info().Str("request_id", r.ID.String()).Str("status", next).Msg("request moved on, tracker stopped")
				return
			default:
				// Retried on the next tick with whatever status progress reaches.
				e.logger.Error().Err(err).Str("request_id", r.ID.String()).Str("status", next).Msg("persist transition failed")
			}
		}
		t.set(progress, status)
		e.publish(ctx, &r, EventPosition, TrackingFor(&r, status, progress))

		if status == StatusArrived {
			e.logger.Info().Str("request_id", r.ID.String()).Msg("ambulance arrived")
			return
		}
	}
}

// renew extends the lease on id. It reports false when the lease is lost or
// the request became terminal; a failed write keeps the tracker running
// until the lease itself runs out.
func (e *Engine) renew(ctx context.Context, id uuid.UUID) bool {
	ok, err := e.repo.Claim(ctx, id, e.id, e.lease)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		e.logger.Warn().Err(err).Str("request_id", id.String()).Msg("renew lease failed")
		return true
	}
	if !ok {
		e.logger.Info().Str("request_id", id.String()).Msg("lease lost, tracker stopped")
	}
	return ok
}

func (e *Engine) forget(id uuid.UUID, t *tracker) {
	e.mu.Lock()
	if e.trackers[id] == t {
		delete(e.trackers, id)
	}
	e.mu.Unlock()
}

// transition persists the status change, then announces it.
func (e *Engine) transition(ctx context.Context, r *Request, status string, progress float64) error {
	err := e.tx(ctx, func(ctx context.Context) error {
		if err := e.repo.UpdateStatus(ctx, r.ID, status, progress); err != nil {
			return err
		}
		return e.repo.AddHistory(ctx, r.ID, status)
	})
	if err != nil {
		return err
	}
	r.Status, r.Progress = status, progress
	e.announce(ctx, r, progress)
	return nil
}

// announce publishes a status event and the matching patient notification.
func (e *Engine) announce(ctx context.Context, r *Request, progress float64) {
	e.publish(ctx, r, EventStatus, TrackingFor(r, r.Status, progress))
	if e.notifier == nil {
		return
	}
	var err error
	if r.Status == StatusArrived {
		_, err = e.notifier.Notify(ctx, r.PatientID, notification.TemplateEmergencyArrived, nil)
	} else {
		_, err = e.notifier.Notify(ctx, r.PatientID, notification.TemplateEmergencyStatus, map[string]string{
			"status": r.Status,
			"eta":    strconv.Itoa(RemainingETA(r.EstimatedArrival, progress)),
		})
	}
	if err != nil {
		e.logger.Warn().Err(err).Str("request_id", r.ID.String()).Msg("status notification failed")
	}
}

// publish sends payload on the request's own topic and the patient's topic.
func (e *Engine) publish(ctx context.Context, r *Request, eventType string, payload Tracking) {
	for _, topic := range []string{Topic(r.ID), notification.PatientTopic(r.PatientID)} {
		evt, err := websocket.NewEvent(eventType, topic, resourceType, r.ID.String(), payload)
		if err != nil {
			e.logger.Error().Err(err).Msg("encode dispatch event")
			return
		}
		if err := e.publisher.Publish(ctx, evt); err != nil && ctx.Err() == nil {
			e.logger.Warn().Err(err).Str("topic", topic).Msg("publish dispatch event")
		}
	}
}

// stop halts the tracker of id, if any, and waits for it to exit.
func (e *Engine) stop(id uuid.UUID) {
	e.mu.Lock()
	t := e.trackers[id]
	e.mu.Unlock()
	if t == nil {
		return
	}
	t.cancel()
	<-t.done
}

// Cancel stops tracking r and records the cancellation. Requests that
// already arrived or were cancelled return ErrInvalidTransition.
func (e *Engine) Cancel(ctx context.Context, id uuid.UUID) (*Request, error) {
	e.stop(id)

	var r *Request
	err := e.tx(ctx, func(ctx context.Context) error {
		var err error
		r, err = e.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(r.Status, StatusCancelled) {
			return fmt.Errorf("%w: request is %s", ErrInvalidTransition, r.Status)
		}
		if err := e.repo.UpdateStatus(ctx, id, StatusCancelled, r.Progress); err != nil {
			return err
		}
		return e.repo.AddHistory(ctx, id, StatusCancelled)
	})
	if err != nil {
		if r != nil && !IsTerminal(r.Status) && !errors.Is(err, ErrInvalidTransition) {
			if _, terr := e.Track(ctx, r); terr != nil {
				e.logger.Warn().Err(terr).Str("request_id", id.String()).Msg("re-track after failed cancel")
			}
		}
		return nil, err
	}

	r.Status = StatusCancelled
	e.publish(ctx, r, EventStatus, TrackingFor(r, r.Status, r.Progress))
	e.logger.Info().Str("request_id", id.String()).Msg("emergency request cancelled")
	return r, nil
}

// Shutdown stops every tracker, waits for them (or for ctx), then hands
// their requests back so another instance can resume them at once.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.halt()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := e.repo.Release(ctx, e.id); err != nil {
		return fmt.Errorf("release dispatch leases: %w", err)
	}
	return nil
}
