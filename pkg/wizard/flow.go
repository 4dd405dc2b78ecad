package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitacare/portal/internal/platform/kv"
)

// DefaultTTL is how long an untouched draft survives.
const DefaultTTL = 24 * time.Hour

// KeyPrefix is shared by every flow so stale drafts can be purged in one scan.
const KeyPrefix = "wizard:"

type Store interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
}

// View is the client-facing state of a draft.
type View struct {
	ID         string      `json:"id"`
	Flow       string      `json:"flow"`
	Step       int         `json:"step"`
	StepName   string      `json:"step_name"`
	Steps      []string    `json:"steps"`
	CanAdvance bool        `json:"can_advance"`
	CanSubmit  bool        `json:"can_submit"`
	Completed  bool        `json:"completed"`
	Draft      interface{} `json:"draft"`
	Result     interface{} `json:"result,omitempty"`
	ExpiresAt  time.Time   `json:"expires_at"`
}

// Driver is the type-erased surface the HTTP handler drives.
type Driver interface {
	Name() string
	Create(ctx context.Context, owner string, params json.RawMessage) (*View, error)
	Get(ctx context.Context, owner, id string) (*View, error)
	Patch(ctx context.Context, owner, id string, patch json.RawMessage) (*View, error)
	Advance(ctx context.Context, owner, id string) (*View, error)
	Retreat(ctx context.Context, owner, id string) (*View, error)
	Submit(ctx context.Context, owner, id string) (*View, error)
	Reset(ctx context.Context, owner, id string) (*View, error)
}

type snapshot[T any] struct {
	Owner     string          `json:"owner"`
	Step      int             `json:"step"`
	Completed bool            `json:"completed"`
	Draft     T               `json:"draft"`
	Result    json.RawMessage `json:"result,omitempty"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Flow persists Machine[T] drafts for one named wizard.
type Flow[T any] struct {
	name   string
	steps  []Step[T]
	store  Store
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time

	// Init builds the initial draft from creation params and returns the
	// step to start on (0 or 1 for the first).
	Init func(ctx context.Context, owner string, params json.RawMessage) (T, int, error)
	// Normalize runs after every patch and may fill derived fields or reject
	// the update.
	Normalize func(ctx context.Context, owner string, draft *T) error
	// Persist creates the record on submit.
	Persist func(ctx context.Context, owner string, draft T) (interface{}, error)

	locks draftLocks
}

// draftLocks serializes changes to one draft without holding up the others.
type draftLocks struct {
	mu    sync.Mutex
	locks map[string]*draftLock
}

type draftLock struct {
	mu   sync.Mutex
	refs int
}

func (l *draftLocks) lock(id string) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*draftLock)
	}
	dl, ok := l.locks[id]
	if !ok {
		dl = &draftLock{}
		l.locks[id] = dl
	}
	dl.refs++
	l.mu.Unlock()

	dl.mu.Lock()
	return func() {
		dl.mu.Unlock()
		l.mu.Lock()
		if dl.refs--; dl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *draftLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func NewFlow[T any](name string, steps []Step[T], store Store, logger zerolog.Logger) *Flow[T] {
	return &Flow[T]{
		name:   name,
		steps:  steps,
		store:  store,
		ttl:    DefaultTTL,
		logger: logger.With().Str("component", "wizard").Str("flow", name).Logger(),
		now:    time.Now,
	}
}

func (f *Flow[T]) Name() string { return f.name }

func (f *Flow[T]) key(id string) string { return KeyPrefix + f.name + ":" + id }

func (f *Flow[T]) Create(ctx context.Context, owner string, params json.RawMessage) (*View, error) {
	m := New(f.steps)
	start := 1
	if f.Init != nil {
		draft, step, err := f.Init(ctx, owner, params)
		if err != nil {
			return nil, err
		}
		m.draft = draft
		start = step
	}
	if start > 1 {
		if err := m.JumpTo(start); err != nil {
			return nil, fmt.Errorf("start at step %d: %w", start, err)
		}
	}

	id := uuid.New().String()
	exp, err := f.save(id, owner, m)
	if err != nil {
		return nil, err
	}
	return f.view(id, m, exp), nil
}

func (f *Flow[T]) Get(_ context.Context, owner, id string) (*View, error) {
	m, exp, err := f.load(owner, id)
	if err != nil {
		return nil, err
	}
	return f.view(id, m, exp), nil
}

// Patch merges the JSON object into the draft; absent fields are kept.
func (f *Flow[T]) Patch(ctx context.Context, owner, id string, patch json.RawMessage) (*View, error) {
	return f.mutate(owner, id, func(m *Machine[T]) error {
		if m.Completed() {
			return ErrCompleted
		}
		next := m.Draft()
		if err := json.Unmarshal(patch, &next); err != nil {
			return Invalid("%v", err)
		}
		if f.Normalize != nil {
			if err := f.Normalize(ctx, owner, &next); err != nil {
				return err
			}
		}
		return m.Update(func(d *T) { *d = next })
	})
}

func (f *Flow[T]) Advance(_ context.Context, owner, id string) (*View, error) {
	return f.mutate(owner, id, func(m *Machine[T]) error { return m.Advance() })
}

func (f *Flow[T]) Retreat(_ context.Context, owner, id string) (*View, error) {
	return f.mutate(owner, id, func(m *Machine[T]) error { return m.Retreat() })
}

// Submit persists the draft and marks it completed. Once Persist succeeds
// the record exists, so a draft that then cannot be saved as completed is
// discarded instead of being left open for a second submit.
func (f *Flow[T]) Submit(ctx context.Context, owner, id string) (*View, error) {
	unlock := f.locks.lock(id)
	defer unlock()

	m, _, err := f.load(owner, id)
	if err != nil {
		return nil, err
	}
	err = m.Submit(ctx, func(ctx context.Context, d T) (interface{}, error) {
		return f.Persist(ctx, owner, d)
	})
	if err != nil {
		if !errors.Is(err, ErrStepIncomplete) && !errors.Is(err, ErrCompleted) {
			f.logger.Error().Err(err).Str("draft_id", id).Msg("submit failed")
		}
		return nil, err
	}

	exp, err := f.save(id, owner, m)
	if err != nil {
		f.logger.Error().Err(err).Str("draft_id", id).Interface("result", m.Result()).
			Msg("submitted draft could not be marked completed, discarding it")
		if derr := f.store.Delete(f.key(id)); derr != nil {
			f.logger.Error().Err(derr).Str("draft_id", id).Msg("discard submitted draft")
		}
		exp = f.now()
	}
	return f.view(id, m, exp), nil
}

func (f *Flow[T]) Reset(_ context.Context, owner, id string) (*View, error) {
	return f.mutate(owner, id, func(m *Machine[T]) error {
		m.Reset()
		return nil
	})
}

func (f *Flow[T]) mutate(owner, id string, fn func(*Machine[T]) error) (*View, error) {
	unlock := f.locks.lock(id)
	defer unlock()

	m, _, err := f.load(owner, id)
	if err != nil {
		return nil, err
	}
	if err := fn(m); err != nil {
		return nil, err
	}
	exp, err := f.save(id, owner, m)
	if err != nil {
		return nil, err
	}
	return f.view(id, m, exp), nil
}

func (f *Flow[T]) load(owner, id string) (*Machine[T], time.Time, error) {
	data, err := f.store.Get(f.key(id))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, time.Time{}, ErrNotFound
	}
	if err != nil {
		return nil, time.Time{}, err
	}

	var snap snapshot[T]
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode draft %s: %w", id, err)
	}
	// Another patient's draft is indistinguishable from a missing one.
	if snap.Owner != owner {
		return nil, time.Time{}, ErrNotFound
	}

	var result interface{}
	if len(snap.Result) > 0 {
		result = snap.Result
	}
	return Restore(f.steps, snap.Step, snap.Draft, snap.Completed, result), snap.ExpiresAt, nil
}

func (f *Flow[T]) save(id, owner string, m *Machine[T]) (time.Time, error) {
	exp := f.now().Add(f.ttl)
	snap := snapshot[T]{Owner: owner, Step: m.Step(), Completed: m.Completed(), Draft: m.Draft(), ExpiresAt: exp}
	if r := m.Result(); r != nil {
		raw, err := json.Marshal(r)
		if err != nil {
			return time.Time{}, fmt.Errorf("encode result: %w", err)
		}
		snap.Result = raw
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return time.Time{}, fmt.Errorf("encode draft: %w", err)
	}
	if err := f.store.Put(f.key(id), data, f.ttl); err != nil {
		return time.Time{}, fmt.Errorf("save draft: %w", err)
	}
	return exp, nil
}

func (f *Flow[T]) view(id string, m *Machine[T], exp time.Time) *View {
	return &View{
		ID:         id,
		Flow:       f.name,
		Step:       m.Step(),
		StepName:   m.StepName(),
		Steps:      m.StepNames(),
		CanAdvance: m.Step() < m.StepCount() && m.CanAdvance(),
		CanSubmit:  m.Ready(),
		Completed:  m.Completed(),
		Draft:      m.Draft(),
		Result:     m.Result(),
		ExpiresAt:  exp,
	}
}
