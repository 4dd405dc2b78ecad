// Package wizard implements linear multi-step forms: a pure state machine over
// a typed draft plus persistence of in-progress drafts.
package wizard

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrStepIncomplete = errors.New("current step is incomplete")
	ErrNoPrevious     = errors.New("already on the first step")
	ErrCompleted      = errors.New("wizard already submitted")
	ErrNotFound       = errors.New("wizard draft not found")
	// ErrInvalid wraps draft field errors reported by Normalize or Init.
	ErrInvalid = errors.New("invalid draft")
)

// Invalid wraps a field error so handlers report it as a bad request.
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalid}, args...)...)
}

// Step names a form page and the predicate that gates leaving it.
type Step[T any] struct {
	Name     string
	Complete func(T) bool
}

// Machine is the controller for one draft. Step numbers are 1-based.
// Once submitted the machine is terminal until Reset.
type Machine[T any] struct {
	steps     []Step[T]
	current   int
	draft     T
	completed bool
	result    interface{}
}

func New[T any](steps []Step[T]) *Machine[T] {
	if len(steps) == 0 {
		panic("wizard: at least one step is required")
	}
	return &Machine[T]{steps: steps, current: 1}
}

// Restore rebuilds a machine from persisted state, clamping the step to range.
func Restore[T any](steps []Step[T], step int, draft T, completed bool, result interface{}) *Machine[T] {
	m := New(steps)
	if step < 1 {
		step = 1
	}
	if step > len(steps) {
		step = len(steps)
	}
	m.current = step
	m.draft = draft
	m.completed = completed
	m.result = result
	return m
}

func (m *Machine[T]) Step() int        { return m.current }
func (m *Machine[T]) StepCount() int   { return len(m.steps) }
func (m *Machine[T]) StepName() string { return m.steps[m.current-1].Name }
func (m *Machine[T]) Draft() T         { return m.draft }
func (m *Machine[T]) Completed() bool  { return m.completed }

// Result is the record produced by a successful Submit.
func (m *Machine[T]) Result() interface{} { return m.result }

func (m *Machine[T]) StepNames() []string {
	names := make([]string, len(m.steps))
	for i, s := range m.steps {
		names[i] = s.Name
	}
	return names
}

// CanAdvance reports whether the current step's predicate holds.
func (m *Machine[T]) CanAdvance() bool {
	if m.completed {
		return false
	}
	pred := m.steps[m.current-1].Complete
	return pred == nil || pred(m.draft)
}

// Update applies fn to the draft. The step does not change.
func (m *Machine[T]) Update(fn func(*T)) error {
	if m.completed {
		return ErrCompleted
	}
	fn(&m.draft)
	return nil
}

func (m *Machine[T]) Advance() error {
	if m.completed {
		return ErrCompleted
	}
	if m.current >= len(m.steps) || !m.CanAdvance() {
		return ErrStepIncomplete
	}
	m.current++
	return nil
}

// Retreat moves back one step and keeps every draft field.
func (m *Machine[T]) Retreat() error {
	if m.completed {
		return ErrCompleted
	}
	if m.current <= 1 {
		return ErrNoPrevious
	}
	m.current--
	return nil
}

// JumpTo moves forward to step when every earlier step is complete. Used to
// start a draft past pre-filled steps.
func (m *Machine[T]) JumpTo(step int) error {
	if m.completed {
		return ErrCompleted
	}
	for m.current < step {
		if err := m.Advance(); err != nil {
			return err
		}
	}
	return nil
}

// Ready reports whether Submit would be allowed.
func (m *Machine[T]) Ready() bool {
	if m.completed || m.current != len(m.steps) {
		return false
	}
	for _, s := range m.steps {
		if s.Complete != nil && !s.Complete(m.draft) {
			return false
		}
	}
	return true
}

// Submit runs persist on the final, fully valid step. On success the machine
// becomes terminal and keeps the created record. On failure it stays put.
func (m *Machine[T]) Submit(ctx context.Context, persist func(context.Context, T) (interface{}, error)) error {
	if m.completed {
		return ErrCompleted
	}
	if !m.Ready() {
		return ErrStepIncomplete
	}
	result, err := persist(ctx, m.draft)
	if err != nil {
		return err
	}
	m.completed = true
	m.result = result
	return nil
}

// Reset returns the machine to step 1 with a zero draft.
func (m *Machine[T]) Reset() {
	var zero T
	m.current = 1
	m.draft = zero
	m.completed = false
	m.result = nil
}
