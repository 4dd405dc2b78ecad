package emergency

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitacare/portal/internal/domain/patient"
	"github.com/vitacare/portal/internal/platform/db"
	"github.com/vitacare/portal/internal/platform/kv"
	"github.com/vitacare/portal/pkg/wizard"
)

type fakePatients map[string]*patient.Patient

func (f fakePatients) GetByUserID(_ context.Context, userID string) (*patient.Patient, error) {
	p, ok := f[userID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return p, nil
}

func newRequestFlow(t *testing.T) (*wizard.Flow[RequestDraft], *mockRepo, uuid.UUID) {
	t.Helper()
	store, err := kv.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	svc, repo, _ := newTestService(t)
	ann := &patient.Patient{ID: uuid.New(), UserID: "ann@example.com", Name: "Ann Lee"}
	return NewRequestFlow(svc, fakePatients{ann.UserID: ann}, store, zerolog.Nop()), repo, ann.ID
}

func TestRequestFlow_DeniedGeolocation(t *testing.T) {
	f, repo, pid := newRequestFlow(t)
	ctx := context.Background()
	owner := "ann@example.com"

	v, err := f.Create(ctx, owner, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !v.CanAdvance {
		t.Fatal("type defaults to other, so the first step should be complete")
	}
	if _, err := f.Patch(ctx, owner, v.ID, json.RawMessage(`{"emergency_type":"breathing"}`)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Advance(ctx, owner, v.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Advance(ctx, owner, v.ID); !errors.Is(err, wizard.ErrStepIncomplete) {
		t.Fatalf("location step needs a choice, got %v", err)
	}

	v, err = f.Patch(ctx, owner, v.ID, json.RawMessage(`{"geolocation_denied":true}`))
	if err != nil {
		t.Fatal(err)
	}
	d := v.Draft.(RequestDraft)
	if !d.Approximate || len(d.Nearby) != 3 {
		t.Errorf("expected approximate location with hospitals, got %+v", d)
	}
	if _, err := f.Advance(ctx, owner, v.ID); err != nil {
		t.Fatal(err)
	}
	done, err := f.Submit(ctx, owner, v.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	r := done.Result.(*Request)
	if r.PatientID != pid || r.EmergencyType != TypeBreathing || !r.LocationApproximate {
		t.Errorf("unexpected request %+v", r)
	}
	if r.Latitude != fallback.Latitude {
		t.Errorf("expected fallback latitude, got %v", r.Latitude)
	}
	if _, err := repo.GetByID(ctx, r.ID); err != nil {
		t.Errorf("request not stored: %v", err)
	}
}

func TestRequestFlow_RejectsBadInput(t *testing.T) {
	f, _, _ := newRequestFlow(t)
	ctx := context.Background()
	owner := "ann@example.com"
	v, err := f.Create(ctx, owner, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Patch(ctx, owner, v.ID, json.RawMessage(`{"emergency_type":"flood"}`)); !errors.Is(err, wizard.ErrInvalid) {
		t.Errorf("expected ErrInvalid for unknown type, got %v", err)
	}
	if _, err := f.Patch(ctx, owner, v.ID, json.RawMessage(`{"latitude":12.9}`)); !errors.Is(err, wizard.ErrInvalid) {
		t.Errorf("expected ErrInvalid for half coordinate, got %v", err)
	}
	if _, err := f.Patch(ctx, owner, v.ID, json.RawMessage(`{"latitude":12.9,"longitude":200}`)); !errors.Is(err, wizard.ErrInvalid) {
		t.Errorf("expected ErrInvalid for out of range coordinate, got %v", err)
	}
}
