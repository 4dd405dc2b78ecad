package patient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vitacare/portal/internal/platform/db"
)

type mockRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) GetByUserID(_ context.Context, userID string) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[p.ID]; !ok {
		return db.ErrNotFound
	}
	p.UpdatedAt = time.Now()
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

type attachCall struct {
	patientID uuid.UUID
	owner     string
	blobID    uuid.UUID
}

type mockAttacher struct {
	calls []attachCall
	fail  error
}

func (a *mockAttacher) AttachUpload(_ context.Context, patientID uuid.UUID, owner string, blobID uuid.UUID) error {
	if a.fail != nil {
		return a.fail
	}
	a.calls = append(a.calls, attachCall{patientID, owner, blobID})
	return nil
}

func validDraft() OnboardingDraft {
	return OnboardingDraft{Name: "Ann Lee", Age: 34, Weight: 61.5}
}

func TestLoadProfile_NilWhenAbsent(t *testing.T) {
	svc := NewService(newMockRepo(), &mockAttacher{}, nil)
	p, err := svc.LoadProfile(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != nil {
		t.Fatalf("expected a nil profile, got %#v", p)
	}
}

func TestOnboard_CreatesPatientAndReports(t *testing.T) {
	repo := newMockRepo()
	att := &mockAttacher{}
	svc := NewService(repo, att, nil)
	ctx := context.Background()

	d := validDraft()
	d.Uploads = []uuid.UUID{uuid.New(), uuid.New()}
	p, err := svc.Onboard(ctx, "ann@example.com", d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.OnboardingComplete || p.UserID != "ann@example.com" {
		t.Errorf("unexpected patient %+v", p)
	}
	if p.BloodType != UnknownBloodType {
		t.Errorf("expected blood type Unknown, got %q", p.BloodType)
	}
	if len(att.calls) != 2 || att.calls[0].patientID != p.ID || att.calls[0].owner != "ann@example.com" {
		t.Errorf("unexpected attach calls %+v", att.calls)
	}

	prof, err := svc.LoadProfile(ctx, "ann@example.com")
	if err != nil || prof == nil || !prof.IsOnboarded() {
		t.Fatalf("expected onboarded profile, got %v %v", prof, err)
	}
}

func TestOnboard_RejectsSecondOnboarding(t *testing.T) {
	svc := NewService(newMockRepo(), &mockAttacher{}, nil)
	ctx := context.Background()
	if _, err := svc.Onboard(ctx, "ann@example.com", validDraft()); err != nil {
		t.Fatalf("first onboard: %v", err)
	}
	_, err := svc.Onboard(ctx, "ann@example.com", validDraft())
	if !errors.Is(err, ErrAlreadyOnboarded) {
		t.Fatalf("expected ErrAlreadyOnboarded, got %v", err)
	}
}

func TestOnboard_CompletesPartialProfile(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockAttacher{}, nil)
	ctx := context.Background()
	partial := &Patient{UserID: "ann@example.com", Name: "Ann", Age: 30, Weight: 60, BloodType: "O+"}
	if err := repo.Create(ctx, partial); err != nil {
		t.Fatal(err)
	}

	p, err := svc.Onboard(ctx, "ann@example.com", validDraft())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != partial.ID {
		t.Error("expected the existing row to be completed, not duplicated")
	}
	if len(repo.items) != 1 {
		t.Errorf("expected 1 patient, got %d", len(repo.items))
	}
}

func TestOnboard_Validation(t *testing.T) {
	svc := NewService(newMockRepo(), &mockAttacher{}, nil)
	tests := []struct {
		name  string
		draft func() OnboardingDraft
	}{
		{"missing name", func() OnboardingDraft { d := validDraft(); d.Name = " "; return d }},
		{"zero age", func() OnboardingDraft { d := validDraft(); d.Age = 0; return d }},
		{"zero weight", func() OnboardingDraft { d := validDraft(); d.Weight = 0; return d }},
		{"bad blood type", func() OnboardingDraft { d := validDraft(); d.BloodType = "C+"; return d }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Onboard(context.Background(), "ann@example.com", tt.draft())
			if !errors.Is(err, ErrInvalidProfile) {
				t.Fatalf("expected ErrInvalidProfile, got %v", err)
			}
		})
	}
}

func TestOnboard_AttachFailureAborts(t *testing.T) {
	att := &mockAttacher{fail: errors.New("blob not found")}
	svc := NewService(newMockRepo(), att, nil)
	d := validDraft()
	d.Uploads = []uuid.UUID{uuid.New()}
	if _, err := svc.Onboard(context.Background(), "ann@example.com", d); err == nil {
		t.Fatal("expected error when an upload cannot be attached")
	}
}

func TestUpdateProfile(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockAttacher{}, nil)
	ctx := context.Background()
	p, err := svc.Onboard(ctx, "ann@example.com", validDraft())
	if err != nil {
		t.Fatal(err)
	}

	bt := "AB-"
	allergies := " penicillin "
	got, err := svc.UpdateProfile(ctx, p.ID, ProfileUpdate{BloodType: &bt, Allergies: &allergies})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.BloodType != "AB-" || got.Allergies != "penicillin" || got.Name != "Ann Lee" {
		t.Errorf("unexpected profile %+v", got)
	}

	bad := -3
	if _, err := svc.UpdateProfile(ctx, p.ID, ProfileUpdate{Age: &bad}); !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("expected ErrInvalidProfile, got %v", err)
	}
	if _, err := svc.UpdateProfile(ctx, uuid.New(), ProfileUpdate{}); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDaysActive(t *testing.T) {
	created := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	p := &Patient{CreatedAt: created}
	if got := p.DaysActive(created.Add(time.Hour)); got != 1 {
		t.Errorf("expected 1 on first day, got %d", got)
	}
	if got := p.DaysActive(created.Add(72 * time.Hour)); got != 4 {
		t.Errorf("expected 4, got %d", got)
	}
}
