package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/vitacare/portal/internal/domain/patient"
	"github.com/vitacare/portal/internal/platform/db"
)

func TestMigrationsApplied(t *testing.T) {
	ctx := context.Background()
	m := db.NewMigrator(globalDB.Pool, globalDB.MigrationsDir, "public")

	statuses, err := m.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(statuses) == 0 {
		t.Fatal("expected at least one migration")
	}
	for _, s := range statuses {
		if !s.Applied || s.AppliedAt == nil {
			t.Errorf("migration %d_%s not applied", s.Version, s.Name)
		}
	}

	n, err := m.Up(ctx)
	if err != nil {
		t.Fatalf("second up: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no pending migrations, applied %d", n)
	}
}

func TestPatientOnboarding(t *testing.T) {
	ctx := context.Background()
	svc := newPatientService()
	email := uniqueEmail("onboard")

	t.Run("Create", func(t *testing.T) {
		p, err := svc.Onboard(ctx, email, patient.OnboardingDraft{Name: " Rosa Diaz ", Age: 29, Weight: 58})
		if err != nil {
			t.Fatalf("onboard: %v", err)
		}
		if p.Name != "Rosa Diaz" || p.BloodType != patient.UnknownBloodType || !p.OnboardingComplete {
			t.Errorf("unexpected patient %+v", p)
		}
	})

	t.Run("LoadByAccount", func(t *testing.T) {
		p, err := svc.GetByUserID(ctx, email)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if p.Age != 29 || p.Weight != 58 {
			t.Errorf("unexpected patient %+v", p)
		}
		profile, err := svc.LoadProfile(ctx, email)
		if err != nil {
			t.Fatalf("load profile: %v", err)
		}
		if profile == nil || !profile.IsOnboarded() || profile.ProfileID() != p.ID {
			t.Errorf("unexpected profile %+v", profile)
		}
	})

	t.Run("Duplicate", func(t *testing.T) {
		_, err := svc.Onboard(ctx, email, patient.OnboardingDraft{Name: "Rosa", Age: 30, Weight: 58})
		if !errors.Is(err, patient.ErrAlreadyOnboarded) {
			t.Errorf("expected ErrAlreadyOnboarded, got %v", err)
		}
	})

	t.Run("UnknownAccount", func(t *testing.T) {
		_, err := svc.GetByUserID(ctx, uniqueEmail("nobody"))
		if !errors.Is(err, db.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
