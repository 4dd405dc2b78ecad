package integration

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitacare/portal/internal/domain/patient"
	"github.com/vitacare/portal/internal/domain/report"
	"github.com/vitacare/portal/internal/domain/wellness"
	"github.com/vitacare/portal/internal/platform/blobstore"
	"github.com/vitacare/portal/internal/platform/db"
)

func TestBlobStorePG(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewPGStore(globalDB.Pool)

	meta, err := store.Put(ctx, blobstore.Metadata{Owner: "kim@example.com", FileName: "cbc.pdf", ContentType: "application/pdf"},
		strings.NewReader("%PDF-1.4 test"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	data, got, err := store.Get(ctx, meta.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(data) != "%PDF-1.4 test" || got.Owner != "kim@example.com" || got.Size != int64(len(data)) {
		t.Errorf("unexpected blob %+v %q", got, data)
	}

	if err := store.Delete(ctx, meta.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Stat(ctx, meta.ID); !errors.Is(err, blobstore.ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound, got %v", err)
	}
	if err := store.Delete(ctx, uuid.New()); !errors.Is(err, blobstore.ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound for unknown id, got %v", err)
	}
}

func TestOnboardingAttachesUploads(t *testing.T) {
	ctx := context.Background()
	pool := globalDB.Pool
	blobs := blobstore.NewPGStore(pool)
	reports := report.NewService(report.NewRepoPG(pool), blobs, nil, zerolog.Nop())
	svc := patient.NewService(patient.NewRepoPG(pool), reports, db.Transactor(pool))
	email := uniqueEmail("uploads")

	own, err := blobs.Put(ctx, blobstore.Metadata{Owner: email, FileName: "xray.png", ContentType: "image/png"}, strings.NewReader("png"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	foreign, err := blobs.Put(ctx, blobstore.Metadata{Owner: "someone@example.com", FileName: "x.png"}, strings.NewReader("png"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	// Someone else's upload rolls the whole onboarding back.
	draft := patient.OnboardingDraft{Name: "Kim", Age: 50, Weight: 80, Uploads: []uuid.UUID{own.ID, foreign.ID}}
	if _, err := svc.Onboard(ctx, email, draft); err == nil {
		t.Fatal("expected onboarding with a foreign upload to fail")
	}
	if _, err := svc.GetByUserID(ctx, email); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected no patient after rollback, got %v", err)
	}

	draft.Uploads = []uuid.UUID{own.ID}
	p, err := svc.Onboard(ctx, email, draft)
	if err != nil {
		t.Fatalf("onboard: %v", err)
	}
	all, err := reports.All(ctx, p.ID)
	if err != nil {
		t.Fatalf("list reports: %v", err)
	}
	if len(all) != 1 || all[0].FileName != "xray.png" || all[0].ReportType != report.TypeOther {
		t.Errorf("unexpected reports %+v", all)
	}
}

func TestHealthTips(t *testing.T) {
	ctx := context.Background()
	svc := wellness.NewService(wellness.NewTipRepoPG(globalDB.Pool), zerolog.Nop())

	if _, err := svc.SeedTips(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n, err := svc.SeedTips(ctx); err != nil || n != 0 {
		t.Errorf("expected second seed to insert nothing, got %d (%v)", n, err)
	}

	tip := &wellness.Tip{Title: "  Walk after meals ", Content: "Ten minutes helps blood sugar.", Category: "exercise"}
	if err := svc.Publish(ctx, tip); err != nil {
		t.Fatalf("publish: %v", err)
	}
	tips := svc.Tips(ctx)
	if len(tips) == 0 || tips[0].Title != "Walk after meals" {
		t.Errorf("expected newest tip first, got %+v", tips)
	}
}
