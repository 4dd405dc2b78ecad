package diagnosis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitacare/portal/internal/domain/advisory"
	"github.com/vitacare/portal/internal/platform/blobstore"
	"github.com/vitacare/portal/internal/platform/llm"
	"github.com/vitacare/portal/pkg/pagination"
)

type mockRepo struct {
	mu    sync.Mutex
	items []*AIDiagnosis
	err   error
}

func (m *mockRepo) Create(_ context.Context, d *AIDiagnosis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	d.ID = uuid.New()
	d.CreatedAt = time.Now().Add(time.Duration(len(m.items)) * time.Second)
	m.items = append(m.items, d)
	return nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, p pagination.Params) ([]*AIDiagnosis, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*AIDiagnosis
	for _, d := range m.items {
		if d.PatientID == patientID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return pagination.Page(out, p), len(out), nil
}

const eczemaReply = `{"condition":"Contact dermatitis","confidence":"medium","severity":"low",` +
	`"specialist":"Dermatologist","advice":"Avoid irritants.","precautions":["Keep the area dry"]}`

func newTestService(reply string, llmErr error) (*Service, *mockRepo, *blobstore.MemoryStore, *llm.StaticClient) {
	client := &llm.StaticClient{Reply: json.RawMessage(reply), Err: llmErr}
	adapter := advisory.NewAdapter(client, "1800-123-4567", zerolog.Nop())
	repo := &mockRepo{}
	blobs := blobstore.NewMemoryStore()
	return NewService(repo, blobs, adapter, zerolog.Nop()), repo, blobs, client
}

func pngImage() Image {
	return Image{FileName: "rash.png", ContentType: "image/png", Content: bytes.NewReader([]byte("\x89PNG fake"))}
}

func TestAnalyze_StoresDiagnosis(t *testing.T) {
	svc, repo, blobs, client := newTestService(eczemaReply, nil)
	pid := uuid.New()

	res, err := svc.Analyze(context.Background(), pid, "ann@example.com", pngImage())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Error || res.Diagnosis == nil {
		t.Fatalf("expected a diagnosis, got %+v", res)
	}
	d := res.Diagnosis
	if d.Confidence != 70 || d.Severity != "low" || d.RecommendedSpecialist != "Dermatologist" || d.PatientID != pid {
		t.Errorf("unexpected diagnosis %+v", d)
	}
	if !strings.HasPrefix(d.ImageURL, "/api/v1/files/") {
		t.Errorf("unexpected image url %q", d.ImageURL)
	}
	if len(repo.items) != 1 || blobs.Len() != 1 {
		t.Errorf("expected one diagnosis and one blob, got %d/%d", len(repo.items), blobs.Len())
	}
	if urls := client.Requests[0].ImageURLs; len(urls) != 1 || !strings.HasPrefix(urls[0], "data:image/png;base64,") {
		t.Errorf("image not sent as data url: %v", urls)
	}
}

func TestAnalyze_FailureLeavesNothing(t *testing.T) {
	cases := map[string]*Service{}
	svc, repo1, blobs1, _ := newTestService("", errors.New("timeout"))
	cases["transport"] = svc
	svc2, repo2, blobs2, _ := newTestService(`{"condition":"x","confidence":"certain","severity":"low","specialist":"GP","advice":"rest"}`, nil)
	cases["schema"] = svc2

	for name, svc := range cases {
		res, err := svc.Analyze(context.Background(), uuid.New(), "ann@example.com", pngImage())
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if !res.Error || res.Message != FailureMessage || res.Diagnosis != nil {
			t.Errorf("%s: unexpected result %+v", name, res)
		}
	}
	if len(repo1.items)+len(repo2.items) != 0 || blobs1.Len()+blobs2.Len() != 0 {
		t.Error("failed analyses must not leave records or blobs")
	}
}

func TestAnalyze_StorageFailureDiscardsBlob(t *testing.T) {
	svc, repo, blobs, _ := newTestService(eczemaReply, nil)
	repo.err = errors.New("insert failed")
	res, err := svc.Analyze(context.Background(), uuid.New(), "ann@example.com", pngImage())
	if err != nil || !res.Error {
		t.Fatalf("expected fallback result, got %+v %v", res, err)
	}
	if blobs.Len() != 0 {
		t.Error("blob should be removed")
	}
}

func TestAnalyze_RejectsNonImage(t *testing.T) {
	svc, _, blobs, client := newTestService(eczemaReply, nil)
	_, err := svc.Analyze(context.Background(), uuid.New(), "ann@example.com",
		Image{FileName: "notes.pdf", ContentType: "application/pdf", Content: strings.NewReader("%PDF")})
	if !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}
	if blobs.Len() != 0 || client.Calls() != 0 {
		t.Error("nothing should be stored or requested")
	}
}

func TestRecent_NewestFirst(t *testing.T) {
	svc, _, _, _ := newTestService(eczemaReply, nil)
	pid := uuid.New()
	for i := 0; i < 3; i++ {
		if _, err := svc.Analyze(context.Background(), pid, "ann@example.com", pngImage()); err != nil {
			t.Fatal(err)
		}
	}
	got, err := svc.Recent(context.Background(), pid, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || !got[0].CreatedAt.After(got[1].CreatedAt) {
		t.Errorf("unexpected order %+v", got)
	}
}
