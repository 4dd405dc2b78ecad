package directory

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/vitacare/portal/internal/platform/db"
)

// ── Mock Repositories ──

type mockDoctorRepo struct {
	data map[uuid.UUID]*Doctor
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	if d, ok := m.data[id]; ok {
		return d, nil
	}
	return nil, db.ErrNotFound
}
func (m *mockDoctorRepo) List(_ context.Context) ([]*Doctor, error) {
	var out []*Doctor
	for _, d := range m.data {
		out = append(out, d)
	}
	return out, nil
}
func (m *mockDoctorRepo) ListByHospital(_ context.Context, hospitalID uuid.UUID) ([]*Doctor, error) {
	var out []*Doctor
	for _, d := range m.data {
		if d.HospitalID != nil && *d.HospitalID == hospitalID {
			out = append(out, d)
		}
	}
	return out, nil
}
func (m *mockDoctorRepo) Upsert(_ context.Context, d *Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	m.data[d.ID] = d
	return nil
}

type mockHospitalRepo struct {
	data map[uuid.UUID]*Hospital
}

func (m *mockHospitalRepo) GetByID(_ context.Context, id uuid.UUID) (*Hospital, error) {
	if h, ok := m.data[id]; ok {
		return h, nil
	}
	return nil, db.ErrNotFound
}
func (m *mockHospitalRepo) List(_ context.Context) ([]*Hospital, error) {
	var out []*Hospital
	for _, h := range m.data {
		out = append(out, h)
	}
	return out, nil
}
func (m *mockHospitalRepo) Upsert(_ context.Context, h *Hospital) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	m.data[h.ID] = h
	return nil
}

func newTestService() *Service {
	return NewService(
		&mockDoctorRepo{data: make(map[uuid.UUID]*Doctor)},
		&mockHospitalRepo{data: make(map[uuid.UUID]*Hospital)},
	)
}

func seededService(t *testing.T) *Service {
	t.Helper()
	svc := newTestService()
	if _, _, err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return svc
}

func TestSeed_Idempotent(t *testing.T) {
	svc := newTestService()
	h1, d1, err := svc.Seed(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if h1 != 7 || d1 != 8 {
		t.Errorf("expected 7 hospitals and 8 doctors, got %d/%d", h1, d1)
	}
	if _, _, err := svc.Seed(context.Background()); err != nil {
		t.Fatal(err)
	}
	all, _ := svc.SearchDoctors(context.Background(), DoctorQuery{})
	if len(all) != 8 {
		t.Errorf("reseeding must not duplicate, got %d doctors", len(all))
	}
}

func TestSeed_LinksHospitals(t *testing.T) {
	svc := seededService(t)
	for _, d := range SeedDoctors() {
		got, err := svc.GetDoctor(context.Background(), d.ID)
		if err != nil {
			t.Fatalf("doctor %s: %v", d.Name, err)
		}
		if got.HospitalID == nil {
			t.Errorf("%s has no hospital id", d.Name)
		}
	}
}

func TestSearchDoctors_SarahJohnson(t *testing.T) {
	svc := seededService(t)
	items, err := svc.SearchDoctors(context.Background(), DoctorQuery{Q: "sarah"})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 match, got %d", len(items))
	}
	d := items[0]
	if d.Name != "Dr. Sarah Johnson" || d.Specialization != "Cardiologist" || d.Fee() != 150 {
		t.Errorf("unexpected doctor %+v", d)
	}
}

func TestSearchDoctors_MatchesHospitalAndSpecialization(t *testing.T) {
	svc := seededService(t)
	items, _ := svc.SearchDoctors(context.Background(), DoctorQuery{Q: "METRO"})
	if len(items) != 2 {
		t.Errorf("expected 2 doctors at Metro Medical Center, got %d", len(items))
	}
	items, _ = svc.SearchDoctors(context.Background(), DoctorQuery{Q: "derma"})
	if len(items) != 1 || items[0].Name != "Dr. Michael Chen" {
		t.Errorf("unexpected specialization match %v", items)
	}
	items, _ = svc.SearchDoctors(context.Background(), DoctorQuery{Specialization: "Neurologist"})
	if len(items) != 1 {
		t.Errorf("expected 1 neurologist, got %d", len(items))
	}
}

func TestSearchDoctors_Sort(t *testing.T) {
	svc := seededService(t)
	ctx := context.Background()

	byFee, _ := svc.SearchDoctors(ctx, DoctorQuery{Sort: SortFeeLow})
	if byFee[0].Name != "Dr. Robert Martinez" {
		t.Errorf("expected cheapest first, got %s", byFee[0].Name)
	}
	byFeeHigh, _ := svc.SearchDoctors(ctx, DoctorQuery{Sort: SortFeeHigh})
	if byFeeHigh[0].Name != "Dr. Lisa Thompson" {
		t.Errorf("expected most expensive first, got %s", byFeeHigh[0].Name)
	}
	byExp, _ := svc.SearchDoctors(ctx, DoctorQuery{Sort: SortExperience})
	if byExp[0].Name != "Dr. James Wilson" {
		t.Errorf("expected most experienced first, got %s", byExp[0].Name)
	}
	byRating, _ := svc.SearchDoctors(ctx, DoctorQuery{})
	for i := 1; i < len(byRating); i++ {
		if byRating[i].Rating > byRating[i-1].Rating {
			t.Fatalf("ratings not descending at %d", i)
		}
	}
	if _, err := svc.SearchDoctors(ctx, DoctorQuery{Sort: "name"}); err == nil {
		t.Error("expected error for unknown sort")
	}
}

func TestSearchHospitals_Filters(t *testing.T) {
	svc := seededService(t)
	ctx := context.Background()

	south, err := svc.SearchHospitals(ctx, HospitalQuery{Region: "South India"})
	if err != nil {
		t.Fatal(err)
	}
	if len(south) != 2 {
		t.Errorf("expected 2 South India hospitals, got %d", len(south))
	}
	city, _ := svc.SearchHospitals(ctx, HospitalQuery{City: "mumbai"})
	if len(city) != 1 || city[0].Name != "Neuro Institute" {
		t.Errorf("unexpected city match %v", city)
	}
	q, _ := svc.SearchHospitals(ctx, HospitalQuery{Q: "pune"})
	if len(q) != 1 {
		t.Errorf("expected search to match city, got %d", len(q))
	}
	if _, err := svc.SearchHospitals(ctx, HospitalQuery{Region: "Central India"}); err == nil {
		t.Error("expected error for unknown region")
	}
}

func TestGetHospital_IncludesDoctors(t *testing.T) {
	svc := seededService(t)
	metro := seedID("hospital", "Metro Medical Center")
	detail, err := svc.GetHospital(context.Background(), metro)
	if err != nil {
		t.Fatal(err)
	}
	if len(detail.Doctors) != 2 {
		t.Errorf("expected 2 doctors, got %d", len(detail.Doctors))
	}
}

func TestDoctorFee_Default(t *testing.T) {
	d := &Doctor{}
	if d.Fee() != DefaultConsultationFee {
		t.Errorf("expected default fee, got %v", d.Fee())
	}
}

func TestSpecializations(t *testing.T) {
	svc := seededService(t)
	items, err := svc.Specializations(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 8 || items[0] != "Cardiologist" {
		t.Errorf("unexpected specializations %v", items)
	}
}
