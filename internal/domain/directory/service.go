package directory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Doctor sort orders.
const (
	SortRating     = "rating"
	SortExperience = "experience"
	SortFeeLow     = "fee_low"
	SortFeeHigh    = "fee_high"
)

var validDoctorSorts = map[string]bool{
	SortRating: true, SortExperience: true, SortFeeLow: true, SortFeeHigh: true,
}

// DoctorQuery filters the doctor directory. Q matches name, specialization
// or hospital name case-insensitively.
type DoctorQuery struct {
	Q              string
	Specialization string
	HospitalID     uuid.UUID
	Sort           string
}

// HospitalQuery filters hospitals. Q matches name or city; City is exact
// (case-insensitive).
type HospitalQuery struct {
	Q      string
	Region string
	City   string
}

type Service struct {
	doctors   DoctorRepository
	hospitals HospitalRepository
}

func NewService(doctors DoctorRepository, hospitals HospitalRepository) *Service {
	return &Service{doctors: doctors, hospitals: hospitals}
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) SearchDoctors(ctx context.Context, q DoctorQuery) ([]*Doctor, error) {
	if q.Sort == "" {
		q.Sort = SortRating
	}
	if !validDoctorSorts[q.Sort] {
		return nil, fmt.Errorf("invalid sort: %s", q.Sort)
	}

	var all []*Doctor
	var err error
	if q.HospitalID != uuid.Nil {
		all, err = s.doctors.ListByHospital(ctx, q.HospitalID)
	} else {
		all, err = s.doctors.List(ctx)
	}
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(q.Q))
	out := make([]*Doctor, 0, len(all))
	for _, d := range all {
		if needle != "" && !containsFold(needle, d.Name, d.Specialization, d.HospitalName) {
			continue
		}
		if q.Specialization != "" && d.Specialization != q.Specialization {
			continue
		}
		out = append(out, d)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch q.Sort {
		case SortExperience:
			return a.ExperienceYears > b.ExperienceYears
		case SortFeeLow:
			return a.ConsultationFee < b.ConsultationFee
		case SortFeeHigh:
			return a.ConsultationFee > b.ConsultationFee
		default:
			return a.Rating > b.Rating
		}
	})
	return out, nil
}

// Specializations lists the distinct specializations, sorted.
func (s *Service) Specializations(ctx context.Context) ([]string, error) {
	all, err := s.doctors.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, d := range all {
		if !seen[d.Specialization] {
			seen[d.Specialization] = true
			out = append(out, d.Specialization)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Service) SearchHospitals(ctx context.Context, q HospitalQuery) ([]*Hospital, error) {
	if q.Region != "" && !validRegion(q.Region) {
		return nil, fmt.Errorf("invalid region: %s", q.Region)
	}
	all, err := s.hospitals.List(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(q.Q))
	out := make([]*Hospital, 0, len(all))
	for _, h := range all {
		if needle != "" && !containsFold(needle, h.Name, h.City) {
			continue
		}
		if q.Region != "" && h.Region != q.Region {
			continue
		}
		if q.City != "" && !strings.EqualFold(h.City, q.City) {
			continue
		}
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	return out, nil
}

func (s *Service) GetHospital(ctx context.Context, id uuid.UUID) (*HospitalDetail, error) {
	h, err := s.hospitals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	doctors, err := s.doctors.ListByHospital(ctx, id)
	if err != nil {
		return nil, err
	}
	if doctors == nil {
		doctors = []*Doctor{}
	}
	return &HospitalDetail{Hospital: h, Doctors: doctors}, nil
}

// Seed upserts the built-in directory. Ids are derived from names so
// reseeding is idempotent.
func (s *Service) Seed(ctx context.Context) (int, int, error) {
	hospitals := SeedHospitals()
	byName := make(map[string]*Hospital, len(hospitals))
	for _, h := range hospitals {
		if err := s.hospitals.Upsert(ctx, h); err != nil {
			return 0, 0, fmt.Errorf("seed hospital %s: %w", h.Name, err)
		}
		byName[h.Name] = h
	}
	doctors := SeedDoctors()
	for _, d := range doctors {
		if h, ok := byName[d.HospitalName]; ok {
			id := h.ID
			d.HospitalID = &id
		}
		if err := s.doctors.Upsert(ctx, d); err != nil {
			return 0, 0, fmt.Errorf("seed doctor %s: %w", d.Name, err)
		}
	}
	return len(hospitals), len(doctors), nil
}

func containsFold(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func validRegion(r string) bool {
	for _, v := range Regions {
		if v == r {
			return true
		}
	}
	return false
}
