package directory

import "github.com/google/uuid"

func seedID(kind, name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("vitacare:"+kind+":"+name))
}

var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// SeedHospitals returns the hospitals the seed command installs.
func SeedHospitals() []*Hospital {
	hs := []*Hospital{
		{Name: "Metro Medical Center", Address: "12 Ring Road", City: "Delhi", State: "Delhi", Region: "North India",
			Phone: "011-4000-1200", Rating: 4.8, Specialties: []string{"Cardiology", "Orthopedics"},
			Facilities: []string{"ICU", "24/7 Pharmacy", "Cath Lab"}, EmergencyAvailable: true},
		{Name: "City General Hospital", Address: "88 MG Road", City: "Bengaluru", State: "Karnataka", Region: "South India",
			Phone: "080-2200-3400", Rating: 4.6, Specialties: []string{"Dermatology", "General Medicine"},
			Facilities: []string{"ICU", "Radiology", "Blood Bank"}, EmergencyAvailable: true},
		{Name: "Children's Hospital", Address: "5 Park Street", City: "Kolkata", State: "West Bengal", Region: "East India",
			Phone: "033-2290-1100", Rating: 4.9, Specialties: []string{"Pediatrics", "Neonatology"},
			Facilities: []string{"NICU", "Play Therapy"}, EmergencyAvailable: true},
		{Name: "Neuro Institute", Address: "21 Linking Road", City: "Mumbai", State: "Maharashtra", Region: "West India",
			Phone: "022-6600-7700", Rating: 4.7, Specialties: []string{"Neurology", "Neurosurgery"},
			Facilities: []string{"MRI", "Stroke Unit"}, EmergencyAvailable: true},
		{Name: "Community Health Clinic", Address: "3 Mall Road", City: "Lucknow", State: "Uttar Pradesh", Region: "North India",
			Phone: "0522-400-500", Rating: 4.4, Specialties: []string{"General Medicine"},
			Facilities: []string{"Pharmacy", "Lab"}},
		{Name: "Women's Health Center", Address: "40 Anna Salai", City: "Chennai", State: "Tamil Nadu", Region: "South India",
			Phone: "044-2800-9000", Rating: 4.8, Specialties: []string{"Gynecology", "Obstetrics"},
			Facilities: []string{"Maternity Ward", "Ultrasound"}, EmergencyAvailable: true},
		{Name: "Mental Wellness Center", Address: "9 FC Road", City: "Pune", State: "Maharashtra", Region: "West India",
			Phone: "020-2500-6000", Rating: 4.5, Specialties: []string{"Psychiatry", "Psychology"},
			Facilities: []string{"Counselling Rooms", "Day Care"}},
	}
	for _, h := range hs {
		h.ID = seedID("hospital", h.Name)
	}
	return hs
}

// SeedDoctors returns the specialists the seed command installs. Hospital
// ids are filled in by Seed.
func SeedDoctors() []*Doctor {
	ds := []*Doctor{
		{Name: "Dr. Sarah Johnson", Specialization: "Cardiologist", HospitalName: "Metro Medical Center",
			ExperienceYears: 15, Rating: 4.9, ReviewsCount: 245, ConsultationFee: 150, Qualification: "MD, DM Cardiology",
			Languages: []string{"English", "Hindi"}, Bio: "Interventional cardiologist focused on preventive heart care."},
		{Name: "Dr. Michael Chen", Specialization: "Dermatologist", HospitalName: "City General Hospital",
			ExperienceYears: 12, Rating: 4.8, ReviewsCount: 189, ConsultationFee: 120, Qualification: "MD Dermatology",
			Languages: []string{"English"}, AvailableDays: weekdays,
			Bio: "Treats chronic skin conditions and performs minor procedures."},
		{Name: "Dr. Emily Davis", Specialization: "Pediatrician", HospitalName: "Children's Hospital",
			ExperienceYears: 10, Rating: 4.9, ReviewsCount: 312, ConsultationFee: 100, Qualification: "MD Pediatrics",
			Languages: []string{"English", "Bengali"}, Bio: "Child health from newborn care to adolescence."},
		{Name: "Dr. James Wilson", Specialization: "Orthopedic", HospitalName: "Metro Medical Center",
			ExperienceYears: 20, Rating: 4.7, ReviewsCount: 156, ConsultationFee: 180, Qualification: "MS Orthopedics",
			Languages: []string{"English"}, AvailableDays: []string{"Tuesday", "Thursday", "Saturday"},
			AvailableSlots: []string{"10:00 AM", "10:30 AM", "11:00 AM", "02:00 PM", "02:30 PM"},
			Bio:            "Joint replacement and sports injury specialist."},
		{Name: "Dr. Lisa Thompson", Specialization: "Neurologist", HospitalName: "Neuro Institute",
			ExperienceYears: 18, Rating: 4.8, ReviewsCount: 198, ConsultationFee: 200, Qualification: "DM Neurology",
			Languages: []string{"English", "Marathi"}, Bio: "Headache, epilepsy and stroke rehabilitation."},
		{Name: "Dr. Robert Martinez", Specialization: "General Physician", HospitalName: "Community Health Clinic",
			ExperienceYears: 8, Rating: 4.6, ReviewsCount: 124, ConsultationFee: 80, Qualification: "MBBS, MD",
			Languages: []string{"English", "Hindi"}, Bio: "Primary care and chronic disease management."},
		{Name: "Dr. Jennifer Lee", Specialization: "Gynecologist", HospitalName: "Women's Health Center",
			ExperienceYears: 14, Rating: 4.9, ReviewsCount: 267, ConsultationFee: 130, Qualification: "MS Obstetrics & Gynecology",
			Languages: []string{"English", "Tamil"}, AvailableDays: weekdays,
			Bio: "Women's health across every stage of life."},
		{Name: "Dr. David Brown", Specialization: "Psychiatrist", HospitalName: "Mental Wellness Center",
			ExperienceYears: 16, Rating: 4.7, ReviewsCount: 145, ConsultationFee: 160, Qualification: "MD Psychiatry",
			Languages: []string{"English"}, AvailableSlots: []string{"02:00 PM", "03:00 PM", "04:00 PM", "05:00 PM", "06:00 PM"},
			Bio: "Anxiety, depression and sleep disorders."},
	}
	for _, d := range ds {
		d.ID = seedID("doctor", d.Name)
	}
	return ds
}
