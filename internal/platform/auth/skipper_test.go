package auth

import "testing"

func TestIsPublicPath(t *testing.T) {
	tests := []struct {
		method, path string
		want         bool
	}{
		{"GET", "/health", true},
		{"GET", "/health/db", true},
		{"GET", "/api/v1/wellness/bmi", true},
		{"GET", "/api/v1/doctors", true},
		{"GET", "/api/v1/doctors/:id", true},
		{"GET", "/api/v1/hospitals/:id", true},
		{"POST", "/api/v1/doctors", false},
		{"GET", "/api/v1/dashboard", false},
		{"GET", "/api/v1/session", false},
		{"GET", "/health/extra", false},
	}
	for _, tt := range tests {
		if got := IsPublicPath(tt.method, tt.path); got != tt.want {
			t.Errorf("IsPublicPath(%s %s) = %v, want %v", tt.method, tt.path, got, tt.want)
		}
	}
}
