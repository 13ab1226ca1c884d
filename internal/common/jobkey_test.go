package common

import (
	"testing"
)

func TestJobKey(t *testing.T) {
	tests := []struct {
		company string
		title   string
		want    string
	}{
		{"Google", "Software Engineer", "google--software-engineer"},
		{"Google LLC", "Software Engineer", "google--software-engineer"},
		{"Acme Corp.", "Senior Go Developer", "acme--senior-go-developer"},
		{"Acme, Inc.", "Senior Go Developer", "acme--senior-go-developer"},
		{"Stripe", "Backend Engineer, Payments", "stripe--backend-engineer-payments"},

		// Case and whitespace normalization
		{"  STRIPE  ", "  Backend   Engineer ", "stripe--backend-engineer"},

		// Suffix-only company names are kept as-is
		{"Limited", "Analyst", "limited--analyst"},

		// Missing parts
		{"", "Engineer", "engineer"},
		{"Google", "", "google"},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.company+"/"+tt.title, func(t *testing.T) {
			if got := JobKey(tt.company, tt.title); got != tt.want {
				t.Errorf("JobKey(%q, %q) = %q, want %q", tt.company, tt.title, got, tt.want)
			}
		})
	}
}

func TestJobKeyStableAcrossSources(t *testing.T) {
	a := JobKey("Canva Pty Ltd", "Frontend Engineer")
	b := JobKey("canva", "Frontend  Engineer")
	if a != b {
		t.Errorf("keys differ across sources: %q vs %q", a, b)
	}
}
