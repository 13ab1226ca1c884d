package pipelines

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDetectsFabricatedSkillAndCompany(t *testing.T) {
	original := "Experience with Python and Kubernetes at Google"
	tailored := "Experience with Python, Kubernetes and Terraform at Google and Stripe"

	result := Validate(original, tailored)

	assert.False(t, result.IsValid)
	assert.Contains(t, result.NewSkills, "terraform")
	assert.Contains(t, result.NewCompanies, "stripe")
	assert.Empty(t, result.NewMetrics)
	assert.Len(t, result.Warnings, 2)
}

func TestValidateSubsetIsValid(t *testing.T) {
	original := "Led a team at Google. Built services in Python and Kubernetes, improving latency by 40%."
	tailored := "Built Kubernetes services in Python at Google, improving latency by 40%."

	result := Validate(original, tailored)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.NewCompanies)
	assert.Empty(t, result.NewSkills)
	assert.Empty(t, result.NewMetrics)
	assert.Empty(t, result.Warnings)
}

func TestValidateReorderingIsNotFabrication(t *testing.T) {
	original := "Python, Terraform and AWS at Stripe"
	tailored := "AWS and Terraform at Stripe, plus Python"

	result := Validate(original, tailored)
	assert.True(t, result.IsValid)
}

func TestValidateDetectsFabricatedMetrics(t *testing.T) {
	original := "Reduced costs at Acme"
	tailored := "Reduced costs by 35% saving $200,000 USD 4000 and achieved 3x throughput at Acme"

	result := Validate(original, tailored)

	assert.False(t, result.IsValid)
	assert.Contains(t, result.NewMetrics, "35%")
	assert.Contains(t, result.NewMetrics, "3x")

	found := false
	for _, m := range result.NewMetrics {
		if m == "$200,000" {
			found = true
		}
	}
	assert.True(t, found, "currency amount should be flagged, got %v", result.NewMetrics)
}

func TestExtractCompanies(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"after at", "Worked at Google on search", []string{"google"}},
		{"coordinated", "Shipped features for Google and Stripe", []string{"google", "stripe"}},
		{"multi word", "Joined Goldman Sachs in 2019", []string{"goldman sachs"}},
		{"comma breaks run", "Python, Kubernetes and Docker", nil},
		{"stop words filtered", "Worked at The office", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractCompanies(tt.text)
			for _, want := range tt.want {
				_, ok := got[want]
				assert.True(t, ok, "expected %q in %v", want, got)
			}
			if tt.want == nil {
				assert.Empty(t, got)
			}
		})
	}
}

func TestExtractSkills(t *testing.T) {
	got := extractSkills("Deployed PyTorch models with Docker on AWS using Terraform")

	for _, want := range []string{"pytorch", "docker", "aws", "terraform"} {
		_, ok := got[want]
		assert.True(t, ok, "expected %q in %v", want, got)
	}

	// "java" must not fire inside "javascript"
	got = extractSkills("Wrote javascript frontends")
	_, hasJavascript := got["javascript"]
	_, hasJava := got["java"]
	assert.True(t, hasJavascript)
	assert.False(t, hasJava)
}

func TestExtractMetrics(t *testing.T) {
	got := extractMetrics("Improved p99 by 12.5%, handled 50000 requests, 10x growth, saved USD 300")

	for _, want := range []string{"12.5%", "50000", "10x"} {
		_, ok := got[want]
		require.True(t, ok, "expected %q in %v", want, got)
	}
	assert.NotContains(t, got, "99") // two digits is not a metric
}
