package platforms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/pursuit/internal/models"
)

func testProfile() *models.Profile {
	return &models.Profile{
		FirstName:         "Jane",
		LastName:          "Doe",
		Email:             "jane@example.com",
		Phone:             "+61 400 000 000",
		Location:          "Sydney, Australia",
		LinkedIn:          "https://linkedin.com/in/janedoe",
		GitHub:            "https://github.com/janedoe",
		Website:           "https://janedoe.dev",
		YearsExperience:   "8",
		CurrentTitle:      "Senior Engineer",
		CurrentCompany:    "Acme",
		DesiredSalary:     "180000",
		WorkAuthorization: "yes",
		Relocation:        "no",
		HowDidYouHear:     "LinkedIn",
	}
}

func actionByField(actions []FillAction, kind string) *FillAction {
	for i := range actions {
		if actions[i].FieldKind == kind {
			return &actions[i]
		}
	}
	return nil
}

func TestAnalyzeFormBasicFields(t *testing.T) {
	html := `<html><body><form>
		<label for="fn">First Name</label><input id="fn" type="text">
		<label for="ln">Last Name</label><input id="ln" type="text">
		<input type="email" name="email" placeholder="Email address">
		<input type="tel" name="phone" aria-label="Phone number">
		<textarea name="cover_letter"></textarea>
		<input type="hidden" name="csrf" value="x">
		<input type="submit" value="Apply">
	</form></body></html>`

	analysis, err := AnalyzeForm(html, testProfile(), "/tmp/resume.pdf", "")
	require.NoError(t, err)
	assert.Empty(t, analysis.FrameURL)

	fn := actionByField(analysis.Actions, "first_name")
	require.NotNil(t, fn)
	assert.Equal(t, "#fn", fn.Selector)
	assert.Equal(t, "Jane", fn.Value)

	email := actionByField(analysis.Actions, "email")
	require.NotNil(t, email)
	assert.Equal(t, "jane@example.com", email.Value)

	// Hidden and submit inputs are never touched
	for _, a := range analysis.Actions {
		assert.NotContains(t, a.Selector, "csrf")
	}
}

func TestAnalyzeFormFirstMatchWins(t *testing.T) {
	// "linkedin url" contains both linkedin and website keywords; linkedin
	// is earlier in the ordered map so it must win.
	html := `<form><input type="text" name="q1" placeholder="LinkedIn URL"></form>`

	analysis, err := AnalyzeForm(html, testProfile(), "", "")
	require.NoError(t, err)
	require.Len(t, analysis.Actions, 1)
	assert.Equal(t, "linkedin", analysis.Actions[0].FieldKind)
	assert.Equal(t, "https://linkedin.com/in/janedoe", analysis.Actions[0].Value)
}

func TestAnalyzeFormATSIframeScoping(t *testing.T) {
	html := `<html><body>
		<iframe src="https://boards.greenhouse.io/embed/job_app?for=acme"></iframe>
		<form><input type="text" name="email"></form>
	</body></html>`

	analysis, err := AnalyzeForm(html, testProfile(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "https://boards.greenhouse.io/embed/job_app?for=acme", analysis.FrameURL)
	assert.Empty(t, analysis.Actions)
}

func TestAnalyzeFormSelectAndRadio(t *testing.T) {
	html := `<form>
		<label for="auth">Are you authorized to work in this country?</label>
		<select id="auth">
			<option value="">Select...</option>
			<option value="1">Yes, I am</option>
			<option value="0">No</option>
		</select>
		<label><input type="radio" name="relocate" value="relocate_yes"> Willing to relocate: yes</label>
		<label><input type="radio" name="relocate" value="relocate_no"> Willing to relocate: no</label>
	</form>`

	analysis, err := AnalyzeForm(html, testProfile(), "", "")
	require.NoError(t, err)

	auth := actionByField(analysis.Actions, "work_authorization")
	require.NotNil(t, auth)
	assert.Equal(t, ActionSelect, auth.Kind)
	assert.Equal(t, "1", auth.Value) // option "Yes, I am" matched "yes"

	// Profile says relocation=no, so only the matching radio is planned
	var radios []FillAction
	for _, a := range analysis.Actions {
		if a.Kind == ActionRadio {
			radios = append(radios, a)
		}
	}
	require.Len(t, radios, 1)
	assert.Contains(t, radios[0].Selector, "relocate")
}

func TestAnalyzeFormFileRouting(t *testing.T) {
	html := `<form>
		<input type="file" name="cover_letter_upload">
		<input type="file" name="attachment">
	</form>`

	analysis, err := AnalyzeForm(html, testProfile(), "/tmp/resume.pdf", "/tmp/cover.pdf")
	require.NoError(t, err)

	cover := actionByField(analysis.Actions, "cover_letter")
	require.NotNil(t, cover)
	assert.Equal(t, "/tmp/cover.pdf", cover.Value)

	// The single remaining anonymous file input receives the resume
	resume := actionByField(analysis.Actions, "resume")
	require.NotNil(t, resume)
	assert.Equal(t, "/tmp/resume.pdf", resume.Value)
}

func TestAnalyzeFormAnonymousFileAmbiguous(t *testing.T) {
	// Two unidentified file inputs: neither receives the resume
	html := `<form>
		<input type="file" name="upload1">
		<input type="file" name="upload2">
	</form>`

	analysis, err := AnalyzeForm(html, testProfile(), "/tmp/resume.pdf", "")
	require.NoError(t, err)
	assert.Nil(t, actionByField(analysis.Actions, "resume"))
}

func TestMatchFieldKindStopsAtFirst(t *testing.T) {
	tests := []struct {
		clues string
		want  string
	}{
		{"first name applicant_first_name", "first_name"},
		{"your e-mail", "email"},
		{"desired salary expectations", "desired_salary"},
		{"city of residence", "location"},
		{"something unrelated", ""},
	}
	for _, tt := range tests {
		if got := matchFieldKind(tt.clues); got != tt.want {
			t.Errorf("matchFieldKind(%q) = %q, want %q", tt.clues, got, tt.want)
		}
	}
}
