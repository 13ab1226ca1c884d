package models

// Profile holds the applicant details the form filler writes into ATS forms.
// Stored in the kv store under well-known keys so the dashboard can edit it.
type Profile struct {
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	Location          string `json:"location"`
	LinkedIn          string `json:"linkedin"`
	GitHub            string `json:"github"`
	Website           string `json:"website"`
	YearsExperience   string `json:"years_experience"`
	CurrentTitle      string `json:"current_title"`
	CurrentCompany    string `json:"current_company"`
	DesiredSalary     string `json:"desired_salary"`
	StartDate         string `json:"start_date"`
	Education         string `json:"education"`
	WorkAuthorization string `json:"work_authorization"`
	Relocation        string `json:"relocation"`
	HowDidYouHear     string `json:"how_did_you_hear"`
}
