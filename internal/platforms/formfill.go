package platforms

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/models"
)

// atsFrameHosts is the allowlist of embedded ATS iframe URL substrings. When
// a page hosts one of these, form analysis is scoped to that frame.
var atsFrameHosts = []string{
	"boards.greenhouse.io",
	"jobs.lever.co",
	"jobs.ashbyhq.com",
	"app.bamboohr.com",
	"workday",
}

var coverLetterKeywords = []string{"cover letter", "cover_letter", "coverletter"}

// fieldKeyword maps a field kind to its clue substrings. The slice is
// ordered; the first kind whose substrings match wins.
type fieldKeyword struct {
	kind     string
	keywords []string
}

var fieldKeywords = []fieldKeyword{
	{"first_name", []string{"first name", "first_name", "firstname", "given name"}},
	{"last_name", []string{"last name", "last_name", "lastname", "surname", "family name"}},
	{"email", []string{"email", "e-mail"}},
	{"phone", []string{"phone", "mobile", "telephone"}},
	{"linkedin", []string{"linkedin"}},
	{"github", []string{"github"}},
	{"cover_letter", coverLetterKeywords},
	{"website", []string{"website", "portfolio", "personal site", "url"}},
	{"years_experience", []string{"years of experience", "years experience", "years_experience", "how many years"}},
	{"current_title", []string{"current title", "job title", "current role", "current position"}},
	{"current_company", []string{"current company", "current employer", "employer"}},
	{"desired_salary", []string{"salary", "compensation", "expected pay"}},
	{"start_date", []string{"start date", "available", "availability", "notice period"}},
	{"education", []string{"education", "degree", "university", "school"}},
	{"work_authorization", []string{"authorized to work", "work authorization", "work authorisation", "visa", "sponsorship", "legally"}},
	{"relocation", []string{"relocat", "willing to move"}},
	{"how_did_you_hear", []string{"how did you hear", "hear about", "referral source"}},
	{"location", []string{"location", "city", "address"}},
}

// ActionKind says how a FillAction is written to the page.
type ActionKind string

const (
	ActionFill   ActionKind = "fill"   // text and textarea
	ActionSelect ActionKind = "select" // select by matched option value
	ActionCheck  ActionKind = "check"  // checkbox click
	ActionRadio  ActionKind = "radio"  // radio click
	ActionUpload ActionKind = "upload" // file input
)

// FillAction is one planned write against a form element.
type FillAction struct {
	Kind      ActionKind
	FieldKind string
	Selector  string
	Value     string
}

// FormAnalysis is the result of analyzing a page's HTML.
type FormAnalysis struct {
	// FrameURL is non-empty when a known ATS iframe hosts the form; the
	// caller should navigate into the frame and re-analyze.
	FrameURL string
	Actions  []FillAction
}

// Filler fills job application forms. Analysis is a pure function over the
// page HTML; only the write-back touches the browser. It never submits.
type Filler struct {
	logger arbor.ILogger
}

// NewFiller creates a form filler
func NewFiller(logger arbor.ILogger) *Filler {
	return &Filler{logger: logger}
}

// AnalyzeForm plans fill actions for the given page HTML. Pure: no browser.
func AnalyzeForm(html string, profile *models.Profile, resumePath, coverLetterPath string) (*FormAnalysis, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}

	// Scope to a known ATS iframe when present
	var frameURL string
	doc.Find("iframe").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, _ := sel.Attr("src")
		for _, host := range atsFrameHosts {
			if strings.Contains(src, host) {
				frameURL = src
				return false
			}
		}
		return true
	})
	if frameURL != "" {
		return &FormAnalysis{FrameURL: frameURL}, nil
	}

	values := profileValues(profile)
	analysis := &FormAnalysis{}
	var anonymousFiles []string

	doc.Find("input, textarea, select").Each(func(_ int, sel *goquery.Selection) {
		tag := goquery.NodeName(sel)
		inputType := strings.ToLower(sel.AttrOr("type", "text"))
		if tag == "input" {
			switch inputType {
			case "hidden", "submit", "button", "reset", "image":
				return
			}
		}

		selector := elementSelector(sel)
		if selector == "" {
			return
		}
		clues := elementClues(sel, doc)

		// File inputs route artifacts rather than profile values
		if tag == "input" && inputType == "file" {
			if matchesAny(clues, coverLetterKeywords) {
				if coverLetterPath != "" {
					analysis.Actions = append(analysis.Actions, FillAction{
						Kind: ActionUpload, FieldKind: "cover_letter", Selector: selector, Value: coverLetterPath,
					})
				}
				return
			}
			if matchesAny(clues, []string{"resume", "cv", "curriculum"}) {
				if resumePath != "" {
					analysis.Actions = append(analysis.Actions, FillAction{
						Kind: ActionUpload, FieldKind: "resume", Selector: selector, Value: resumePath,
					})
				}
				return
			}
			anonymousFiles = append(anonymousFiles, selector)
			return
		}

		kind := matchFieldKind(clues)
		if kind == "" {
			return
		}
		value := values[kind]
		if value == "" {
			return
		}

		switch {
		case tag == "select":
			if optionValue := matchOption(sel, value); optionValue != "" {
				analysis.Actions = append(analysis.Actions, FillAction{
					Kind: ActionSelect, FieldKind: kind, Selector: selector, Value: optionValue,
				})
			}
		case tag == "input" && inputType == "checkbox":
			if truthy(value) {
				analysis.Actions = append(analysis.Actions, FillAction{
					Kind: ActionCheck, FieldKind: kind, Selector: selector, Value: value,
				})
			}
		case tag == "input" && inputType == "radio":
			radioValue := strings.ToLower(sel.AttrOr("value", ""))
			if radioValue != "" && strings.Contains(radioValue, strings.ToLower(value)) {
				analysis.Actions = append(analysis.Actions, FillAction{
					Kind: ActionRadio, FieldKind: kind, Selector: selector, Value: value,
				})
			}
		default:
			analysis.Actions = append(analysis.Actions, FillAction{
				Kind: ActionFill, FieldKind: kind, Selector: selector, Value: value,
			})
		}
	})

	// A single unidentified file input receives the resume
	if len(anonymousFiles) == 1 && resumePath != "" {
		analysis.Actions = append(analysis.Actions, FillAction{
			Kind: ActionUpload, FieldKind: "resume", Selector: anonymousFiles[0], Value: resumePath,
		})
	}

	return analysis, nil
}

// Fill executes planned actions against the live page. Returns the audit map
// of field kind to written value. It never submits the form.
func (f *Filler) Fill(ctx context.Context, actions []FillAction) (map[string]string, error) {
	filled := make(map[string]string)

	for _, action := range actions {
		var err error
		switch action.Kind {
		case ActionFill:
			err = chromedp.Run(ctx,
				chromedp.SetValue(action.Selector, action.Value, chromedp.ByQuery))
		case ActionSelect:
			err = chromedp.Run(ctx,
				chromedp.SetValue(action.Selector, action.Value, chromedp.ByQuery))
		case ActionCheck, ActionRadio:
			err = chromedp.Run(ctx,
				chromedp.Click(action.Selector, chromedp.ByQuery))
		case ActionUpload:
			err = chromedp.Run(ctx,
				chromedp.SetUploadFiles(action.Selector, []string{action.Value}, chromedp.ByQuery))
		}
		if err != nil {
			f.logger.Warn().
				Err(err).
				Str("field", action.FieldKind).
				Str("selector", action.Selector).
				Msg("Failed to fill form field")
			continue
		}
		filled[action.FieldKind] = action.Value
	}

	return filled, nil
}

// elementClues lowercase-concatenates the identifying attributes and label
// text of an element.
func elementClues(sel *goquery.Selection, doc *goquery.Document) string {
	parts := []string{
		sel.AttrOr("name", ""),
		sel.AttrOr("id", ""),
		sel.AttrOr("placeholder", ""),
		sel.AttrOr("aria-label", ""),
	}

	if id := sel.AttrOr("id", ""); id != "" {
		doc.Find(fmt.Sprintf("label[for=%q]", id)).Each(func(_ int, label *goquery.Selection) {
			parts = append(parts, label.Text())
		})
	}
	if parentLabel := sel.Closest("label"); parentLabel.Length() > 0 {
		parts = append(parts, parentLabel.Text())
	}

	return strings.ToLower(strings.Join(parts, " "))
}

// matchFieldKind finds the first keyword-map entry whose substrings appear
// in the clues.
func matchFieldKind(clues string) string {
	for _, fk := range fieldKeywords {
		if matchesAny(clues, fk.keywords) {
			return fk.kind
		}
	}
	return ""
}

func matchesAny(clues string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(clues, kw) {
			return true
		}
	}
	return false
}

// matchOption returns the value attribute of the first option whose text
// contains the desired value, case-insensitively.
func matchOption(sel *goquery.Selection, value string) string {
	lower := strings.ToLower(value)
	var matched string
	sel.Find("option").EachWithBreak(func(_ int, opt *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(opt.Text()), lower) {
			matched = opt.AttrOr("value", strings.TrimSpace(opt.Text()))
			return false
		}
		return true
	})
	return matched
}

// elementSelector builds a CSS selector for the element, preferring id then
// name. Elements with neither are skipped.
func elementSelector(sel *goquery.Selection) string {
	if id := sel.AttrOr("id", ""); id != "" {
		return "#" + id
	}
	if name := sel.AttrOr("name", ""); name != "" {
		tag := goquery.NodeName(sel)
		if inputType := sel.AttrOr("type", ""); tag == "input" && inputType != "" {
			return fmt.Sprintf(`input[name=%q][type=%q]`, name, inputType)
		}
		return fmt.Sprintf(`%s[name=%q]`, tag, name)
	}
	return ""
}

func truthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "true", "1", "y":
		return true
	}
	return false
}

// profileValues flattens a profile into the field-kind value map consumed by
// the keyword matcher.
func profileValues(p *models.Profile) map[string]string {
	if p == nil {
		return map[string]string{}
	}
	return map[string]string{
		"first_name":         p.FirstName,
		"last_name":          p.LastName,
		"email":              p.Email,
		"phone":              p.Phone,
		"location":           p.Location,
		"linkedin":           p.LinkedIn,
		"github":             p.GitHub,
		"website":            p.Website,
		"years_experience":   p.YearsExperience,
		"current_title":      p.CurrentTitle,
		"current_company":    p.CurrentCompany,
		"desired_salary":     p.DesiredSalary,
		"start_date":         p.StartDate,
		"education":          p.Education,
		"work_authorization": p.WorkAuthorization,
		"relocation":         p.Relocation,
		"how_did_you_hear":   p.HowDidYouHear,
	}
}
