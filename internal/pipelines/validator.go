package pipelines

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ValidationResult reports entities present in the tailored text but absent
// from the original. Reordering or paraphrasing is not fabrication; only
// novel companies, skills or metrics fail validation.
type ValidationResult struct {
	IsValid      bool     `json:"is_valid"`
	NewCompanies []string `json:"new_companies,omitempty"`
	NewSkills    []string `json:"new_skills,omitempty"`
	NewMetrics   []string `json:"new_metrics,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

// skillVocabulary is the closed keyword list matched case-insensitively.
var skillVocabulary = []string{
	"python", "java", "javascript", "typescript", "golang", "rust", "ruby",
	"php", "scala", "kotlin", "swift", "c++", "c#",
	"kubernetes", "docker", "terraform", "ansible", "helm", "jenkins",
	"aws", "gcp", "azure", "lambda", "ec2", "s3",
	"react", "angular", "vue", "node", "django", "flask", "spring", "rails",
	"postgres", "postgresql", "mysql", "mongodb", "redis", "cassandra",
	"kafka", "rabbitmq", "elasticsearch", "snowflake", "spark", "hadoop",
	"airflow", "dbt", "graphql", "grpc", "rest", "linux", "git",
	"tensorflow", "pytorch", "numpy", "pandas",
	"sql", "nosql", "microservices", "serverless", "devops",
}

// companyStopWords are capitalized tokens that never name an employer.
var companyStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "i": {}, "my": {}, "our": {}, "we": {},
	"at": {}, "for": {}, "in": {}, "on": {}, "with": {}, "and": {}, "of": {},
	"to": {}, "as": {}, "using": {}, "experience": {},
	"led": {}, "built": {}, "joined": {}, "worked": {}, "shipped": {},
	"managed": {}, "developed": {}, "designed": {}, "created": {},
	"launched": {}, "delivered": {}, "implemented": {}, "improved": {},
	"reduced": {}, "increased": {}, "deployed": {}, "migrated": {},
	"january": {}, "february": {}, "march": {}, "april": {}, "may": {},
	"june": {}, "july": {}, "august": {}, "september": {}, "october": {},
	"november": {}, "december": {}, "present": {}, "summary": {},
	"skills": {}, "education": {}, "work": {}, "projects": {},
}

var (
	capitalizedWord = regexp.MustCompile(`^[A-Z][a-zA-Z&]*$`)
	camelCaseToken  = regexp.MustCompile(`\b[A-Z][a-z]+(?:[A-Z][a-z]+)+\b`)
	acronymToken    = regexp.MustCompile(`\b[A-Z]{2,}\b`)

	percentPattern   = regexp.MustCompile(`\b\d+(?:\.\d+)?%`)
	currencyPattern  = regexp.MustCompile(`(?:USD\s?)?\$\s?\d[\d,]*(?:\.\d+)?\s?[kKmMbB]?\b|\bUSD\s?\d[\d,]*(?:\.\d+)?\b`)
	multiplePattern  = regexp.MustCompile(`\b\d+(?:\.\d+)?[xX]\b`)
	bigNumberPattern = regexp.MustCompile(`\b\d{3,}\b`)
)

// skillPatterns precompiles a boundary-safe matcher per vocabulary entry so
// "java" does not match inside "javascript".
var skillPatterns = func() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(skillVocabulary))
	for _, skill := range skillVocabulary {
		patterns[skill] = regexp.MustCompile(`(^|[^a-z0-9+#])` + regexp.QuoteMeta(skill) + `($|[^a-z0-9+#])`)
	}
	return patterns
}()

const tokenPunctuation = ".,;:()[]{}!?\"'"

// Validate compares tailored resume text against the original and flags
// every fabricated entity.
func Validate(original, tailored string) *ValidationResult {
	result := &ValidationResult{
		NewCompanies: newEntities(extractCompanies(original), extractCompanies(tailored)),
		NewSkills:    newEntities(extractSkills(original), extractSkills(tailored)),
		NewMetrics:   newEntities(extractMetrics(original), extractMetrics(tailored)),
	}

	for _, c := range result.NewCompanies {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Company %q appears in the tailored resume but not in the original", c))
	}
	for _, s := range result.NewSkills {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Skill %q appears in the tailored resume but not in the original", s))
	}
	for _, m := range result.NewMetrics {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Metric %q appears in the tailored resume but not in the original", m))
	}

	result.IsValid = len(result.NewCompanies) == 0 &&
		len(result.NewSkills) == 0 &&
		len(result.NewMetrics) == 0
	return result
}

// extractCompanies finds employer-looking names: multi-word capitalized
// sequences anywhere, plus capitalized tokens following "at"/"for" (allowing
// "and" between coordinated names). Punctuation breaks a capitalized run so
// "Python, Kubernetes" never fuses into a phantom employer. Normalized
// lowercase.
func extractCompanies(text string) map[string]struct{} {
	companies := make(map[string]struct{})

	raw := strings.Fields(text)
	words := make([]string, len(raw))
	breaksAfter := make([]bool, len(raw))
	for i, token := range raw {
		words[i] = strings.Trim(token, tokenPunctuation)
		breaksAfter[i] = strings.TrimRight(token, tokenPunctuation) != token
	}

	for i := 0; i < len(words); i++ {
		word := words[i]
		if word == "" {
			continue
		}

		// Multi-word capitalized run, e.g. "Goldman Sachs"
		if capitalizedWord.MatchString(word) && !isStopWord(word) {
			j := i
			for j+1 < len(words) && !breaksAfter[j] &&
				capitalizedWord.MatchString(words[j+1]) && !isStopWord(words[j+1]) {
				j++
			}
			if j > i {
				phrase := strings.ToLower(strings.Join(words[i:j+1], " "))
				companies[phrase] = struct{}{}
				i = j
				continue
			}
		}

		// "at Google", "for Google and Stripe"
		lower := strings.ToLower(word)
		if lower == "at" || lower == "for" {
			for j := i + 1; j < len(words); j++ {
				next := words[j]
				if next == "" || strings.EqualFold(next, "and") {
					continue
				}
				if !capitalizedWord.MatchString(next) || isStopWord(next) {
					break
				}
				companies[strings.ToLower(next)] = struct{}{}
			}
		}
	}

	return companies
}

// extractSkills matches the closed vocabulary plus CamelCase tokens and
// ALL-CAPS acronyms. Normalized lowercase.
func extractSkills(text string) map[string]struct{} {
	skills := make(map[string]struct{})
	lower := strings.ToLower(text)

	for skill, pattern := range skillPatterns {
		if pattern.MatchString(lower) {
			skills[skill] = struct{}{}
		}
	}

	for _, token := range camelCaseToken.FindAllString(text, -1) {
		skills[strings.ToLower(token)] = struct{}{}
	}
	for _, token := range acronymToken.FindAllString(text, -1) {
		skills[strings.ToLower(token)] = struct{}{}
	}

	return skills
}

// extractMetrics finds percentages, currency amounts, Nx multipliers and
// standalone numbers of three or more digits.
func extractMetrics(text string) map[string]struct{} {
	metrics := make(map[string]struct{})

	for _, pattern := range []*regexp.Regexp{percentPattern, currencyPattern, multiplePattern, bigNumberPattern} {
		for _, m := range pattern.FindAllString(text, -1) {
			metrics[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
		}
	}

	return metrics
}

// newEntities returns tailored-minus-original, sorted for stable output.
func newEntities(original, tailored map[string]struct{}) []string {
	var out []string
	for entity := range tailored {
		if _, ok := original[entity]; !ok {
			out = append(out, entity)
		}
	}
	sort.Strings(out)
	return out
}

func isStopWord(token string) bool {
	_, ok := companyStopWords[strings.ToLower(token)]
	return ok
}
