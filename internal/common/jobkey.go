package common

import (
	"regexp"
	"strings"
)

// Corporate suffixes stripped from company names during key normalization.
var corporateSuffixes = []string{
	"inc", "inc.", "llc", "l.l.c", "ltd", "ltd.", "limited", "corp", "corp.",
	"corporation", "co", "co.", "company", "gmbh", "pty", "pty.", "plc",
}

var keySeparators = regexp.MustCompile(`[^a-z0-9]+`)

// JobKey builds the normalized, stable identifier for a logical job posting:
// lowercased company and title joined by a double hyphen, with common
// corporate suffixes stripped. The same posting seen on different boards
// produces the same key.
func JobKey(company, title string) string {
	c := normalizeKeyPart(stripCorporateSuffix(company))
	t := normalizeKeyPart(title)
	if c == "" {
		return t
	}
	if t == "" {
		return c
	}
	return c + "--" + t
}

func stripCorporateSuffix(company string) string {
	fields := strings.Fields(strings.TrimSpace(company))
	for len(fields) > 1 {
		last := strings.ToLower(strings.Trim(fields[len(fields)-1], ",."))
		matched := false
		for _, suffix := range corporateSuffixes {
			if last == strings.TrimRight(suffix, ".") {
				matched = true
				break
			}
		}
		if !matched {
			break
		}
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}

func normalizeKeyPart(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = keySeparators.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
