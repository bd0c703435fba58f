// Package emails guesses and verifies founder addresses from name and
// company domain.
package emails

import (
	"strings"

	"github.com/seedscout/seedscout-cli/internal/model"
)

// patternDefs are the candidate address shapes ranked by how often each
// shows up in practice. The priors are fixed and sum to 1; generation
// preserves this order so verification always starts with the most
// likely shape.
var patternDefs = []struct {
	ID    string
	Prior float64
	Build func(first, last string) string
}{
	{"first", 0.40, func(first, _ string) string { return first }},
	{"first.last", 0.25, func(first, last string) string { return first + "." + last }},
	{"firstlast", 0.15, func(first, last string) string { return first + last }},
	{"f.last", 0.10, func(first, last string) string { return first[:1] + "." + last }},
	{"first_last", 0.05, func(first, last string) string { return first + "_" + last }},
	{"last", 0.03, func(_, last string) string { return last }},
	{"last.first", 0.02, func(first, last string) string { return last + "." + first }},
}

// GeneratePatterns builds ranked address candidates for one founder.
// Without a last name only the shapes that need just the first name
// apply. An empty first name or domain yields nothing.
func GeneratePatterns(first, last, domain string) []model.EmailCandidate {
	first = normalizePart(first)
	last = normalizePart(last)
	domain = normalizeDomain(domain)
	if first == "" || domain == "" {
		return nil
	}

	var out []model.EmailCandidate
	for _, p := range patternDefs {
		if last == "" && strings.Contains(p.ID, "last") {
			continue
		}
		out = append(out, model.EmailCandidate{
			Address:         p.Build(first, last) + "@" + domain,
			PatternID:       p.ID,
			PriorConfidence: p.Prior,
		})
	}
	return out
}

// normalizePart lowercases a name part and strips everything but
// letters and digits.
func normalizePart(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeDomain reduces a website value to its bare host.
func normalizeDomain(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return s
}
