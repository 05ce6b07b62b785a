package usecase

import (
	"strings"

	"switchboard/internal/domain"
)

// stopWords are ignored when extracting keywords; they carry no routing
// signal and would inflate match scores.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "you": true, "your": true, "are": true, "use": true,
	"when": true, "what": true, "how": true, "can": true, "please": true,
	"would": true, "should": true, "could": true, "will": true, "need": true,
	"want": true, "like": true, "make": true, "about": true, "from": true,
	"into": true, "have": true, "has": true, "not": true, "any": true,
	"all": true, "some": true, "them": true, "then": true, "than": true,
	"been": true, "being": true, "its": true, "it's": true, "does": true,
}

// extractKeywords lowercases the text, splits it on non-alphanumeric runs,
// and keeps tokens longer than two characters that are not stop words.
func extractKeywords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	var out []string
	for _, f := range fields {
		if len(f) > 2 && !stopWords[f] {
			out = append(out, f)
		}
	}
	return out
}

// tokensMatch reports whether two keywords match by shared prefix. Both
// tokens must be at least three characters, and the shared prefix must
// cover at least min(4, len(shorter)) characters. This lets "implement"
// match "implementation" while keeping "code" away from "coffee".
func tokensMatch(a, b string) bool {
	if len(a) < 3 || len(b) < 3 {
		return false
	}
	shorter := len(a)
	if len(b) < shorter {
		shorter = len(b)
	}
	need := 4
	if shorter < need {
		need = shorter
	}
	prefix := 0
	for prefix < shorter && a[prefix] == b[prefix] {
		prefix++
	}
	return prefix >= need
}

// keywordOverlap returns the fraction of candidate keywords matched by at
// least one request keyword. Zero when the candidate has no keywords.
func keywordOverlap(request, candidate []string) float64 {
	if len(candidate) == 0 {
		return 0
	}
	matched := 0
	for _, c := range candidate {
		for _, r := range request {
			if tokensMatch(r, c) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(candidate))
}

// Scoring weights. WhenToUse text is written specifically to discriminate
// requests, so it dominates; the display name is a weak tiebreaker.
const (
	weightWhenToUse   = 0.6
	weightDescription = 0.3
	weightName        = 0.1
)

// scoreMode rates how well a mode fits a request on a [0,1] scale.
func scoreMode(request string, mode domain.Mode) float64 {
	reqKeywords := extractKeywords(request)

	score := weightWhenToUse * keywordOverlap(reqKeywords, extractKeywords(mode.WhenToUse))
	score += weightDescription * keywordOverlap(reqKeywords, extractKeywords(mode.Description))

	if name := strings.ToLower(mode.Name); name != "" &&
		strings.Contains(strings.ToLower(request), name) {
		score += weightName
	}
	if score > 1 {
		score = 1
	}
	return score
}
