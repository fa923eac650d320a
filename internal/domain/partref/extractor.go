// Package partref finds tokens in free text that may name a PLM part.
//
// The rule is deliberately permissive: any whitespace-delimited token
// containing a decimal digit is a candidate. Candidates are not validated;
// a lookup that finds nothing is simply dropped further down the pipeline.
package partref

import (
	"strings"
	"unicode"
)

// trimmed from both ends of a token before it is used as a lookup key
const surroundingPunctuation = ",.;:!?()[]{}\"'"

// Candidate is a token that might be a part identifier.
type Candidate struct {
	// Token is the lookup key: Raw with surrounding punctuation removed.
	Token string
	// Raw is the token exactly as it appeared in the utterance.
	Raw string
}

// Extract returns the candidates in order of appearance. Duplicates are kept.
func Extract(utterance string) []Candidate {
	var candidates []Candidate
	for _, raw := range strings.Fields(utterance) {
		if !containsDigit(raw) {
			continue
		}
		candidates = append(candidates, Candidate{
			Token: strings.Trim(raw, surroundingPunctuation),
			Raw:   raw,
		})
	}
	return candidates
}

// Tokens returns the lookup keys of Extract, de-duplicated with the first
// occurrence winning, capped at limit when limit > 0.
func Tokens(utterance string, limit int) []string {
	seen := make(map[string]struct{})
	var tokens []string
	for _, c := range Extract(utterance) {
		if _, ok := seen[c.Token]; ok {
			continue
		}
		seen[c.Token] = struct{}{}
		tokens = append(tokens, c.Token)
		if limit > 0 && len(tokens) == limit {
			break
		}
	}
	return tokens
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
