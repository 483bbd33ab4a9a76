package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

const (
	maxSuggestions     = 3
	maxSuggestionTries = 10
)

var suggestionSuffixes = []string{"_official", "_hq", "_real", "_online", "_page", "_tree"}

// Availability is the answer to "can I have this username?".
type Availability struct {
	Available   bool     `json:"available"`
	Suggestions []string `json:"suggestions"`
}

// usernameCandidates returns n distinct variants of base that each satisfy
// the username rule. Variants are a number suffix, an underscore plus
// number, or a fixed word suffix; base is shortened when a variant would
// exceed MaxUsernameLength.
func usernameCandidates(base string, n int, intN func(int) int) []string {
	seen := map[string]bool{base: true}
	out := make([]string, 0, n)

	for attempt := 0; len(out) < n && attempt < n*10; attempt++ {
		var suffix string
		switch attempt % 3 {
		case 0:
			suffix = strconv.Itoa(intN(999) + 1)
		case 1:
			suffix = "_" + strconv.Itoa(intN(9999)+1)
		default:
			suffix = suggestionSuffixes[intN(len(suggestionSuffixes))]
		}

		stem := base
		if over := len(stem) + len(suffix) - MaxUsernameLength; over > 0 {
			stem = stem[:len(stem)-over]
		}
		candidate := stem + suffix
		if seen[candidate] || len(candidate) < MinUsernameLength || !usernamePattern.MatchString(candidate) || reservedUsernames[strings.ToLower(candidate)] {
			continue
		}
		seen[candidate] = true
		out = append(out, candidate)
	}
	return out
}

// suggestUsernames returns up to maxSuggestions free variants of base,
// checking storage at most maxSuggestionTries times.
func (s *ProfileService) suggestUsernames(ctx context.Context, base string) ([]string, error) {
	suggestions := make([]string, 0, maxSuggestions)
	for _, candidate := range usernameCandidates(base, maxSuggestionTries, s.intN) {
		if len(suggestions) == maxSuggestions {
			break
		}
		taken, err := s.users.UsernameExists(ctx, candidate)
		if err != nil {
			return nil, fmt.Errorf("service/profile: checking suggestion %q: %w", candidate, err)
		}
		if !taken {
			suggestions = append(suggestions, candidate)
		}
	}
	return suggestions, nil
}

// defaultIntN is goroutine-safe, unlike a *rand.Rand.
func defaultIntN(n int) int {
	return rand.IntN(n)
}
