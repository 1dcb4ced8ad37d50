package dataprocessing

import (
	"strings"
	"unicode"
)

// Matcher finds the column whose header satisfies one matching rule for
// any of the given label variants. Headers and variants are expected to be
// normalized with NormalizeLabel. Blank headers never match.
type Matcher interface {
	Name() string
	Match(headers, variants []string) (int, bool)
}

// DefaultMatchers is the rule cascade used for header scoring and binding,
// from strictest to loosest.
var DefaultMatchers = []Matcher{
	ExactMatcher{},
	StrippedMatcher{},
	TokenSubsetMatcher{},
	SubstringMatcher{},
}

// MatchColumn tries each matcher in order and returns the first hit
func MatchColumn(matchers []Matcher, headers, variants []string) (int, bool) {
	for _, m := range matchers {
		if idx, ok := m.Match(headers, variants); ok {
			return idx, true
		}
	}
	return -1, false
}

// NormalizeLabel trims and upper-cases a header cell or variant
func NormalizeLabel(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ExactMatcher requires the header to equal a variant
type ExactMatcher struct{}

func (ExactMatcher) Name() string { return "exact" }

func (ExactMatcher) Match(headers, variants []string) (int, bool) {
	for _, v := range variants {
		if v == "" {
			continue
		}
		for i, h := range headers {
			if h == v {
				return i, true
			}
		}
	}
	return -1, false
}

// StrippedMatcher compares labels with every non-alphanumeric rune removed,
// so "NET-PREMIUM" and "NET PREMIUM" are equal.
type StrippedMatcher struct{}

func (StrippedMatcher) Name() string { return "stripped" }

func (StrippedMatcher) Match(headers, variants []string) (int, bool) {
	stripped := make([]string, len(headers))
	for i, h := range headers {
		stripped[i] = stripNonAlphanumeric(h)
	}
	for _, v := range variants {
		sv := stripNonAlphanumeric(v)
		if sv == "" {
			continue
		}
		for i, sh := range stripped {
			if sh == sv {
				return i, true
			}
		}
	}
	return -1, false
}

// TokenSubsetMatcher accepts a header when every whitespace-separated token
// of a variant occurs somewhere inside it.
type TokenSubsetMatcher struct{}

func (TokenSubsetMatcher) Name() string { return "token_subset" }

func (TokenSubsetMatcher) Match(headers, variants []string) (int, bool) {
	for _, v := range variants {
		tokens := strings.Fields(v)
		if len(tokens) == 0 {
			continue
		}
		for i, h := range headers {
			if h == "" {
				continue
			}
			if containsAll(h, tokens) {
				return i, true
			}
		}
	}
	return -1, false
}

// SubstringMatcher accepts a header that contains a variant or is contained
// by one. Columns are scanned first, so the leftmost candidate wins.
type SubstringMatcher struct{}

func (SubstringMatcher) Name() string { return "substring" }

func (SubstringMatcher) Match(headers, variants []string) (int, bool) {
	for i, h := range headers {
		if h == "" {
			continue
		}
		for _, v := range variants {
			if v == "" {
				continue
			}
			if strings.Contains(h, v) || strings.Contains(v, h) {
				return i, true
			}
		}
	}
	return -1, false
}

func stripNonAlphanumeric(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func containsAll(s string, tokens []string) bool {
	for _, t := range tokens {
		if !strings.Contains(s, t) {
			return false
		}
	}
	return true
}
