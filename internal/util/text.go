package util

import (
	"regexp"
	"strings"
)

var (
	reQuotes     = regexp.MustCompile(`["'` + "`" + `«»]`)
	reNonAllowed = regexp.MustCompile(`[^A-Z0-9\-/()\[\],\s.]`)
	reSpaces     = regexp.MustCompile(`\s+`)
	reCAS        = regexp.MustCompile(`^\d{2,7}-\d{2}-\d$`)
)

// NormalizeName folds a compound name to the comparison form used by the
// resolver: uppercase, unified dashes, punctuation noise stripped, single
// spaces. Applying it twice yields the same result.
func NormalizeName(input string) string {
	s := strings.ToUpper(input)
	repl := strings.NewReplacer("–", "-", "—", "-", "‐", "-", "×", "X", "*", "X", "Α", "ALPHA", "Β", "BETA", "Γ", "GAMMA")
	s = repl.Replace(s)
	s = reQuotes.ReplaceAllString(s, " ")
	s = reNonAllowed.ReplaceAllString(s, " ")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeCode compacts a development code or CAS number: uppercase, no
// spaces, only code-legal runes kept.
func NormalizeCode(input string) string {
	s := strings.ToUpper(input)
	s = strings.ReplaceAll(s, " ", "")
	out := strings.Builder{}
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '/' || r == '.' {
			out.WriteRune(r)
		}
	}
	return out.String()
}

func Tokenize(input string) []string {
	norm := NormalizeName(input)
	parts := strings.Split(norm, " ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len([]rune(p)) >= 2 {
			out = append(out, p)
		}
	}
	return out
}

// LooksLikeCode reports whether the input resembles a development code
// (BG8967, PC-32765, BAYT006267) or a CAS registry number (58-61-7) rather
// than a spelled-out compound name.
func LooksLikeCode(input string) bool {
	trimmed := strings.TrimSpace(input)
	if len(trimmed) < 3 {
		return false
	}
	if reCAS.MatchString(trimmed) {
		return true
	}
	if strings.ContainsRune(trimmed, ' ') {
		return false
	}
	hasLetter := false
	hasDigit := false
	for _, r := range trimmed {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
			hasLetter = true
		}
		if r >= '0' && r <= '9' {
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

func DiceCoefficient(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	pairs := func(s string) []string {
		r := []rune(s)
		if len(r) < 2 {
			return nil
		}
		out := make([]string, 0, len(r)-1)
		for i := 0; i < len(r)-1; i++ {
			out = append(out, string(r[i:i+2]))
		}
		return out
	}

	aPairs := pairs(a)
	bPairs := pairs(b)
	if len(aPairs) == 0 || len(bPairs) == 0 {
		return 0
	}

	bCount := map[string]int{}
	for _, p := range bPairs {
		bCount[p]++
	}
	inter := 0
	for _, p := range aPairs {
		if bCount[p] > 0 {
			inter++
			bCount[p]--
		}
	}

	return float64(2*inter) / float64(len(aPairs)+len(bPairs))
}
