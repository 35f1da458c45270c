package sanitize

import (
	"regexp"
	"strings"
)

// Default limits applied when callers pass non-positive values
const (
	DefaultMinTermLength = 2
	DefaultMaxTerms      = 10
)

// Compiled once at init. The regex engine is stateless after compilation so
// these are safe for concurrent use.
var (
	// Unicode bidirectional control marks and directional isolates. These
	// corrupt FTS tokenization and can crash naive indexers.
	bidiMarkPattern = regexp.MustCompile("[‎‏‪-‮⁦-⁩]")

	// Emoji variation selectors (U+FE00..U+FE0F). Stripped so that "😂️"
	// and "😂" tokenize identically.
	variationSelectorPattern = regexp.MustCompile("[︀-️]")

	// Characters with reserved meaning in the FTS query grammar
	reservedCharPattern = regexp.MustCompile(`["*():]`)

	// Boolean keywords, whole-word only: "android" must survive even though
	// it contains "and"
	reservedKeywordPattern = regexp.MustCompile(`(?i)\b(AND|OR|NOT|NEAR)\b`)
)

// Sanitize normalizes a raw user query into a safe, whitespace-joined term
// list. Reserved FTS syntax and boolean keywords are replaced with spaces
// (never deleted outright, to avoid concatenating adjacent tokens), terms
// shorter than minTermLength are dropped unless they contain a non-ASCII
// code point, and the term count is capped at maxTerms.
//
// Sanitize is idempotent: sanitizing already-clean output is a no-op.
func Sanitize(query string, minTermLength, maxTerms int) string {
	return strings.Join(Terms(query, minTermLength, maxTerms), " ")
}

// Terms runs the full sanitization pipeline and returns the surviving terms
// in their original order.
func Terms(query string, minTermLength, maxTerms int) []string {
	if minTermLength <= 0 {
		minTermLength = DefaultMinTermLength
	}
	if maxTerms <= 0 {
		maxTerms = DefaultMaxTerms
	}

	cleaned := bidiMarkPattern.ReplaceAllString(query, "")
	cleaned = variationSelectorPattern.ReplaceAllString(cleaned, "")
	cleaned = reservedCharPattern.ReplaceAllString(cleaned, " ")
	cleaned = reservedKeywordPattern.ReplaceAllString(cleaned, " ")

	fields := strings.Fields(cleaned)
	terms := make([]string, 0, len(fields))
	for _, term := range fields {
		if !IsValidSearchTerm(term, minTermLength) {
			continue
		}
		terms = append(terms, term)
		if len(terms) == maxTerms {
			break
		}
	}
	return terms
}

// IsValidSearchTerm reports whether a term survives filtering. ASCII-only
// terms must meet the minimum length; terms containing any non-ASCII code
// point are always kept, because a single CJK character or emoji is a
// meaningful token.
func IsValidSearchTerm(term string, minLength int) bool {
	if term == "" {
		return false
	}
	for _, r := range term {
		if r > 127 {
			return true
		}
	}
	return len(term) >= minLength
}

// ContainsDangerousPatterns reports whether a raw query carries any input
// the sanitizer would rewrite: reserved FTS syntax, boolean keywords, or
// Unicode control marks.
func ContainsDangerousPatterns(query string) bool {
	return reservedCharPattern.MatchString(query) ||
		reservedKeywordPattern.MatchString(query) ||
		bidiMarkPattern.MatchString(query) ||
		variationSelectorPattern.MatchString(query)
}

// PrepareForMatch builds an FTS MATCH expression from a raw query: each
// surviving term is quoted and suffixed with the prefix-wildcard marker,
// joined with boolean OR. Returns "" when no terms survive.
//
//	PrepareForMatch(`cat * OR dog`, 2, 10) == `"cat"* OR "dog"*`
func PrepareForMatch(query string, minTermLength, maxTerms int) string {
	terms := Terms(query, minTermLength, maxTerms)
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = `"` + term + `"*`
	}
	return strings.Join(quoted, " OR ")
}

// PrepareForColumns builds a MATCH expression scoped to the named columns,
// expanding every term across every column with per-column OR. The output
// grammar stays parenthesis-free.
//
//	PrepareForColumns("cat", []string{"title", "description"}, 2, 10)
//	  == `title:"cat"* OR description:"cat"*`
func PrepareForColumns(query string, columns []string, minTermLength, maxTerms int) string {
	terms := Terms(query, minTermLength, maxTerms)
	if len(terms) == 0 || len(columns) == 0 {
		return ""
	}
	clauses := make([]string, 0, len(terms)*len(columns))
	for _, term := range terms {
		for _, col := range columns {
			clauses = append(clauses, col+`:"`+term+`"*`)
		}
	}
	return strings.Join(clauses, " OR ")
}

// PrepareEmojiQuery builds a MATCH expression for a single emoji searched
// against a dedicated column. Emoji queries take a lighter sanitization path:
// reserved characters and variation selectors are stripped, but there is no
// operator stripping or term splitting since the input is one token.
func PrepareEmojiQuery(emoji, column string) string {
	cleaned := reservedCharPattern.ReplaceAllString(emoji, "")
	cleaned = variationSelectorPattern.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return ""
	}
	return column + `:"` + cleaned + `"`
}
