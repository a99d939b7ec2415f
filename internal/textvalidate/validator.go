// Package textvalidate implements the ordered text validation pipeline that
// gates incident title/narrative fields before any other component sees
// them: a type/length gate, an XSS detector, and an HTML/control-character
// sanitizer.
package textvalidate

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	maxTitleCodePoints     = 500
	maxNarrativeCodePoints = 10000
)

// Result is the outcome of validating one field.
type Result struct {
	OK        bool
	Sanitized string
	Reason    string // rejection category, empty when OK
}

var maliciousPatterns = buildMaliciousPatterns()

// buildMaliciousPatterns compiles the fixed XSS-detector pattern set from
// spec §4.2: tag/attribute/scheme markers, case-insensitive, tolerant of
// whitespace between "<" and the tag name.
func buildMaliciousPatterns() []*regexp.Regexp {
	raw := []string{
		`<\s*script`,
		`javascript:`,
		`vbscript:`,
		`data:\s*text/html`,
		`\bon[a-z]+\s*=`,
		`<\s*iframe`,
		`<\s*svg`,
		`<\s*object`,
		`<\s*embed`,
		`<\s*form`,
		`<\s*meta`,
		`<\s*img`,
		`srcdoc\s*=`,
		`formaction\s*=`,
		`xlink:href`,
		`expression\s*\(`,
	}
	patterns := make([]*regexp.Regexp, 0, len(raw))
	for _, p := range raw {
		patterns = append(patterns, regexp.MustCompile(`(?i)`+p))
	}
	return patterns
}

var (
	htmlCommentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	cdataRe       = regexp.MustCompile(`(?s)<!\[CDATA\[.*?\]\]>`)
	tagRe         = regexp.MustCompile(`<[^>]*>`)
	multiNewline  = regexp.MustCompile(`\n{3,}`)
	multiSpace    = regexp.MustCompile(`[ \t]{2,}`)
)

// ValidateTitle validates and sanitizes an incident title (<=500 code points).
func ValidateTitle(raw *string) Result {
	return validate(raw, maxTitleCodePoints, "title_too_long")
}

// ValidateNarrative validates and sanitizes an incident narrative (<=10000
// code points).
func ValidateNarrative(raw *string) Result {
	return validate(raw, maxNarrativeCodePoints, "narrative_too_long")
}

// validate runs the ordered pipeline: type/length gate, XSS detection,
// sanitize, emit. nil input is valid and returns an empty sanitized string.
func validate(raw *string, maxCodePoints int, tooLongReason string) Result {
	if raw == nil {
		return Result{OK: true, Sanitized: ""}
	}
	text := *raw

	if text == "" {
		return Result{OK: true, Sanitized: ""}
	}

	if n := countCodePoints(text); n > maxCodePoints {
		return Result{OK: false, Reason: tooLongReason}
	}

	if containsMaliciousContent(text) {
		return Result{OK: false, Reason: "malicious_content"}
	}

	sanitized := sanitize(text)
	return Result{OK: true, Sanitized: sanitized}
}

// countCodePoints counts Unicode code points, not bytes.
func countCodePoints(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

// containsMaliciousContent checks the raw text (and its HTML-entity-decoded
// and URL-decoded forms) against the fixed XSS pattern set.
func containsMaliciousContent(text string) bool {
	candidates := []string{text, html.UnescapeString(text)}
	if decoded, err := decodeURLEncoding(text); err == nil && decoded != text {
		candidates = append(candidates, decoded)
	}
	for _, candidate := range candidates {
		for _, pattern := range maliciousPatterns {
			if pattern.MatchString(candidate) {
				return true
			}
		}
	}
	return false
}

// decodeURLEncoding performs a minimal percent-decode without importing
// net/url (which additionally treats "+" as space, unwanted here).
func decodeURLEncoding(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			var v int
			if _, err := fmt.Sscanf(s[i+1:i+3], "%02x", &v); err == nil {
				b.WriteByte(byte(v))
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String(), nil
}

// sanitize decodes entities, strips comments/CDATA/tags, removes control
// characters, collapses whitespace, caps consecutive newlines at two, and
// Unicode-normalizes to NFC (spec §4.2) so that visually identical titles
// submitted in decomposed form (NFD) don't silently diverge from their
// composed equivalents downstream in gazetteer lookups and fuzzy matching.
func sanitize(text string) string {
	text = html.UnescapeString(text)
	text = htmlCommentRe.ReplaceAllString(text, "")
	text = cdataRe.ReplaceAllString(text, "")
	text = tagRe.ReplaceAllString(text, "")
	text = stripControlChars(text)
	text = multiSpace.ReplaceAllString(text, " ")
	text = multiNewline.ReplaceAllString(text, "\n\n")
	text = norm.NFC.String(text)
	return strings.TrimSpace(text)
}

// stripControlChars removes C0/C1 control characters except tab/LF/CR.
func stripControlChars(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '\t' || r == '\n' || r == '\r' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
