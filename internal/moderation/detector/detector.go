// Package detector classifies message text into off-platform contact categories.
//
// Detection is a pure function of (text, *PatternConfig): no I/O, no clocks, no
// shared mutable state. Text is NFKC-normalised and lower-cased first, so
// fullwidth digits, compatibility letters and mixed case all match the same
// tables.
package detector

import (
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"chatguard/internal/moderation/models"
)

// maxMatchesPerCategory bounds stored evidence for pathological messages.
const maxMatchesPerCategory = 5

// Result is the deduplicated set of matched categories, ordered by priority.
type Result struct {
	Categories []models.Category
	Matches    map[models.Category][]string
}

// Empty reports whether nothing matched.
func (r Result) Empty() bool {
	return len(r.Categories) == 0
}

// Primary returns the highest-priority matched category, or "" when empty.
func (r Result) Primary() models.Category {
	if r.Empty() {
		return ""
	}
	return r.Categories[0]
}

// Has reports whether the category matched.
func (r Result) Has(c models.Category) bool {
	return slices.Contains(r.Categories, c)
}

// Evidence converts the result into the ledger's evidence shape.
func (r Result) Evidence() models.Evidence {
	return models.Evidence{
		Categories: append([]models.Category(nil), r.Categories...),
		Matches:    r.Matches,
	}
}

// Normalize folds text into the form the tables are written against.
func Normalize(text string) string {
	return strings.ToLower(norm.NFKC.String(text))
}

// Detect scans text against cfg. A nil cfg uses the built-in tables.
func Detect(text string, cfg *PatternConfig) Result {
	if cfg == nil {
		cfg = DefaultPatternConfig()
	}
	normalized := Normalize(text)
	matches := make(map[models.Category][]string)

	for _, re := range cfg.phones {
		collectPhones(matches, re, normalized)
	}
	collect(matches, models.CategoryContactSharing, cfg.contact, normalized)
	collect(matches, models.CategoryEmail, cfg.email, normalized)
	collect(matches, models.CategorySocialMedia, cfg.social, normalized)

	result := Result{}
	for _, c := range cfg.priority {
		if len(matches[c]) > 0 {
			result.Categories = append(result.Categories, c)
		}
	}
	if len(result.Categories) > 0 {
		result.Matches = matches
	}
	return result
}

func collect(into map[models.Category][]string, c models.Category, re *regexp.Regexp, text string) {
	if re == nil {
		return
	}
	for _, m := range re.FindAllString(text, -1) {
		m = strings.TrimSpace(m)
		if m == "" || slices.Contains(into[c], m) {
			continue
		}
		if len(into[c]) >= maxMatchesPerCategory {
			return
		}
		into[c] = append(into[c], m)
	}
}

// collectPhones keeps matches that are not part of a longer digit run, so
// letters glued to a number still match while 12-digit references do not.
func collectPhones(into map[models.Category][]string, re *regexp.Regexp, text string) {
	const c = models.CategoryPhoneNumber
	for _, loc := range re.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if start > 0 && isDigit(text[start-1]) || end < len(text) && isDigit(text[end]) {
			continue
		}
		m := text[start:end]
		if slices.Contains(into[c], m) {
			continue
		}
		if len(into[c]) >= maxMatchesPerCategory {
			return
		}
		into[c] = append(into[c], m)
	}
}

func isDigit(b byte) bool {
	return '0' <= b && b <= '9'
}

// Detector binds a PatternConfig so services can depend on a small interface.
type Detector struct {
	cfg *PatternConfig
}

// New returns a Detector over cfg; a nil cfg uses the defaults.
func New(cfg *PatternConfig) *Detector {
	if cfg == nil {
		cfg = DefaultPatternConfig()
	}
	return &Detector{cfg: cfg}
}

// Detect scans text with the bound configuration.
func (d *Detector) Detect(text string) Result {
	return Detect(text, d.cfg)
}
