package detector

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"chatguard/internal/moderation/models"
	pstrings "chatguard/pkg/platform/strings"
)

// DefaultPriority ranks categories when a message matches several of them.
// The first present category becomes the ViolationEvent's primary category and
// selects the user-facing reason. Phone numbers rank first because they are the
// most direct off-platform channel; bare social links rank last.
var DefaultPriority = []models.Category{
	models.CategoryPhoneNumber,
	models.CategoryContactSharing,
	models.CategoryEmail,
	models.CategorySocialMedia,
}

// PatternSpec is the raw, serialisable form of the detection tables.
// PhonePatterns should not anchor on \b; every phone match must stand apart
// from neighbouring digits and Detect enforces that itself.
type PatternSpec struct {
	Priority       []models.Category `yaml:"priority"`
	PhonePatterns  []string          `yaml:"phone_patterns"`
	ContactPhrases []string          `yaml:"contact_phrases"`
	EmailPattern   string            `yaml:"email_pattern"`
	SocialDomains  []string          `yaml:"social_domains"`
}

// DefaultPatternSpec returns the built-in tables.
func DefaultPatternSpec() PatternSpec {
	return PatternSpec{
		Priority: append([]models.Category(nil), DefaultPriority...),
		// Phone patterns carry no \b anchors: \b treats letters and "_" as word
		// characters, so "ping0712345678" would slip through. Detect instead
		// rejects any match with an ASCII digit directly before or after it.
		PhonePatterns: []string{
			// local: 07xxxxxxxx / 01xxxxxxxx
			`0[17]\d{8}`,
			// country code: +2547xxxxxxxx / 2541xxxxxxxx, optional separator after the code
			`\+?254[\s.\-]?[17]\d{8}`,
			`\+?254[\s.\-]?[17]\d{2}[\s.\-]\d{3}[\s.\-]\d{3}`,
			// generic ten digits
			`\d{10}`,
			// punctuated ten-digit groupings: 071 234 5678, (071) 234-5678, 555.123.4567.
			// The last group has four digits, which thousands separators never produce.
			`(?:\(\d{3}\)\s?|\d{3}[\s.\-])\d{3}[\s.\-]\d{4}`,
			// leading-zero 4-3-3 groupings: 0712-345-678, (0712) 345 678
			`(?:\(0\d{3}\)\s?|0\d{3}[\s.\-])\d{3}[\s.\-]\d{3}`,
		},
		ContactPhrases: []string{
			"call me",
			"text me",
			"dm me",
			"inbox me",
			"my number",
			"reach me on",
			"whatsapp",
			"telegram",
			"signal",
		},
		EmailPattern: `[a-z0-9._%+\-]+@[a-z0-9\-]+(?:\.[a-z0-9\-]+)*\.[a-z]{2,}`,
		SocialDomains: []string{
			"instagram.com",
			"facebook.com",
			"fb.me",
			"fb.com",
			"tiktok.com",
			"twitter.com",
			"x.com",
			"t.me",
			"wa.me",
			"snapchat.com",
			"linkedin.com",
		},
	}
}

// PatternConfig is the compiled, immutable form of a PatternSpec. Build it once
// at startup and share it; it is safe for concurrent use.
type PatternConfig struct {
	priority []models.Category
	rank     map[models.Category]int
	phones   []*regexp.Regexp
	contact  *regexp.Regexp
	email    *regexp.Regexp
	social   *regexp.Regexp
}

// Priority returns a copy of the category ranking.
func (c *PatternConfig) Priority() []models.Category {
	return append([]models.Category(nil), c.priority...)
}

// Compile validates a PatternSpec and compiles its tables.
func Compile(spec PatternSpec) (*PatternConfig, error) {
	if err := validatePriority(spec.Priority); err != nil {
		return nil, err
	}

	cfg := &PatternConfig{
		priority: append([]models.Category(nil), spec.Priority...),
		rank:     make(map[models.Category]int, len(spec.Priority)),
	}
	for i, c := range spec.Priority {
		cfg.rank[c] = i
	}

	for _, p := range spec.PhonePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile phone pattern %q: %w", p, err)
		}
		cfg.phones = append(cfg.phones, re)
	}

	var err error
	if cfg.contact, err = alternation(pstrings.NormalizeTerms(spec.ContactPhrases), phrasePattern); err != nil {
		return nil, fmt.Errorf("compile contact phrases: %w", err)
	}
	if cfg.social, err = alternation(pstrings.NormalizeTerms(spec.SocialDomains), regexp.QuoteMeta); err != nil {
		return nil, fmt.Errorf("compile social domains: %w", err)
	}
	if spec.EmailPattern != "" {
		if cfg.email, err = regexp.Compile(spec.EmailPattern); err != nil {
			return nil, fmt.Errorf("compile email pattern: %w", err)
		}
	}
	return cfg, nil
}

// MustCompile is Compile for known-good specs.
func MustCompile(spec PatternSpec) *PatternConfig {
	cfg, err := Compile(spec)
	if err != nil {
		panic(err)
	}
	return cfg
}

var defaultPatternConfig = sync.OnceValue(func() *PatternConfig {
	return MustCompile(DefaultPatternSpec())
})

// DefaultPatternConfig returns the built-in tables, compiled once.
func DefaultPatternConfig() *PatternConfig {
	return defaultPatternConfig()
}

// LoadPatternConfig extends the built-in tables with a YAML file. Lists are
// appended to the defaults; a non-empty priority or email pattern replaces the
// default. An empty path yields the defaults.
func LoadPatternConfig(path string) (*PatternConfig, error) {
	spec := DefaultPatternSpec()
	if path == "" {
		return Compile(spec)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern file: %w", err)
	}
	var extra PatternSpec
	if err := yaml.Unmarshal(raw, &extra); err != nil {
		return nil, fmt.Errorf("parse pattern file: %w", err)
	}
	return Compile(spec.merge(extra))
}

func (s PatternSpec) merge(extra PatternSpec) PatternSpec {
	if len(extra.Priority) > 0 {
		s.Priority = extra.Priority
	}
	if extra.EmailPattern != "" {
		s.EmailPattern = extra.EmailPattern
	}
	s.PhonePatterns = append(s.PhonePatterns, extra.PhonePatterns...)
	s.ContactPhrases = append(s.ContactPhrases, extra.ContactPhrases...)
	s.SocialDomains = append(s.SocialDomains, extra.SocialDomains...)
	return s
}

func validatePriority(priority []models.Category) error {
	if len(priority) != len(DefaultPriority) {
		return fmt.Errorf("priority must rank exactly %d categories, got %d", len(DefaultPriority), len(priority))
	}
	seen := make(map[models.Category]bool, len(priority))
	for _, c := range priority {
		if !c.IsValid() {
			return fmt.Errorf("priority contains unknown category %q", c)
		}
		if seen[c] {
			return fmt.Errorf("priority lists %q twice", c)
		}
		seen[c] = true
	}
	return nil
}

// phrasePattern quotes a phrase and lets any run of whitespace separate its words.
func phrasePattern(phrase string) string {
	words := strings.Fields(phrase)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(words, `\s+`)
}

// alternation joins terms into one word-bounded regexp. No terms yields nil.
func alternation(terms []string, quote func(string) string) (*regexp.Regexp, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = quote(t)
	}
	return regexp.Compile(`\b(?:` + strings.Join(parts, "|") + `)\b`)
}
