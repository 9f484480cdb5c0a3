// Package categorize infers a transaction category from its description when the
// statement has no category column.
package categorize

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
)

// DefaultCategory is assigned when no rule matches or the best rules tie
const DefaultCategory = "Other"

type compiledPattern struct {
	re       *regexp.Regexp
	category int
}

// Resolver matches descriptions against regex rules and a keyword automaton.
// Keywords are matched in a single pass with Aho-Corasick, regardless of how
// many rules are loaded.
type Resolver struct {
	mu              sync.RWMutex
	defaultCategory string
	categories      []string // category names in first-seen order
	patterns        []compiledPattern
	matcher         *ahocorasick.Matcher
	keywords        []string // unique keywords in the same order as matcher
	keywordOwners   [][]int  // categories owning each keyword
	rules           []Rule
}

// Option configures a Resolver
type Option func(*Resolver)

// WithRules replaces the built-in rules
func WithRules(rules []Rule) Option {
	return func(r *Resolver) {
		r.rules = append([]Rule(nil), rules...)
	}
}

// WithExtraRules appends rules to the current set
func WithExtraRules(rules []Rule) Option {
	return func(r *Resolver) {
		r.rules = append(r.rules, rules...)
	}
}

// WithDefault sets the category returned when nothing matches
func WithDefault(category string) Option {
	return func(r *Resolver) {
		if category != "" {
			r.defaultCategory = category
		}
	}
}

// NewResolver creates a resolver with the default rules unless options say otherwise
func NewResolver(opts ...Option) (*Resolver, error) {
	r := &Resolver{
		defaultCategory: DefaultCategory,
		rules:           DefaultRules(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.Build(r.rules); err != nil {
		return nil, err
	}
	return r, nil
}

// Build compiles the rules into regexps and the keyword automaton.
// Duplicate keywords across categories are grouped so each is matched once.
func (r *Resolver) Build(rules []Rule) error {
	var (
		categories    []string
		categoryIndex = make(map[string]int)
		patterns      []compiledPattern
		keywordIndex  = make(map[string]int)
		keywords      []string
		owners        [][]int
	)

	for _, rule := range rules {
		name := strings.TrimSpace(rule.Category)
		if name == "" {
			continue
		}
		idx, ok := categoryIndex[name]
		if !ok {
			idx = len(categories)
			categoryIndex[name] = idx
			categories = append(categories, name)
		}

		for _, p := range rule.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return fmt.Errorf("invalid pattern %q for category %s: %w", p, name, err)
			}
			patterns = append(patterns, compiledPattern{re: re, category: idx})
		}

		for _, kw := range rule.Keywords {
			clean := strings.ToLower(strings.TrimSpace(kw))
			if clean == "" {
				continue
			}
			if k, exists := keywordIndex[clean]; exists {
				if !containsInt(owners[k], idx) {
					owners[k] = append(owners[k], idx)
				}
				continue
			}
			keywordIndex[clean] = len(keywords)
			keywords = append(keywords, clean)
			owners = append(owners, []int{idx})
		}
	}

	var matcher *ahocorasick.Matcher
	if len(keywords) > 0 {
		matcher = ahocorasick.NewStringMatcher(keywords)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append([]Rule(nil), rules...)
	r.categories = categories
	r.patterns = patterns
	r.keywords = keywords
	r.keywordOwners = owners
	r.matcher = matcher
	return nil
}

// AddRules appends rules and rebuilds the resolver
func (r *Resolver) AddRules(rules ...Rule) error {
	r.mu.RLock()
	combined := append(append([]Rule(nil), r.rules...), rules...)
	r.mu.RUnlock()
	return r.Build(combined)
}

// Categories returns the known category names
func (r *Resolver) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.categories...)
}

// Resolve returns the category whose rules match the description and comment most
// often. Ties and misses yield the default category.
func (r *Resolver) Resolve(description, comment string) string {
	text := strings.ToLower(strings.TrimSpace(description + " " + comment))

	r.mu.RLock()
	defer r.mu.RUnlock()

	if text == "" || len(r.categories) == 0 {
		return r.defaultCategory
	}

	counts := make([]int, len(r.categories))
	for _, p := range r.patterns {
		if p.re.MatchString(text) {
			counts[p.category]++
		}
	}
	if r.matcher != nil {
		for _, hit := range r.matcher.MatchThreadSafe([]byte(text)) {
			if hit < 0 || hit >= len(r.keywordOwners) {
				continue
			}
			for _, owner := range r.keywordOwners[hit] {
				counts[owner]++
			}
		}
	}

	best, bestCount, tied := -1, 0, false
	for i, c := range counts {
		switch {
		case c > bestCount:
			best, bestCount, tied = i, c, false
		case c == bestCount && c > 0:
			tied = true
		}
	}
	if best < 0 || tied {
		return r.defaultCategory
	}
	return r.categories[best]
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
