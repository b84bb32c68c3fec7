package translator

import (
	"fmt"
	"regexp"
	"sort"

	"chatdb-workers/internal/models"
)

// Pattern ties a phrase rule to the intent it recognizes. Template renders a
// sentence accepted by Rule; placeholders are {metric}, {group}, {column},
// {op}, {value} and {limit}.
type Pattern struct {
	Intent   models.Intent
	Rule     *regexp.Regexp
	Template string
}

// Specificity is the number of fragments the rule captures.
func (p Pattern) Specificity() int {
	if p.Rule == nil {
		return 0
	}
	return p.Rule.NumSubexp()
}

// NewPattern compiles rule and returns the pattern.
func NewPattern(intent models.Intent, rule, template string) (Pattern, error) {
	re, err := regexp.Compile(rule)
	if err != nil {
		return Pattern{}, fmt.Errorf("%w: pattern %s: %v", ErrInvalidCatalog, intent, err)
	}
	return Pattern{Intent: intent, Rule: re, Template: template}, nil
}

func mustPattern(intent models.Intent, rule, template string) Pattern {
	p, err := NewPattern(intent, rule, template)
	if err != nil {
		panic(err)
	}
	return p
}

// DefaultPatterns returns the built-in phrase grammar in declaration order.
// Filtered forms are declared ahead of the forms they extend.
func DefaultPatterns() []Pattern {
	return []Pattern{
		mustPattern(models.IntentTotalByGroupFiltered,
			`\btotal (\w+) by (\w+) where (\w+) (>|<|=|is) (.+)`,
			"total {metric} by {group} where {column} {op} {value}"),
		mustPattern(models.IntentTotalByGroup,
			`\btotal (\w+) by (\w+)`,
			"total {metric} by {group}"),
		mustPattern(models.IntentTotalForValue,
			`\btotal (\w+) for (\w+) (.+)`,
			"total {metric} for {column} {value}"),
		mustPattern(models.IntentAverageByGroupFiltered,
			`\baverage (\w+) by (\w+) where (\w+) (>|<|=|is) (.+)`,
			"average {metric} by {group} where {column} {op} {value}"),
		mustPattern(models.IntentAverageByGroup,
			`\baverage (\w+) by (\w+)`,
			"average {metric} by {group}"),
		mustPattern(models.IntentAverageForValue,
			`\baverage (\w+) for (\w+) (.+)`,
			"average {metric} for {column} {value}"),
		mustPattern(models.IntentTopN,
			`\btop (\S+) (\w+) by (\w+)`,
			"top {limit} {metric} by {group}"),
	}
}

// Catalog is an immutable, ordered set of patterns. Patterns are tried most
// specific first (more captures first); declaration order breaks ties, so a
// filtered form always wins over the unfiltered form it extends.
type Catalog struct {
	patterns []Pattern
	byIntent map[models.Intent]int
}

// NewCatalog validates and orders patterns. Each intent may appear once.
func NewCatalog(patterns []Pattern) (*Catalog, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("%w: no patterns", ErrInvalidCatalog)
	}

	ordered := make([]Pattern, len(patterns))
	copy(ordered, patterns)

	seen := make(map[models.Intent]bool, len(ordered))
	for _, p := range ordered {
		if !p.Intent.Valid() {
			return nil, fmt.Errorf("%w: unknown intent %q", ErrInvalidCatalog, p.Intent)
		}
		if p.Rule == nil {
			return nil, fmt.Errorf("%w: pattern %s has no rule", ErrInvalidCatalog, p.Intent)
		}
		if want := fragmentCount[p.Intent]; p.Specificity() != want {
			return nil, fmt.Errorf("%w: pattern %s captures %d fragments, want %d",
				ErrInvalidCatalog, p.Intent, p.Specificity(), want)
		}
		if seen[p.Intent] {
			return nil, fmt.Errorf("%w: duplicate pattern for %s", ErrInvalidCatalog, p.Intent)
		}
		seen[p.Intent] = true
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Specificity() > ordered[j].Specificity()
	})

	byIntent := make(map[models.Intent]int, len(ordered))
	for i, p := range ordered {
		byIntent[p.Intent] = i
	}

	return &Catalog{patterns: ordered, byIntent: byIntent}, nil
}

// DefaultCatalog returns a catalog over DefaultPatterns.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultPatterns())
	if err != nil {
		panic(err)
	}
	return c
}

// Match is the result of a successful parse.
type Match struct {
	Intent    models.Intent
	Fragments Fragments
}

// Fragments are the raw substrings captured by a pattern, in rule order.
type Fragments []string

// Match runs each pattern against normalized text and returns the first hit.
func (c *Catalog) Match(normalized string) (Match, error) {
	for _, p := range c.patterns {
		groups := p.Rule.FindStringSubmatch(normalized)
		if groups == nil {
			continue
		}
		return Match{Intent: p.Intent, Fragments: Fragments(groups[1:])}, nil
	}
	return Match{}, fmt.Errorf("%w: %q", ErrUnrecognized, normalized)
}

// Patterns returns the patterns in matching order.
func (c *Catalog) Patterns() []Pattern {
	out := make([]Pattern, len(c.patterns))
	copy(out, c.patterns)
	return out
}

// Pattern returns the pattern registered for intent.
func (c *Catalog) Pattern(intent models.Intent) (Pattern, bool) {
	i, ok := c.byIntent[intent]
	if !ok {
		return Pattern{}, false
	}
	return c.patterns[i], true
}
