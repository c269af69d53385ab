package area

import (
	"regexp"
	"strings"
)

// Kind classifies an area expression.
type Kind int

const (
	// Invalid is anything that does not fit the postal-code grammar.
	Invalid Kind = iota
	// Exact is a full 5-digit postal code, e.g. "76133".
	Exact
	// StarPrefix is 1-4 digits followed by '*', e.g. "761*".
	StarPrefix
	// BarePrefix is 1-4 digits without a suffix. Only valid on the query side,
	// where it is promoted to StarPrefix.
	BarePrefix
	// Unfiltered is the empty query. Never produced by Classify.
	Unfiltered
)

func (k Kind) String() string {
	switch k {
	case Exact:
		return "exact"
	case StarPrefix:
		return "star_prefix"
	case BarePrefix:
		return "bare_prefix"
	case Unfiltered:
		return "unfiltered"
	default:
		return "invalid"
	}
}

var (
	exactRe      = regexp.MustCompile(`^\d{5}$`)     // 76133
	starPrefixRe = regexp.MustCompile(`^\d{1,4}\*$`) // 761*, 86*
	barePrefixRe = regexp.MustCompile(`^\d{1,4}$`)   // 76
)

// Classify trims s and reports which grammar form it takes.
// Every string maps to exactly one of Exact, StarPrefix, BarePrefix or Invalid.
func Classify(s string) Kind {
	s = strings.TrimSpace(s)
	switch {
	case exactRe.MatchString(s):
		return Exact
	case starPrefixRe.MatchString(s):
		return StarPrefix
	case barePrefixRe.MatchString(s):
		return BarePrefix
	default:
		return Invalid
	}
}

// Query is a normalized user query.
type Query struct {
	Kind Kind
	// Expr is the normalized expression ("" for Unfiltered, the trimmed raw
	// text for Invalid).
	Expr string
}

// Normalize turns raw user input into a Query. Empty input is Unfiltered,
// bare digits get an implicit '*' so partially typed codes behave as prefixes.
func Normalize(raw string) Query {
	expr := strings.TrimSpace(raw)
	if expr == "" {
		return Query{Kind: Unfiltered}
	}

	switch Classify(expr) {
	case Exact:
		return Query{Kind: Exact, Expr: expr}
	case StarPrefix:
		return Query{Kind: StarPrefix, Expr: expr}
	case BarePrefix:
		return Query{Kind: StarPrefix, Expr: expr + "*"}
	default:
		return Query{Kind: Invalid, Expr: expr}
	}
}

// String returns the normalized expression.
func (q Query) String() string {
	return q.Expr
}

// prefix returns the digit part of a StarPrefix expression.
func prefix(expr string) string {
	return strings.TrimSuffix(expr, "*")
}

// Covers reports whether the stored area expression overlaps the query.
// Stored expressions are only ever Exact or StarPrefix; anything else never
// matches a filtered query.
func Covers(q Query, stored string) bool {
	stored = strings.TrimSpace(stored)

	switch q.Kind {
	case Unfiltered:
		return true

	case Exact:
		switch Classify(stored) {
		case Exact:
			return stored == q.Expr
		case StarPrefix:
			return strings.HasPrefix(q.Expr, prefix(stored))
		}
		return false

	case StarPrefix:
		p := prefix(q.Expr)
		switch Classify(stored) {
		case Exact:
			return strings.HasPrefix(stored, p)
		case StarPrefix:
			ap := prefix(stored)
			// Narrower and broader stored territories both overlap.
			return strings.HasPrefix(ap, p) || strings.HasPrefix(p, ap)
		}
		return false
	}

	return false
}

// MatchesAny reports whether any of the areas overlaps the query.
// Unfiltered matches even an empty area list.
func MatchesAny(q Query, areas []string) bool {
	if q.Kind == Unfiltered {
		return true
	}
	for _, a := range areas {
		if Covers(q, a) {
			return true
		}
	}
	return false
}
