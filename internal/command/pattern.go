package command

import "strings"

// Wildcard is the pattern token that matches any single argv token. It is
// also accepted as a key or flag spec name meaning "accept anything, defer
// validation to the handler".
const Wildcard = "*"

// SegmentKind distinguishes literal pattern segments from wildcard segments.
type SegmentKind int

const (
	// SegmentLiteral matches exactly one argv token by string equality.
	SegmentLiteral SegmentKind = iota
	// SegmentWildcard matches any single argv token.
	SegmentWildcard
)

// Segment is one position of a command pattern: either an exact literal or a
// wildcard marker. Modeled as an explicit tagged variant rather than a regular
// expression so specificity and tie-break semantics stay exact and testable.
type Segment struct {
	Kind    SegmentKind
	Literal string // set only for SegmentLiteral
}

// Pattern is an ordered sequence of segments identifying one invocable
// command. A pattern matches a prefix of argv if at every position the
// segment is either a literal equal to the corresponding token or a wildcard.
type Pattern []Segment

// ParsePattern builds a Pattern from space-separated tokens, e.g.
// "cluster node *" yields [literal cluster, literal node, wildcard].
func ParsePattern(s string) Pattern {
	fields := strings.Fields(s)
	pattern := make(Pattern, 0, len(fields))
	for _, field := range fields {
		if field == Wildcard {
			pattern = append(pattern, Segment{Kind: SegmentWildcard})
		} else {
			pattern = append(pattern, Segment{Kind: SegmentLiteral, Literal: field})
		}
	}
	return pattern
}

// String renders the pattern back to its space-separated form. Used as the
// unique registry key, so re-registering the same pattern overwrites the
// prior entry.
func (p Pattern) String() string {
	tokens := make([]string, len(p))
	for i, seg := range p {
		if seg.Kind == SegmentWildcard {
			tokens[i] = Wildcard
		} else {
			tokens[i] = seg.Literal
		}
	}
	return strings.Join(tokens, " ")
}

// MatchesPrefix reports whether the pattern matches the leading len(p)
// tokens of argv. Patterns longer than argv never match.
func (p Pattern) MatchesPrefix(argv []string) bool {
	if len(p) > len(argv) {
		return false
	}
	for i, seg := range p {
		if seg.Kind == SegmentLiteral && seg.Literal != argv[i] {
			return false
		}
	}
	return true
}

// Literals returns the total count of literal segments anywhere in the
// pattern, wildcards excluded. Used as a matcher tie-break when two patterns
// share the same literal prefix and length.
func (p Pattern) Literals() int {
	count := 0
	for _, seg := range p {
		if seg.Kind == SegmentLiteral {
			count++
		}
	}
	return count
}

// Specificity returns the number of exact-literal segments before the first
// wildcard. Among matching patterns the most specific prefix wins; ties are
// broken by longest pattern length.
func (p Pattern) Specificity() int {
	count := 0
	for _, seg := range p {
		if seg.Kind == SegmentWildcard {
			break
		}
		count++
	}
	return count
}
