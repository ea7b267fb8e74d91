package command

// Match finds the most specific registered pattern matching a prefix of argv
// and returns the entry plus the unconsumed remainder of the argument list,
// which is handed to the parser.
//
// Every registered pattern of length <= len(argv) is compared token by token:
// a pattern matches when each segment is either a literal equal to the
// corresponding token or a wildcard. Among matching patterns the one with the
// most exact literals before its first wildcard wins; ties go to the longest
// pattern, then the one with more literals overall, then lexicographic
// pattern text, so the winner never depends on map iteration order. At most
// one handler results from any match.
func (r *Registry) Match(argv []string) (*CommandEntry, []string, error) {
	r.cmdMu.RLock()
	defer r.cmdMu.RUnlock()

	var best *CommandEntry
	for _, entry := range r.commands {
		if !entry.Pattern.MatchesPrefix(argv) {
			continue
		}
		if best == nil || moreSpecific(entry.Pattern, best.Pattern) {
			best = entry
		}
	}

	if best == nil {
		return nil, nil, &UnknownCommandError{Path: argv}
	}
	return best, argv[len(best.Pattern):], nil
}

// moreSpecific reports whether pattern a beats pattern b: greater literal
// prefix first, then greater total length, then more literals overall.
// The final fallback compares pattern text, which is unique per registry
// entry, so equal-rank candidates always resolve the same way.
func moreSpecific(a, b Pattern) bool {
	if sa, sb := a.Specificity(), b.Specificity(); sa != sb {
		return sa > sb
	}
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	if la, lb := a.Literals(), b.Literals(); la != lb {
		return la > lb
	}
	return a.String() < b.String()
}
