package command

import "strings"

// rawFlag is one --name[=value] occurrence before type coercion. hasValue
// distinguishes "--name=" and "--name value" from a bare "--name".
type rawFlag struct {
	name     string
	value    string
	hasValue bool
}

// Parse consumes the remainder of argv (everything after the matched pattern)
// into validated positional keys and typed flags, in three passes:
//
//  1. Positional extraction: leading non-flag tokens fill the key spec in
//     order. Fewer tokens than required keys is a missing-key error; tokens
//     beyond the spec are accepted as an overflow list only under a wildcard
//     key spec, otherwise an excess-arguments error.
//  2. Flag extraction: --name=value and --name value tokens are matched
//     against the flag spec by name and type-coerced. Unknown names are an
//     error unless the flag spec is wildcard.
//  3. Global flag extraction: the fixed handler-independent set (--all,
//     --format, --timeout) is pulled out before handler-specific validation,
//     so no handler ever rejects a global flag as unknown.
//
// Any failure aborts before execution; no partial execution occurs.
func Parse(entry *CommandEntry, remaining []string) (*ParsedArgs, error) {
	args := &ParsedArgs{
		Keys:  make(map[string]any),
		Flags: make(map[string]any),
	}

	wildcardKeys := hasWildcardKey(entry.Keys)
	wildcardFlags := hasWildcardFlag(entry.Flags)

	// Pass 1: leading non-flag tokens become positional keys in spec order.
	positional, rest := splitLeadingPositionals(remaining)
	keySpecs := declaredKeys(entry.Keys)

	if len(positional) > len(keySpecs) && !wildcardKeys {
		return nil, excessArgsError(positional[len(keySpecs):])
	}

	for i, spec := range keySpecs {
		if i >= len(positional) {
			if spec.Required {
				return nil, missingKeyError(spec.Name)
			}
			continue
		}
		value, err := coerce(positional[i], spec.Type)
		if err != nil {
			return nil, keyTypeError(spec.Name, positional[i], spec.Type.String())
		}
		args.Keys[spec.Name] = value
	}
	if len(positional) > len(keySpecs) {
		args.Extra = positional[len(keySpecs):]
	}

	// Tokenize the rest into raw flags. Stray positionals after the first
	// flag are overflow under a wildcard key spec, an error otherwise.
	rawFlags, stray, err := tokenizeFlags(rest, entry.Flags)
	if err != nil {
		return nil, err
	}
	if len(stray) > 0 {
		if !wildcardKeys {
			return nil, excessArgsError(stray)
		}
		args.Extra = append(args.Extra, stray...)
	}

	// Pass 3 runs conceptually before handler validation: strip globals out
	// of the raw set first, then validate what remains against the flag spec.
	var handlerFlags []rawFlag
	for _, rf := range rawFlags {
		consumed, err := extractGlobalFlag(rf, &args.Globals)
		if err != nil {
			return nil, err
		}
		if !consumed {
			handlerFlags = append(handlerFlags, rf)
		}
	}

	// Pass 2: handler-specific flag validation and type coercion.
	flagSpecs := declaredFlags(entry.Flags)
	for _, rf := range handlerFlags {
		spec, ok := flagSpecs[rf.name]
		if !ok {
			if !wildcardFlags {
				return nil, unknownFlagError(rf.name)
			}
			args.Flags[rf.name] = rf.value
			continue
		}

		raw := rf.value
		if spec.Type == BoolType && !rf.hasValue {
			raw = ""
		}
		value, err := coerce(raw, spec.Type)
		if err != nil {
			return nil, flagTypeError(rf.name, rf.value, spec.Type.String())
		}
		args.Flags[rf.name] = value
	}

	for _, spec := range entry.Flags {
		if spec.Name == Wildcard || !spec.Required {
			continue
		}
		if _, ok := args.Flags[spec.Name]; !ok {
			return nil, &ValidationError{Reason: "missing required flag: --" + spec.Name}
		}
	}

	return args, nil
}

// splitLeadingPositionals separates the leading non-flag tokens from the rest
// of the argument list.
func splitLeadingPositionals(tokens []string) (positional, rest []string) {
	for i, tok := range tokens {
		if isFlagToken(tok) {
			return tokens[:i], tokens[i:]
		}
	}
	return tokens, nil
}

func isFlagToken(tok string) bool {
	return strings.HasPrefix(tok, "--") && len(tok) > 2
}

// tokenizeFlags walks the post-positional tokens, pairing --name value forms
// for flags declared non-boolean and collecting stray positionals.
func tokenizeFlags(tokens []string, specs []FlagSpec) (flags []rawFlag, stray []string, err error) {
	flagSpecs := declaredFlags(specs)

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if !isFlagToken(tok) {
			stray = append(stray, tok)
			continue
		}

		name := strings.TrimPrefix(tok, "--")
		if eq := strings.Index(name, "="); eq >= 0 {
			flags = append(flags, rawFlag{name: name[:eq], value: name[eq+1:], hasValue: true})
			continue
		}

		// --name value form: consume the next token as the value unless the
		// flag is boolean (declared or global) or the next token is a flag.
		if isBoolFlag(name, flagSpecs) || i+1 >= len(tokens) || isFlagToken(tokens[i+1]) {
			flags = append(flags, rawFlag{name: name})
			continue
		}
		flags = append(flags, rawFlag{name: name, value: tokens[i+1], hasValue: true})
		i++
	}

	return flags, stray, nil
}

// isBoolFlag reports whether a bare --name should not consume the following
// token. Globals are checked here too so "--all status" keeps "status" as a
// positional for wildcard handlers.
func isBoolFlag(name string, specs map[string]FlagSpec) bool {
	if name == "all" {
		return true
	}
	if spec, ok := specs[name]; ok {
		return spec.Type == BoolType
	}
	return false
}

// extractGlobalFlag consumes one raw flag into the global set when its name
// belongs there. Returns false for handler-specific flags.
func extractGlobalFlag(rf rawFlag, globals *GlobalFlags) (bool, error) {
	switch rf.name {
	case "all":
		raw := rf.value
		if !rf.hasValue {
			raw = ""
		}
		value, err := coerce(raw, BoolType)
		if err != nil {
			return false, flagTypeError(rf.name, rf.value, BoolType.String())
		}
		globals.All = value.(bool)
		return true, nil
	case "format":
		if !rf.hasValue || rf.value == "" {
			return false, &ValidationError{Reason: "flag --format requires a value"}
		}
		globals.Format = rf.value
		return true, nil
	case "timeout":
		value, err := coerce(rf.value, IntType)
		if err != nil {
			return false, flagTypeError(rf.name, rf.value, IntType.String())
		}
		globals.Timeout = value.(int)
		return true, nil
	default:
		return false, nil
	}
}

func hasWildcardKey(keys []KeySpec) bool {
	for _, k := range keys {
		if k.Name == Wildcard {
			return true
		}
	}
	return false
}

func hasWildcardFlag(flags []FlagSpec) bool {
	for _, f := range flags {
		if f.Name == Wildcard {
			return true
		}
	}
	return false
}

func declaredKeys(keys []KeySpec) []KeySpec {
	out := make([]KeySpec, 0, len(keys))
	for _, k := range keys {
		if k.Name != Wildcard {
			out = append(out, k)
		}
	}
	return out
}

func declaredFlags(flags []FlagSpec) map[string]FlagSpec {
	out := make(map[string]FlagSpec, len(flags))
	for _, f := range flags {
		if f.Name != Wildcard {
			out[f.Name] = f
		}
	}
	return out
}
