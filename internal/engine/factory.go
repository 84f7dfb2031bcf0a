package engine

import (
	"strings"
)

// escapedSpacePlaceholder stands in for a literal escaped space ("\ ")
// while the query is split into whitespace-delimited tokens, then is
// restored before each token is interpreted. Grounded on engine/factory.rs's
// escape-masking trick (there using "\0").
const escapedSpacePlaceholder = "\x00"

// Options configures how Parse interprets a query string's sigils.
type Options struct {
	ExactMode bool // default engine for unsigiled tokens is Exact rather than Fuzzy
	Case      Case
	Algo      Algorithm
}

// Parse builds an And-of-Or engine tree from the query mini-language: space
// separates AND terms, " | " (masked internally) alternates within an Or
// group, "\ " is a literal space, and a token may carry "!"/"^"/"'"
// prefixes or a "$" suffix. Grounded on engine/factory.rs.
func Parse(query string, opts Options) (Engine, error) {
	masked := strings.ReplaceAll(query, `\ `, escapedSpacePlaceholder)
	fields := strings.Fields(masked)
	if len(fields) == 0 {
		return MatchAll{}, nil
	}

	var groups [][]string
	current := []string{unmask(fields[0])}
	i := 1
	for i < len(fields) {
		if fields[i] == "|" {
			if i+1 >= len(fields) {
				return nil, &ParseError{Token: "|", Err: ErrEmptyAlternative}
			}
			current = append(current, unmask(fields[i+1]))
			i += 2
			continue
		}
		groups = append(groups, current)
		current = []string{unmask(fields[i])}
		i++
	}
	groups = append(groups, current)

	andChildren := make([]Engine, 0, len(groups))
	for _, alts := range groups {
		orChildren := make([]Engine, 0, len(alts))
		for _, tok := range alts {
			eng, err := tokenEngine(tok, opts)
			if err != nil {
				return nil, err
			}
			orChildren = append(orChildren, eng)
		}
		if len(orChildren) == 1 {
			andChildren = append(andChildren, orChildren[0])
		} else {
			andChildren = append(andChildren, &Or{Children: orChildren})
		}
	}
	if len(andChildren) == 1 {
		return andChildren[0], nil
	}
	return &And{Children: andChildren}, nil
}

func unmask(tok string) string {
	return strings.ReplaceAll(tok, escapedSpacePlaceholder, " ")
}

// tokenEngine interprets one token's sigils and builds the matching engine.
// "!"/"^"/"$" always select an Exact engine (they are Exact-only flags);
// "'" toggles between Exact and Fuzzy relative to the mode default; a bare
// token with no remaining text after sigils degenerates to MatchAll.
func tokenEngine(tok string, opts Options) (Engine, error) {
	inverse := false
	if strings.HasPrefix(tok, "!") {
		inverse = true
		tok = tok[1:]
	}
	prefix := false
	if strings.HasPrefix(tok, "^") {
		prefix = true
		tok = tok[1:]
	}
	postfix := false
	if strings.HasSuffix(tok, "$") {
		postfix = true
		tok = tok[:len(tok)-1]
	}
	forceOpposite := false
	if strings.HasPrefix(tok, "'") {
		forceOpposite = true
		tok = tok[1:]
	}

	if tok == "" {
		return MatchAll{}, nil
	}

	switch {
	case inverse || prefix || postfix:
		return NewExact(tok, prefix, postfix, inverse, opts.Case)
	case forceOpposite && opts.ExactMode:
		return NewFuzzy(tok, opts.Case, opts.Algo), nil
	case forceOpposite:
		return NewExact(tok, false, false, false, opts.Case)
	case opts.ExactMode:
		return NewExact(tok, false, false, false, opts.Case)
	default:
		return NewFuzzy(tok, opts.Case, opts.Algo), nil
	}
}
