// Package filter converts the extra_filter column of a task between its text
// form ("FLR1:350, FLR2,FLR3,FLR4:326") and an ordered list of section/price pairs.
//
// Decoding is tolerant of hand-typed text: it never fails and never panics.
// Encoding is deliberately lossy for incomplete pairs, which are omitted.
package filter

import (
	"strings"
)

// Separator joins encoded pairs.
const Separator = ", "

// Pair is one section/price override. Section may contain commas (a grouped
// section list) and colons; only the last colon of a token separates the price.
type Pair struct {
	Section string
	Price   string
}

// Complete reports whether both halves are non-empty.
func (p Pair) Complete() bool {
	return p.Section != "" && p.Price != ""
}

// String renders the pair the way Encode would.
func (p Pair) String() string {
	return p.Section + ":" + p.Price
}

// Encode joins pairs as "section:price" separated by ", ".
// Pairs with an empty section or an empty price are dropped.
func Encode(pairs []Pair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if !p.Complete() {
			continue
		}
		parts = append(parts, p.String())
	}
	return strings.Join(parts, Separator)
}

// Decode parses filter text into pairs.
//
// The text is split on commas. A token without a colon does not end a pair: it
// is held and prefixed (comma-joined) onto the section of the next token that
// has a colon. Colon-bearing tokens split on their last colon. A run of
// colon-less tokens at the end becomes a single pair with an empty price.
// Empty tokens are dropped unless they sit inside a run of held tokens.
func Decode(text string) []Pair {
	pairs := make([]Pair, 0)
	if strings.TrimSpace(text) == "" {
		return pairs
	}

	var pending []string
	for _, raw := range strings.Split(text, ",") {
		tok := strings.TrimSpace(raw)
		if tok == "" {
			// kept only inside a run, so "A,,B:1" keeps its section as typed
			if len(pending) > 0 {
				pending = append(pending, tok)
			}
			continue
		}
		if !strings.Contains(tok, ":") {
			pending = append(pending, tok)
			continue
		}
		if len(pending) > 0 {
			tok = strings.Join(append(pending, tok), ",")
			pending = pending[:0]
		}
		pairs = append(pairs, splitPair(tok))
	}

	for len(pending) > 0 && pending[len(pending)-1] == "" {
		pending = pending[:len(pending)-1]
	}
	if len(pending) > 0 {
		pairs = append(pairs, Pair{Section: strings.Join(pending, ",")})
	}
	return pairs
}

// DecodeValue decodes an arbitrary cell value. Anything that is not a string
// decodes to an empty list.
func DecodeValue(v any) []Pair {
	s, ok := v.(string)
	if !ok {
		return make([]Pair, 0)
	}
	return Decode(s)
}

func splitPair(tok string) Pair {
	i := strings.LastIndex(tok, ":")
	return Pair{
		Section: strings.TrimSpace(tok[:i]),
		Price:   strings.TrimSpace(tok[i+1:]),
	}
}
