package search

import (
	"strings"

	"github.com/forPelevin/supercut/internal/types"
)

type posToken struct {
	tag    string
	prefix bool
	word   string
	any    bool
}

// parsePOSPattern reads "JJ NN", "VB* the NN" or "* NN". Upper-case fields are
// Penn Treebank tags (trailing * matches any tag with that prefix), other
// fields are literal words.
func parsePOSPattern(p string) []posToken {
	var out []posToken
	for _, f := range strings.Fields(p) {
		switch {
		case f == "*":
			out = append(out, posToken{any: true})
		case isTag(f):
			t := posToken{tag: f}
			if strings.HasSuffix(f, "*") {
				t.tag, t.prefix = strings.TrimSuffix(f, "*"), true
			}
			out = append(out, t)
		default:
			out = append(out, posToken{word: strings.ToLower(f)})
		}
	}
	return out
}

func isTag(f string) bool {
	core := strings.TrimSuffix(f, "*")
	if core == "" {
		return false
	}
	for _, r := range core {
		if !(r >= 'A' && r <= 'Z') && r != '$' {
			return false
		}
	}
	return true
}

func (p posToken) matches(t types.TaggedToken) bool {
	switch {
	case p.any:
		return true
	case p.word != "":
		return strings.EqualFold(t.Text, p.word)
	case p.prefix:
		return strings.HasPrefix(strings.ToUpper(t.Tag), p.tag)
	default:
		return strings.EqualFold(t.Tag, p.tag)
	}
}

// matchPOS reports whether pattern occurs as a contiguous run of toks.
func matchPOS(toks []types.TaggedToken, pattern []posToken) bool {
	if len(pattern) == 0 || len(toks) < len(pattern) {
		return false
	}
	for i := 0; i+len(pattern) <= len(toks); i++ {
		ok := true
		for j, p := range pattern {
			if !p.matches(toks[i+j]) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}
