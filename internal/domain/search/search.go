package search

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/forPelevin/supercut/internal/types"
)

type Mode string

const (
	ModeRegex    Mode = "re"
	ModeWord     Mode = "word"
	ModePOS      Mode = "pos"
	ModeHyper    Mode = "hyper"
	ModeFragment Mode = "fragment"
	ModeFranken  Mode = "franken"
)

var (
	ErrUnknownMode    = errors.New("unknown search type")
	ErrLexiconMissing = errors.New("search type needs a lexical analyzer")
	ErrPhraseMode     = errors.New("fragment and franken search only work on transcripts")
)

// Modes lists the accepted values of the search type flag.
var Modes = []Mode{ModeRegex, ModeWord, ModePOS, ModeHyper, ModeFragment, ModeFranken}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "re", "regex":
		return ModeRegex, nil
	case "word":
		return ModeWord, nil
	case "pos":
		return ModePOS, nil
	case "hyper":
		return ModeHyper, nil
	case "fragment":
		return ModeFragment, nil
	case "franken":
		return ModeFranken, nil
	}
	return "", fmt.Errorf("%w %q (want one of %v)", ErrUnknownMode, s, Modes)
}

// Phrase reports whether the mode assembles clips from transcript words
// instead of matching lines.
func (m Mode) Phrase() bool { return m == ModeFragment || m == ModeFranken }

// NeedsLexicon reports whether the mode consults a lexical analyzer.
func (m Mode) NeedsLexicon() bool { return m == ModePOS || m == ModeHyper }

// Lexicon provides the linguistic annotations used by pos and hyper searches.
type Lexicon interface {
	Tag(ctx context.Context, text string) ([]types.TaggedToken, error)
	Hypernyms(ctx context.Context, word string) ([]string, error)
}

type Unit int

const (
	UnitLine Unit = iota
	UnitWord
)

// Matcher evaluates one search predicate against text.
type Matcher struct {
	mode    Mode
	pattern string
	re      *regexp.Regexp
	posPat  []posToken
	lex     Lexicon
	hyper   map[string][]string
}

func New(mode Mode, pattern string, lex Lexicon) (*Matcher, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, errors.New("search term is empty")
	}
	m := &Matcher{mode: mode, pattern: pattern, lex: lex}
	switch mode {
	case ModeRegex, ModeWord:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("search pattern: %w", err)
		}
		m.re = re
	case ModePOS:
		m.posPat = parsePOSPattern(pattern)
	case ModeHyper:
		m.pattern = strings.ToLower(strings.TrimSpace(pattern))
		m.hyper = make(map[string][]string)
	case ModeFragment, ModeFranken:
		return nil, ErrPhraseMode
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownMode, mode)
	}
	if mode.NeedsLexicon() && lex == nil {
		return nil, fmt.Errorf("%w: %s", ErrLexiconMissing, mode)
	}
	return m, nil
}

func (m *Matcher) Mode() Mode { return m.mode }

// Unit picks the matching granularity for a track kind. Cue files only carry
// line timing; caption and transcript word modes match individual words.
func (m *Matcher) Unit(kind types.TrackKind) Unit {
	if kind == types.TrackCues || m.mode == ModeRegex {
		return UnitLine
	}
	return UnitWord
}

// Match reports whether text satisfies the predicate.
func (m *Matcher) Match(ctx context.Context, text string) (bool, error) {
	switch m.mode {
	case ModeRegex, ModeWord:
		return m.re.MatchString(text), nil
	case ModePOS:
		toks, err := m.lex.Tag(ctx, text)
		if err != nil {
			return false, fmt.Errorf("pos tag: %w", err)
		}
		return matchPOS(toks, m.posPat), nil
	case ModeHyper:
		return m.matchHyper(ctx, text)
	}
	return false, nil
}

// MatchSpan turns a matching span into a Segment; ok is false on no match.
func (m *Matcher) MatchSpan(ctx context.Context, span types.TextSpan) (types.Segment, bool, error) {
	ok, err := m.Match(ctx, span.Text)
	if err != nil || !ok {
		return types.Segment{}, false, err
	}
	return types.Segment{Source: span.Source, Text: span.Text, Start: span.Start, End: span.End}, true, nil
}

func (m *Matcher) matchHyper(ctx context.Context, text string) (bool, error) {
	for _, tok := range Tokens(text) {
		w := strings.ToLower(tok)
		if w == m.pattern {
			return true, nil
		}
		chain, ok := m.hyper[w]
		if !ok {
			var err error
			chain, err = m.lex.Hypernyms(ctx, w)
			if err != nil {
				return false, fmt.Errorf("hypernyms of %q: %w", w, err)
			}
			m.hyper[w] = chain
		}
		for _, h := range chain {
			if strings.EqualFold(strings.TrimSpace(h), m.pattern) {
				return true, nil
			}
		}
	}
	return false, nil
}

// Tokens splits text into words, dropping surrounding punctuation.
func Tokens(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '-')
	})
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'-")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
