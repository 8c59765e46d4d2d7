package tokenizer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Tokenizer splits raw text into candidate vocabulary tokens.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Options controls the default tokenizer.
type Options struct {
	// KeepCase disables lower-casing.
	KeepCase  bool
	StopWords []string
	// MinLength drops tokens shorter than this many runes.
	MinLength int
}

// Default tokenizes NFKC-normalized text into runs of letters or digits.
type Default struct {
	pattern  *regexp.Regexp
	stop     map[string]struct{}
	keepCase bool
	minLen   int
}

// New builds a Default tokenizer.
func New(opts Options) *Default {
	stop := make(map[string]struct{}, len(opts.StopWords))
	for _, w := range opts.StopWords {
		if !opts.KeepCase {
			w = strings.ToLower(w)
		}
		stop[w] = struct{}{}
	}
	return &Default{
		pattern:  regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
		stop:     stop,
		keepCase: opts.KeepCase,
		minLen:   opts.MinLength,
	}
}

func (d *Default) Tokenize(text string) []string {
	normed := Normalize(text)
	if !d.keepCase {
		normed = strings.ToLower(normed)
	}
	raw := d.pattern.FindAllString(normed, -1)
	out := raw[:0]
	for _, tok := range raw {
		if _, isStop := d.stop[tok]; isStop {
			continue
		}
		if utf8.RuneCountInString(tok) < d.minLen {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// Whitespace splits on white space only. It suits pre-tokenized input whose
// tokens already match the vocabulary verbatim.
type Whitespace struct{}

func (Whitespace) Tokenize(text string) []string {
	return strings.Fields(text)
}

// Normalize applies NFKC and strips control characters other than newlines and tabs.
func Normalize(text string) string {
	normed := norm.NFKC.String(text)
	normed = strings.TrimSpace(normed)
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, normed)
}
