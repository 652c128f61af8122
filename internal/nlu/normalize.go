package nlu

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKC, case folding, replaces punctuation and symbols with spaces and
// collapses whitespace.
func Normalize(s string) string {
	s = cases.Fold().String(norm.NFKC.String(s))
	var b strings.Builder
	b.Grow(len(s))
	gap := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if gap && b.Len() > 0 {
				b.WriteByte(' ')
			}
			gap = false
			b.WriteRune(r)
			continue
		}
		gap = true
	}
	return b.String()
}

// stopWords is a short English list. Domain words such as "balance", "open" or "help" are kept.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		a an the and or but if so than then of to in on at by for with from into about as
		i me my mine myself you your yours we our ours us it its this that these those
		is are am was were be been being do does did doing have has had having
		can could would should will shall may might must
		what which who whom whose how when where why
		there here please just also very some any s t`) {
		stopWords[w] = struct{}{}
	}
}

// tokens returns the normalized words of s without stop words.
func tokens(s string) []string {
	fields := strings.Fields(Normalize(s))
	out := fields[:0]
	for _, f := range fields {
		if _, stop := stopWords[f]; !stop {
			out = append(out, f)
		}
	}
	return out
}

// terms expands tokens into unigrams and bigrams.
func terms(s string) []string {
	toks := tokens(s)
	out := make([]string, 0, 2*len(toks))
	out = append(out, toks...)
	for i := 0; i+1 < len(toks); i++ {
		out = append(out, toks[i]+" "+toks[i+1])
	}
	return out
}
