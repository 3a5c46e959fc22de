// Package codec substitutes dictionary terms with opaque placeholder tokens
// on the way to the provider and restores them on the way back.
package codec

import (
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Entry maps one term to its placeholder.
type Entry struct {
	Term        string `yaml:"term"`
	Placeholder string `yaml:"placeholder"`
}

type dictionary struct {
	Entries []Entry `yaml:"entries"`
}

type pattern struct {
	from    []rune // lower-cased
	to      string
	wordIn  bool // first rune is a word rune
	wordOut bool // last rune is a word rune
}

// Codec is immutable after New and safe for concurrent use.
type Codec struct {
	forward []pattern
	reverse []pattern
}

// Nop returns a codec with an empty dictionary.
func Nop() *Codec {
	return &Codec{}
}

// New validates entries and builds both directions. Terms and placeholders
// must be unique (case-insensitively), no placeholder may equal a term and
// every placeholder needs a cased letter.
//
// Lower, UPPER, Title and Sentence case survive Encode then Decode. Title and
// Sentence case of a multi-word term stay apart only when its placeholder has
// more than one segment (e.g. "[coffee_ph]"). Other mixed casing comes back as
// the dictionary spells the term.
func New(entries []Entry) (*Codec, error) {
	terms := make(map[string]bool, len(entries))
	placeholders := make(map[string]bool, len(entries))
	c := &Codec{}

	for i, e := range entries {
		term := strings.TrimSpace(e.Term)
		ph := strings.TrimSpace(e.Placeholder)
		if term == "" || ph == "" {
			return nil, errors.Errorf("entry %d: term and placeholder are required", i)
		}
		if strings.IndexFunc(ph, isCased) < 0 {
			return nil, errors.Errorf("entry %d: placeholder %q has no letter to carry case", i, ph)
		}
		lt, lp := strings.ToLower(term), strings.ToLower(ph)
		if terms[lt] {
			return nil, errors.Errorf("entry %d: duplicate term %q", i, term)
		}
		if placeholders[lp] {
			return nil, errors.Errorf("entry %d: placeholder %q is already used", i, ph)
		}
		terms[lt], placeholders[lp] = true, true

		c.forward = append(c.forward, newPattern(lt, ph))
		c.reverse = append(c.reverse, newPattern(lp, term))
	}
	for p := range placeholders {
		if terms[p] {
			return nil, errors.Errorf("placeholder %q collides with a term", p)
		}
	}

	// longest first so multi-word terms win over their prefixes
	byLength := func(ps []pattern) {
		sort.SliceStable(ps, func(i, j int) bool { return len(ps[i].from) > len(ps[j].from) })
	}
	byLength(c.forward)
	byLength(c.reverse)
	return c, nil
}

// Load reads a YAML dictionary of the form
//
//	entries:
//	  - term: ...
//	    placeholder: ...
func Load(path string) (*Codec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read codec dictionary")
	}
	var d dictionary
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, errors.Wrapf(err, "parse codec dictionary %s", path)
	}
	return New(d.Entries)
}

func newPattern(from, to string) pattern {
	r := []rune(from)
	return pattern{
		from:    r,
		to:      to,
		wordIn:  isWord(r[0]),
		wordOut: isWord(r[len(r)-1]),
	}
}

// Len is the number of dictionary entries.
func (c *Codec) Len() int {
	return len(c.forward)
}

// Encode replaces whole-word terms with their placeholders.
func (c *Codec) Encode(text string) string {
	return replace(text, c.forward)
}

// Decode replaces placeholders with their terms.
func (c *Codec) Decode(text string) string {
	return replace(text, c.reverse)
}

func replace(text string, patterns []pattern) string {
	if text == "" || len(patterns) == 0 {
		return text
	}
	src := []rune(text)
	lower := make([]rune, len(src))
	for i, r := range src {
		lower[i] = unicode.ToLower(r)
	}

	var out strings.Builder
	out.Grow(len(text))
	for i := 0; i < len(src); {
		p, ok := matchAt(lower, i, patterns)
		if !ok {
			out.WriteRune(src[i])
			i++
			continue
		}
		n := len(p.from)
		out.WriteString(applyShape(p.to, shapeOf(src[i:i+n])))
		i += n
	}
	return out.String()
}

func matchAt(lower []rune, i int, patterns []pattern) (pattern, bool) {
	for _, p := range patterns {
		n := len(p.from)
		if i+n > len(lower) {
			continue
		}
		if p.wordIn && i > 0 && isWord(lower[i-1]) {
			continue
		}
		if p.wordOut && i+n < len(lower) && isWord(lower[i+n]) {
			continue
		}
		if runesEqual(lower[i:i+n], p.from) {
			return p, true
		}
	}
	return pattern{}, false
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

type shape int

const (
	shapeAsIs shape = iota
	shapeLower
	shapeUpper
	shapeTitle    // every segment capitalised: "Hot Dog", "[Sausage_Ph]"
	shapeSentence // only the first letter upper: "Hot dog", "[Sausage_ph]"
)

func isCased(r rune) bool {
	return unicode.IsUpper(r) || unicode.IsLower(r)
}

// isSegment reports whether r continues a casing segment. Underscores split
// segments so that "[coffee_ph]" can carry Title and Sentence case apart.
func isSegment(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// shapeOf classifies the letter casing of a matched span so it can be carried
// across the substitution. Casing that fits no shape is reported as shapeAsIs
// and does not survive a round trip.
func shapeOf(s []rune) shape {
	var letters, upper int
	title, sentence := true, true
	start := true
	for _, r := range s {
		if !isSegment(r) {
			start = true
			continue
		}
		if !isCased(r) {
			continue
		}
		up := unicode.IsUpper(r)
		if up {
			upper++
		}
		switch {
		case start && !up:
			title = false
			if letters == 0 {
				sentence = false
			}
		case start && up:
			if letters > 0 {
				sentence = false
			}
		case up:
			title, sentence = false, false
		}
		letters++
		start = false
	}

	switch {
	case upper == 0:
		return shapeLower
	case upper == letters:
		return shapeUpper
	case title:
		return shapeTitle
	case sentence:
		return shapeSentence
	default:
		return shapeAsIs
	}
}

func applyShape(s string, sh shape) string {
	switch sh {
	case shapeLower:
		return strings.ToLower(s)
	case shapeUpper:
		return strings.ToUpper(s)
	case shapeTitle, shapeSentence:
		r := []rune(strings.ToLower(s))
		start, first := true, true
		for i := range r {
			if !isSegment(r[i]) {
				start = true
				continue
			}
			if !isCased(r[i]) {
				continue
			}
			if start && (sh == shapeTitle || first) {
				r[i] = unicode.ToUpper(r[i])
			}
			start, first = false, false
		}
		return string(r)
	default:
		return s
	}
}
