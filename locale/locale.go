// Package locale maps localized ingredient lines onto the English unit
// vocabulary understood by package ingredient. Units are translated, never
// converted.
package locale

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/pevans/recipefed/ingredient"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed lexicons.yaml
var lexiconsYAML []byte

// maxUnitWords bounds how many words a localized unit phrase may span
// ("cuillère à soupe", "κουταλιά της σούπας").
const maxUnitWords = 4

// Lexicon holds the localized unit and number words for one language.
type Lexicon struct {
	Lang string

	// Units maps a local unit word to an English unit token. An empty
	// value keeps the local word as the unit.
	Units map[string]string

	// NumberWords maps a spelled-out number to digits ("zwei" -> "2").
	NumberWords map[string]string

	// Connectors are dropped between a unit and the ingredient name
	// ("di" in "1 pizzico di sale"). Entries ending in an apostrophe are
	// stripped even when glued to the next word ("d'huile").
	Connectors []string

	units   map[string]string
	numbers map[string]string
}

type lexiconEntry struct {
	Units       map[string]string `yaml:"units"`
	NumberWords map[string]string `yaml:"number_words"`
	Connectors  []string          `yaml:"connectors"`
}

var builtin = mustParse(lexiconsYAML)

// NewLexicon builds a lexicon from unit and number word tables.
func NewLexicon(lang string, units, numberWords map[string]string) *Lexicon {
	lx := &Lexicon{
		Lang:        normalizeLang(lang),
		Units:       units,
		NumberWords: numberWords,
		units:       make(map[string]string, len(units)),
		numbers:     make(map[string]string, len(numberWords)),
	}
	for word, canonical := range units {
		lx.units[foldKey(strings.TrimRight(word, "."))] = canonical
	}
	for word, digits := range numberWords {
		lx.numbers[foldKey(word)] = digits
	}
	return lx
}

// Parse reads lexicons from YAML keyed by language code.
func Parse(data []byte) (map[string]*Lexicon, error) {
	var entries map[string]lexiconEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse lexicons: %w", err)
	}

	out := make(map[string]*Lexicon, len(entries))
	for lang, entry := range entries {
		lx := NewLexicon(lang, entry.Units, entry.NumberWords)
		lx.Connectors = entry.Connectors
		out[lx.Lang] = lx
	}
	return out, nil
}

func mustParse(data []byte) map[string]*Lexicon {
	lexicons, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return lexicons
}

// Lookup returns the built-in lexicon for a language code. Region suffixes
// are ignored, so "de-AT" and "de_DE" both resolve to German. English and
// unknown languages return nil.
func Lookup(lang string) *Lexicon {
	return builtin[normalizeLang(lang)]
}

// Languages lists the built-in language codes in sorted order.
func Languages() []string {
	langs := make([]string, 0, len(builtin))
	for lang := range builtin {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

func normalizeLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		lang = lang[:i]
	}
	return lang
}

// foldKey lowercases s and strips combining marks so that "Evőkanál" and
// "evokanal" compare equal.
func foldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}

// CleanQuantityText rewrites typographic number forms into the ASCII forms the
// quantity grammar accepts: vulgar fractions become "1/2" (with a space after
// a preceding digit, so "1½" reads "1 1/2"), the fraction slash becomes "/"
// and non-breaking spaces become plain spaces.
func CleanQuantityText(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		switch {
		case r == '\u00ad':
			continue
		case r == '\u00a0' || r == '\u202f' || r == '\u2009' || r == '\u2007':
			r = ' '
		case r == '\u2044' || r == '\u2215':
			r = '/'
		case r > unicode.MaxASCII && unicode.Is(unicode.No, r):
			if folded, ok := vulgarFraction(r); ok {
				if unicode.IsDigit(prev) {
					b.WriteByte(' ')
				}
				b.WriteString(folded)
				prev = '0'
				continue
			}
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

func vulgarFraction(r rune) (string, bool) {
	folded := norm.NFKC.String(string(r))
	if !strings.ContainsRune(folded, '\u2044') {
		return "", false
	}
	return strings.ReplaceAll(folded, "\u2044", "/"), true
}

// TranslateUnit maps a localized unit word to its English token. Words the
// lexicon does not know, or that it keeps in the local language, are
// returned unchanged.
func (lx *Lexicon) TranslateUnit(unit string) string {
	if lx == nil {
		return unit
	}
	trimmed := strings.TrimSpace(unit)
	if canonical, ok := lx.units[foldKey(strings.TrimRight(trimmed, "."))]; ok && canonical != "" {
		return canonical
	}
	return unit
}

// Prepare turns a localized ingredient line into a Raw record the normalizer
// can parse. Number words are spelled as digits and a leading unit phrase is
// rewritten to its English token. Local units with no English token are
// moved to Raw.Unit. A nil lexicon only cleans the quantity text.
func (lx *Lexicon) Prepare(line string) ingredient.Raw {
	text := strings.TrimSpace(CleanQuantityText(line))
	if lx == nil || text == "" {
		return ingredient.Raw{Name: text}
	}

	text = lx.replaceNumberWord(text)

	qty, rest := "", text
	if q, ok := ingredient.MatchQuantity(text); ok {
		qty, rest = q.Token, q.Rest
	}

	word, canonical, after, ok := lx.matchUnit(rest)
	if !ok {
		return ingredient.Raw{Name: text}
	}
	after = lx.dropConnector(after)
	if canonical == "" {
		return ingredient.Raw{Name: joinWords(qty, after), Unit: word}
	}
	return ingredient.Raw{Name: joinWords(qty, canonical, after)}
}

func (lx *Lexicon) replaceNumberWord(text string) string {
	first, rest, _ := strings.Cut(text, " ")
	digits, ok := lx.numbers[foldKey(first)]
	if !ok || strings.TrimSpace(rest) == "" {
		return text
	}
	return digits + " " + rest
}

func (lx *Lexicon) dropConnector(s string) string {
	first, rest, _ := strings.Cut(s, " ")
	for _, c := range lx.Connectors {
		if strings.HasSuffix(c, "'") {
			for _, apos := range []string{"'", "\u2019"} {
				prefix := strings.TrimSuffix(c, "'") + apos
				if len(s) > len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
					return strings.TrimSpace(s[len(prefix):])
				}
			}
			continue
		}
		if strings.TrimSpace(rest) != "" && strings.EqualFold(first, c) {
			return strings.TrimSpace(rest)
		}
	}
	return s
}

// matchUnit finds the longest unit phrase at the start of s.
func (lx *Lexicon) matchUnit(s string) (word, canonical, rest string, ok bool) {
	ends := wordEnds(s, maxUnitWords)
	for i := len(ends) - 1; i >= 0; i-- {
		candidate := strings.TrimRight(s[:ends[i]], ",;:")
		for _, key := range []string{candidate, strings.TrimRight(candidate, ".")} {
			if c, found := lx.units[foldKey(key)]; found {
				return candidate, c, strings.TrimSpace(s[ends[i]:]), true
			}
		}
	}
	return "", "", "", false
}

// wordEnds returns the byte offsets at which each of the first n
// whitespace-separated words of s ends.
func wordEnds(s string, n int) []int {
	var ends []int
	inWord := false
	for i, r := range s {
		if unicode.IsSpace(r) {
			if inWord {
				ends = append(ends, i)
				if len(ends) == n {
					return ends
				}
			}
			inWord = false
			continue
		}
		inWord = true
	}
	if inWord {
		ends = append(ends, len(s))
	}
	return ends
}

func joinWords(parts ...string) string {
	words := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			words = append(words, p)
		}
	}
	return strings.Join(words, " ")
}
