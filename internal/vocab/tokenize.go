package vocab

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DatasetPunctuation is the punctuation kept as tokens when preparing
	// training examples.
	DatasetPunctuation = `.,!?:;"'-()`
	// ASCIIPunctuation is every printable ASCII punctuation character. It is
	// used when collecting vocabulary so stray symbols still get an id.
	ASCIIPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
)

// Splitter breaks lowercased text into letter runs, digit runs and single
// punctuation characters. Everything else is dropped.
type Splitter struct {
	pattern *regexp.Regexp
}

// NewSplitter builds a splitter that keeps the given punctuation characters.
func NewSplitter(punctuation string) *Splitter {
	alts := []string{`\p{L}+`, `\p{N}+`}
	for _, r := range punctuation {
		alts = append(alts, regexp.QuoteMeta(string(r)))
	}
	return &Splitter{pattern: regexp.MustCompile(strings.Join(alts, "|"))}
}

var (
	datasetSplitter    = NewSplitter(DatasetPunctuation)
	vocabularySplitter = NewSplitter(ASCIIPunctuation)
)

// Split returns the tokens of text.
func (s *Splitter) Split(text string) []string {
	return s.pattern.FindAllString(strings.ToLower(text), -1)
}

// SplitDataset tokenizes text the way training examples are prepared.
func SplitDataset(text string) []string { return datasetSplitter.Split(text) }

// SplitVocabulary tokenizes text for vocabulary collection.
func SplitVocabulary(text string) []string { return vocabularySplitter.Split(text) }

// ValidToken reports whether tok may be stored in a vocabulary. Empty tokens,
// invalid UTF-8, tokens starting with a control character and the
// replacement character are rejected.
func ValidToken(tok string) bool {
	if tok == "" || !utf8.ValidString(tok) || tok == string(utf8.RuneError) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(tok)
	return r == ' ' || !unicode.IsControl(r)
}
