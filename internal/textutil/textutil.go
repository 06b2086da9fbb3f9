package textutil

import (
	"regexp"
	"strconv"
	"strings"
)

// numberWords maps word-form numbers to their value by position. The plain
// text and DOCX parsers use the full list; the other format parsers only
// look up to fifteen. The lookup is a plain substring scan, so "canine"
// matches "nine".
var numberWords = []string{
	"one", "two", "three", "four", "five",
	"six", "seven", "eight", "nine", "ten",
	"eleven", "twelve", "thirteen", "fourteen", "fifteen",
	"sixteen", "seventeen", "eighteen", "nineteen", "twenty",
}

var digitRun = regexp.MustCompile(`\d+`)

// CountWords counts whitespace-separated tokens. Empty tokens are never
// produced by strings.Fields, so blank or whitespace-only text counts as 0.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// ExtractChapterNumber pulls a chapter number out of heading text: an
// embedded decimal run wins, otherwise the first word-number (one through
// twenty) found as a substring of the lowercased text. Returns 0 when
// nothing matches.
func ExtractChapterNumber(text string) int {
	return chapterNumber(text, numberWords)
}

// ExtractChapterNumberShort is ExtractChapterNumber with the word
// dictionary capped at fifteen.
func ExtractChapterNumberShort(text string) int {
	return chapterNumber(text, numberWords[:15])
}

func chapterNumber(text string, dict []string) int {
	if m := digitRun.FindString(text); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return n
		}
	}
	lower := strings.ToLower(text)
	for i, w := range dict {
		if strings.Contains(lower, w) {
			return i + 1
		}
	}
	return 0
}

var romanValues = map[byte]int{
	'I': 1, 'V': 5, 'X': 10, 'L': 50, 'C': 100, 'D': 500, 'M': 1000,
}

// RomanToNumber evaluates a Roman numeral with single-subtraction
// lookahead (IV=4, IX=9, ...). Returns 0 for input containing any
// non-numeral character.
func RomanToNumber(roman string) int {
	roman = strings.ToUpper(strings.TrimSpace(roman))
	total := 0
	for i := 0; i < len(roman); i++ {
		v, ok := romanValues[roman[i]]
		if !ok {
			return 0
		}
		if i+1 < len(roman) && romanValues[roman[i+1]] > v {
			total -= v
		} else {
			total += v
		}
	}
	return total
}

// NormalizeWhitespace collapses internal whitespace runs to single spaces
// and trims the ends.
func NormalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
