// Package hebrew handles the final-form letter glyphs of the Hebrew
// alphabet. Five letters are written differently at the end of a word
// (ך ם ן ף ץ) but are the same letter for guessing purposes, so all set
// membership and comparison in the game happens on the regular form.
package hebrew

import (
	"strings"
	"unicode"
)

// finalToRegular maps each final-form glyph to its regular form.
var finalToRegular = map[rune]rune{
	'ך': 'כ',
	'ם': 'מ',
	'ן': 'נ',
	'ף': 'פ',
	'ץ': 'צ',
}

// regularToFinal is the reverse mapping.
var regularToFinal = map[rune]rune{
	'כ': 'ך',
	'מ': 'ם',
	'נ': 'ן',
	'פ': 'ף',
	'צ': 'ץ',
}

// Alphabet lists the 22 letters in their regular form, in order.
var Alphabet = []rune{
	'א', 'ב', 'ג', 'ד', 'ה', 'ו', 'ז', 'ח', 'ט', 'י', 'כ',
	'ל', 'מ', 'נ', 'ס', 'ע', 'פ', 'צ', 'ק', 'ר', 'ש', 'ת',
}

// Normalize folds a final-form glyph to its regular form. It is the
// identity for every other rune.
func Normalize(r rune) rune {
	if regular, ok := finalToRegular[r]; ok {
		return regular
	}
	return r
}

// NormalizeString folds every final-form glyph in s.
func NormalizeString(s string) string {
	return strings.Map(Normalize, s)
}

// BothForms returns every glyph that spells the given letter: the regular
// form plus the final form when one exists. Stored words keep whatever
// glyph naturally occurs, so a literal occurrence check must try each.
func BothForms(letter rune) []rune {
	regular := Normalize(letter)
	if final, ok := regularToFinal[regular]; ok {
		return []rune{regular, final}
	}
	return []rune{regular}
}

// IsHebrewLetter reports whether r is a letter of the alphabet in either
// form.
func IsHebrewLetter(r rune) bool {
	n := Normalize(r)
	for _, a := range Alphabet {
		if a == n {
			return true
		}
	}
	return false
}

// EqualsIgnoringFormAndSpaces compares two strings after discarding all
// whitespace and folding final-form glyphs everywhere except the last
// letter. In the middle of the text the two forms spell the same letter,
// but at the very end the final form is the correct spelling, so a solve
// that ends with the wrong form is not accepted. Letter identity and
// order matter throughout. Used to judge solve attempts against the
// stored word.
func EqualsIgnoringFormAndSpaces(a, b string) bool {
	return squash(a) == squash(b)
}

func squash(s string) string {
	var runes []rune
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		runes = append(runes, r)
	}
	for i := 0; i < len(runes)-1; i++ {
		runes[i] = Normalize(runes[i])
	}
	return string(runes)
}
