// internal/cw/codebook.go
// Package cw implements Morse code: text-to-audio synthesis and
// whole-recording audio-to-text decoding.
package cw

import (
	"fmt"
	"sort"
	"unicode"
)

// Unknown marks a symbol sequence with no codebook entry. Decoding never
// fails on an unknown sequence; it yields this sentinel instead.
const Unknown = '?'

// symbolsByChar is the authoritative codebook: ITU letters and digits mapped
// to their dot/dash sequences. Word spacing is a timing concern, not a
// codebook entry, and is handled by the encoder and decoder directly.
var symbolsByChar = map[rune]string{
	'A': ".-", 'B': "-...", 'C': "-.-.", 'D': "-..", 'E': ".",
	'F': "..-.", 'G': "--.", 'H': "....", 'I': "..", 'J': ".---",
	'K': "-.-", 'L': ".-..", 'M': "--", 'N': "-.", 'O': "---",
	'P': ".--.", 'Q': "--.-", 'R': ".-.", 'S': "...", 'T': "-",
	'U': "..-", 'V': "...-", 'W': ".--", 'X': "-..-", 'Y': "-.--",
	'Z': "--..",
	'0': "-----", '1': ".----", '2': "..---", '3': "...--", '4': "....-",
	'5': ".....", '6': "-....", '7': "--...", '8': "---..", '9': "----.",
}

// charBySymbols is the inverse mapping, derived from symbolsByChar and
// verified to be a bijection at init.
var charBySymbols = buildInverse()

func buildInverse() map[string]rune {
	inv := make(map[string]rune, len(symbolsByChar))
	for char, symbols := range symbolsByChar {
		if symbols == "" {
			panic(fmt.Sprintf("cw: empty symbol sequence for %q", char))
		}
		for _, s := range symbols {
			if s != '.' && s != '-' {
				panic(fmt.Sprintf("cw: invalid symbol %q in sequence for %q", s, char))
			}
		}
		if prev, dup := inv[symbols]; dup {
			panic(fmt.Sprintf("cw: symbol sequence %q maps to both %q and %q", symbols, prev, char))
		}
		inv[symbols] = char
	}
	return inv
}

// SymbolsFor returns the dot/dash sequence for a character, case-insensitive.
// The second return is false for characters outside the codebook.
func SymbolsFor(char rune) (string, bool) {
	symbols, ok := symbolsByChar[unicode.ToUpper(char)]
	return symbols, ok
}

// CharFor resolves a dot/dash sequence to its character, or Unknown if the
// sequence has no entry.
func CharFor(symbols string) rune {
	if char, ok := charBySymbols[symbols]; ok {
		return char
	}
	return Unknown
}

// Alphabet returns every character in the codebook in sorted order.
func Alphabet() []rune {
	chars := make([]rune, 0, len(symbolsByChar))
	for char := range symbolsByChar {
		chars = append(chars, char)
	}
	sort.Slice(chars, func(i, j int) bool { return chars[i] < chars[j] })
	return chars
}
