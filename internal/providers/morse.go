package providers

import (
	"context"
	"fmt"
	"strings"
)

// morseTable is the ITU International Morse Code alphabet.
var morseTable = map[rune]string{
	'a': ".-", 'b': "-...", 'c': "-.-.", 'd': "-..", 'e': ".", 'f': "..-.",
	'g': "--.", 'h': "....", 'i': "..", 'j': ".---", 'k': "-.-", 'l': ".-..",
	'm': "--", 'n': "-.", 'o': "---", 'p': ".--.", 'q': "--.-", 'r': ".-.",
	's': "...", 't': "-", 'u': "..-", 'v': "...-", 'w': ".--", 'x': "-..-",
	'y': "-.--", 'z': "--..",
	'0': "-----", '1': ".----", '2': "..---", '3': "...--", '4': "....-",
	'5': ".....", '6': "-....", '7': "--...", '8': "---..", '9': "----.",
	'.': ".-.-.-", ',': "--..--", '?': "..--..", '\'': ".----.", '!': "-.-.--",
	'/': "-..-.", '(': "-.--.", ')': "-.--.-", '&': ".-...", ':': "---...",
	';': "-.-.-.", '=': "-...-", '+': ".-.-.", '-': "-....-", '_': "..--.-",
	'"': ".-..-.", '$': "...-..-", '@': ".--.-.",
}

// morseReverse maps code sequences back to characters. Built once at init.
var morseReverse = func() map[string]rune {
	m := make(map[string]rune, len(morseTable))
	for r, code := range morseTable {
		m[code] = r
	}
	return m
}()

// Morse translates text to and from ITU Morse code. Letters are separated
// by single spaces and words by a slash.
type Morse struct{}

// NewMorse creates the morse provider.
func NewMorse() *Morse { return &Morse{} }

// Name implements Provider.
func (m *Morse) Name() string { return "morse" }

// Invoke implements Provider. en encodes, de decodes; both may be present
// and each contributes its own outcome.
func (m *Morse) Invoke(_ context.Context, p Params) ([]Outcome, bool) {
	var outcomes []Outcome

	if p.Encode != "" {
		var o Outcome
		o.Set("input", p.Encode)
		if encoded, err := morseEncode(p.Encode); err != nil {
			o.Set("result", err.Error())
		} else {
			o.Set("result", encoded)
		}
		outcomes = append(outcomes, o)
	}
	if p.Decode != "" {
		var o Outcome
		o.Set("input", p.Decode)
		if decoded, err := morseDecode(p.Decode); err != nil {
			o.Set("result", err.Error())
		} else {
			o.Set("result", decoded)
		}
		outcomes = append(outcomes, o)
	}

	return outcomes, len(outcomes) > 0
}

// morseEncode translates text to Morse code.
func morseEncode(text string) (string, error) {
	var codes []string
	for _, r := range strings.ToLower(text) {
		if r == ' ' {
			codes = append(codes, "/")
			continue
		}
		code, ok := morseTable[r]
		if !ok {
			return "", fmt.Errorf("no morse translation for %q", string(r))
		}
		codes = append(codes, code)
	}
	return strings.Join(codes, " "), nil
}

// morseDecode translates Morse code back to text. Input letters are
// separated by spaces; "/" separates words.
func morseDecode(code string) (string, error) {
	var sb strings.Builder
	for _, token := range strings.Fields(code) {
		if token == "/" {
			sb.WriteByte(' ')
			continue
		}
		r, ok := morseReverse[token]
		if !ok {
			return "", fmt.Errorf("no morse translation for %q", token)
		}
		sb.WriteRune(r)
	}
	return sb.String(), nil
}
