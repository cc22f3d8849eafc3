package providers

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

var (
	errRomanRange   = errors.New("requires a number between 1 and 3999")
	errRomanNumeral = errors.New("requires a valid roman numeral")
)

var romanValues = []struct {
	value   int
	numeral string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

// Romans converts between arabic numbers and roman numerals in the classic
// 1..3999 range.
type Romans struct{}

// NewRomans creates the romans provider.
func NewRomans() *Romans { return &Romans{} }

// Name implements Provider.
func (r *Romans) Name() string { return "romans" }

// Invoke implements Provider.
func (r *Romans) Invoke(_ context.Context, p Params) ([]Outcome, bool) {
	var outcomes []Outcome

	if p.Encode != "" {
		var o Outcome
		o.Set("input", p.Encode)
		if numeral, err := romanize(p.Encode); err != nil {
			o.Set("result", err.Error())
		} else {
			o.Set("result", numeral)
		}
		outcomes = append(outcomes, o)
	}
	if p.Decode != "" {
		var o Outcome
		o.Set("input", p.Decode)
		if n, err := deromanize(p.Decode); err != nil {
			o.Set("result", err.Error())
		} else {
			o.Set("result", strconv.Itoa(n))
		}
		outcomes = append(outcomes, o)
	}

	return outcomes, len(outcomes) > 0
}

// romanize converts a decimal string to a roman numeral.
func romanize(s string) (string, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 3999 {
		return "", errRomanRange
	}

	var sb strings.Builder
	for _, rv := range romanValues {
		for n >= rv.value {
			sb.WriteString(rv.numeral)
			n -= rv.value
		}
	}
	return sb.String(), nil
}

// deromanize converts a roman numeral to its decimal value. The numeral
// must be canonical: re-encoding the parsed value must reproduce the input.
func deromanize(s string) (int, error) {
	numeral := strings.ToUpper(strings.TrimSpace(s))
	if numeral == "" {
		return 0, errRomanNumeral
	}

	values := map[byte]int{'I': 1, 'V': 5, 'X': 10, 'L': 50, 'C': 100, 'D': 500, 'M': 1000}

	total := 0
	for i := 0; i < len(numeral); i++ {
		v, ok := values[numeral[i]]
		if !ok {
			return 0, errRomanNumeral
		}
		if i+1 < len(numeral) && values[numeral[i+1]] > v {
			total -= v
		} else {
			total += v
		}
	}

	// Reject non-canonical spellings like "IIII" or "VX".
	canonical, err := romanize(strconv.Itoa(total))
	if err != nil || canonical != numeral {
		return 0, errRomanNumeral
	}
	return total, nil
}
