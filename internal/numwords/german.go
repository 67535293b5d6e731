// Package numwords spells out integers as German cardinal numbers.
package numwords

import "errors"

// ErrUnsupported is returned for numbers outside [0, 9999].
var ErrUnsupported = errors.New("numwords: number out of supported range")

// digits is the bound form of each digit as it appears inside a composite
// ("einundzwanzig", "einhundert"). A standalone or final 1 is "eins".
var digits = [10]string{
	"null", "ein", "zwei", "drei", "vier", "fünf", "sechs", "sieben", "acht", "neun",
}

// fixed holds every number below 100 that is not built from parts.
var fixed = map[int]string{
	1:  "eins",
	10: "zehn",
	11: "elf",
	12: "zwölf",
	13: "dreizehn",
	14: "vierzehn",
	15: "fünfzehn",
	16: "sechzehn",
	17: "siebzehn",
	18: "achtzehn",
	19: "neunzehn",
	20: "zwanzig",
	30: "dreißig",
	40: "vierzig",
	50: "fünfzig",
	60: "sechzig",
	70: "siebzig",
	80: "achtzig",
	90: "neunzig",
}

// German returns the German spelling of n, e.g. 21 → "einundzwanzig",
// 1234 → "eintausendzweihundertvierunddreißig". It returns [ErrUnsupported]
// when n < 0 or n >= 10000.
func German(n int) (string, error) {
	if n < 0 || n >= 10000 {
		return "", ErrUnsupported
	}

	rest := twoDigits(n % 100)
	if n < 100 {
		return rest, nil
	}

	if n%100 == 0 {
		rest = ""
	}
	three := rest
	if h := (n / 100) % 10; h != 0 {
		three = digits[h] + "hundert" + rest
	}
	if n < 1000 {
		return three, nil
	}

	return digits[n/1000] + "tausend" + three, nil
}

// twoDigits spells 0..99 in final position.
func twoDigits(n int) string {
	// The fixed lookup comes first so a final 1 reads "eins".
	if w, ok := fixed[n]; ok {
		return w
	}
	if n < 10 {
		return digits[n]
	}
	return digits[n%10] + "und" + fixed[n/10*10]
}
