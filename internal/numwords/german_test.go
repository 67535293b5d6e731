package numwords_test

import (
	"errors"
	"testing"

	"github.com/MrWong99/diktat/internal/numwords"
)

func TestGerman_Lexicon(t *testing.T) {
	t.Parallel()

	want := []string{
		"null", "eins", "zwei", "drei", "vier", "fünf", "sechs", "sieben", "acht", "neun",
		"zehn", "elf", "zwölf", "dreizehn", "vierzehn", "fünfzehn", "sechzehn", "siebzehn",
		"achtzehn", "neunzehn", "zwanzig",
	}
	for n, w := range want {
		got, err := numwords.German(n)
		if err != nil {
			t.Fatalf("German(%d): unexpected error: %v", n, err)
		}
		if got != w {
			t.Errorf("German(%d) = %q, want %q", n, got, w)
		}
	}
}

func TestGerman_Composites(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    int
		want string
	}{
		{21, "einundzwanzig"},
		{30, "dreißig"},
		{31, "einunddreißig"},
		{42, "zweiundvierzig"},
		{55, "fünfundfünfzig"},
		{78, "achtundsiebzig"},
		{99, "neunundneunzig"},
		{100, "einhundert"},
		{101, "einhunderteins"},
		{111, "einhundertelf"},
		{123, "einhundertdreiundzwanzig"},
		{324, "dreihundertvierundzwanzig"},
		{345, "dreihundertfünfundvierzig"},
		{678, "sechshundertachtundsiebzig"},
		{999, "neunhundertneunundneunzig"},
		{1000, "eintausend"},
		{1001, "eintausendeins"},
		{1050, "eintausendfünfzig"},
		{1234, "eintausendzweihundertvierunddreißig"},
		{2000, "zweitausend"},
		{2100, "zweitausendeinhundert"},
		{5678, "fünftausendsechshundertachtundsiebzig"},
		{9876, "neuntausendachthundertsechsundsiebzig"},
		{9999, "neuntausendneunhundertneunundneunzig"},
	}
	for _, tt := range tests {
		got, err := numwords.German(tt.n)
		if err != nil {
			t.Fatalf("German(%d): unexpected error: %v", tt.n, err)
		}
		if got != tt.want {
			t.Errorf("German(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestGerman_OutOfRange(t *testing.T) {
	t.Parallel()

	for _, n := range []int{-1, -100, 10000, 43654} {
		got, err := numwords.German(n)
		if !errors.Is(err, numwords.ErrUnsupported) {
			t.Errorf("German(%d): err = %v, want ErrUnsupported", n, err)
		}
		if got != "" {
			t.Errorf("German(%d) = %q, want empty string", n, got)
		}
	}
}
