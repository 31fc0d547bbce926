package format

import (
	"strings"
	"testing"
)

func TestFormatCurrency(t *testing.T) {
	got := FormatCurrency(1234.5, "USD", "en-US")
	if !strings.Contains(got, "$") || !strings.HasSuffix(got, "1,234.50") {
		t.Errorf("expected dollar amount ending in 1,234.50, got %q", got)
	}

	if got := FormatCurrency(-5, "USD", "en-US"); !strings.HasPrefix(got, "-") {
		t.Errorf("expected negative sign prefix, got %q", got)
	}

	if got := FormatCurrency(10, "ZZZZ", "en-US"); got != "ZZZZ 10.00" {
		t.Errorf("expected fallback formatting, got %q", got)
	}

	if got := FormatCurrency(500, "JPY", "en-US"); strings.Contains(got, ".") {
		t.Errorf("expected yen without decimals, got %q", got)
	}

	got = FormatCurrency(1234.5, "EUR", "de-DE")
	if !strings.HasPrefix(got, "1.234,50") || !strings.HasSuffix(got, "€") {
		t.Errorf("expected German placement 1.234,50 €, got %q", got)
	}
	if got := FormatCurrency(1234.5, "EUR", "en-US"); !strings.HasPrefix(got, "€") {
		t.Errorf("expected symbol before amount in en-US, got %q", got)
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[float64]string{
		0:             "0",
		999:           "999",
		1000:          "1.0K",
		1500:          "1.5K",
		2500000:       "2.5M",
		3000000000:    "3.0B",
		4200000000000: "4.2T",
	}
	for in, want := range tests {
		if got := FormatNumber(in); got != want {
			t.Errorf("FormatNumber(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncateText(t *testing.T) {
	if got := TruncateText("short", 10); got != "short" {
		t.Errorf("expected untouched text, got %q", got)
	}
	if got := TruncateText("hello world again", 6); got != "hello..." {
		t.Errorf("expected trimmed truncation, got %q", got)
	}
	if got := TruncateText("héllo wörld", 5); got != "héllo..." {
		t.Errorf("expected rune aware truncation, got %q", got)
	}
}

func TestCapitalize(t *testing.T) {
	if got := Capitalize("hELLO"); got != "Hello" {
		t.Errorf("expected Hello, got %q", got)
	}
	if got := Capitalize(""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Hello World":          "hello-world",
		"  Arts & Culture  ":   "arts-culture",
		"Go_Meetup -- 2024!":   "go-meetup-2024",
		"---Already-Sluggy---": "already-sluggy",
		"Neon Nights: DJ Nova": "neon-nights-dj-nova",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
