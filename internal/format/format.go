// Package format renders prices, counters and free text for API responses.
package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	DefaultCurrency = "USD"
	DefaultLocale   = "en-US"
)

var (
	slugStripRegex = regexp.MustCompile(`[^\w\s-]`)
	slugSepRegex   = regexp.MustCompile(`[\s_-]+`)

	numberUnits = []string{"K", "M", "B", "T"}

	// Languages that write the currency symbol after the amount.
	symbolAfter = baseSet("de", "fr", "es", "it", "pl", "cs", "sk", "sv", "da", "fi", "nb", "no", "ru", "uk", "hu", "ro", "bg", "hr", "sl", "lt", "lv", "et", "el")
)

func baseSet(codes ...string) map[language.Base]bool {
	set := make(map[language.Base]bool, len(codes))
	for _, c := range codes {
		set[language.MustParseBase(c)] = true
	}
	return set
}

// FormatCurrency renders amount with the currency symbol and the digit
// grouping of locale, e.g. "$1,234.50" for USD in en-US and "1.234,50 €" for
// EUR in de-DE. Unknown currency codes fall back to "XYZ 12.00".
func FormatCurrency(amount float64, code, locale string) string {
	if code == "" {
		code = DefaultCurrency
	}
	if locale == "" {
		locale = DefaultLocale
	}

	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%s %.2f", strings.ToUpper(code), amount)
	}

	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}

	scale, _ := currency.Standard.Rounding(unit)
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	p := message.NewPrinter(tag)
	symbol := p.Sprint(currency.Symbol(unit))
	number := p.Sprintf("%.*f", scale, amount)
	if base, _ := tag.Base(); symbolAfter[base] {
		return sign + number + "\u00a0" + symbol
	}
	return sign + symbol + number
}

// FormatNumber abbreviates large counters: 1500 -> "1.5K", 2000000 -> "2.0M".
func FormatNumber(num float64) string {
	if num < 1000 {
		return strconv.FormatFloat(num, 'f', -1, 64)
	}

	unitIndex := -1
	scaled := num
	for scaled >= 1000 && unitIndex < len(numberUnits)-1 {
		scaled /= 1000
		unitIndex++
	}

	return fmt.Sprintf("%.1f%s", scaled, numberUnits[unitIndex])
}

func TruncateText(text string, maxLength int) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	return strings.TrimSpace(string(runes[:maxLength])) + "..."
}

func Capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// Slugify turns a title into a URL friendly identifier.
func Slugify(text string) string {
	s := strings.TrimSpace(strings.ToLower(text))
	s = slugStripRegex.ReplaceAllString(s, "")
	s = slugSepRegex.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
