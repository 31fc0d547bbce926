// Package validation holds input checks shared by the HTTP handlers.
package validation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"
)

var (
	global *validator.Validate

	emailRegex        = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRegex        = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)
	phoneStripRegex   = regexp.MustCompile(`[\s\-()]`)
	upperRegex        = regexp.MustCompile(`[A-Z]`)
	lowerRegex        = regexp.MustCompile(`[a-z]`)
	digitRegex        = regexp.MustCompile(`\d`)
	specialCharsRegex = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)

	sanitizer = strings.NewReplacer(
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#x27;",
		"/", "&#x2F;",
	)
)

var ErrInvalidPhone = errors.New("invalid phone number")

func init() {
	global = New()
}

func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("future", validateFutureDate)
	return v
}

func validateFutureDate(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	return ok && t.After(time.Now())
}

// Validate runs struct tag validation and reports the first failure in a
// human readable form.
func Validate(ctx context.Context, s any) error {
	err := global.StructCtx(ctx, s)
	if err == nil {
		return nil
	}
	var vErrors validator.ValidationErrors
	if !errors.As(err, &vErrors) || len(vErrors) == 0 {
		return err
	}

	ve := vErrors[0]
	var msg string
	switch ve.Tag() {
	case "required":
		msg = "is required"
	case "max":
		msg = "exceeds maximum length"
	case "min":
		msg = "is below minimum length"
	case "lt", "lte":
		msg = "exceeds maximum value"
	case "gt", "gte":
		msg = "is below minimum value"
	case "future":
		msg = "must be in the future"
	case "url":
		msg = "must be a valid URL"
	case "iso4217":
		msg = "must be an ISO 4217 currency code"
	case "hexcolor":
		msg = "must be a hex color"
	case "oneof":
		msg = "must be one of: " + ve.Param()
	default:
		msg = "is invalid"
	}
	return fmt.Errorf("%s %s", ve.Field(), msg)
}

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

func IsValidURL(raw string) bool {
	return global.Var(raw, "required,url") == nil
}

// IsValidPhone is a loose shape check; NormalizePhone does the real parsing.
func IsValidPhone(phone string) bool {
	return phoneRegex.MatchString(phoneStripRegex.ReplaceAllString(phone, ""))
}

// NormalizePhone parses phone for the given default region and returns it in
// E.164 form.
func NormalizePhone(phone, region string) (string, error) {
	num, err := phonenumbers.Parse(phone, strings.ToUpper(region))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPhone, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// SanitizeInput escapes the characters that matter for HTML injection.
func SanitizeInput(input string) string {
	return sanitizer.Replace(input)
}

type PasswordStrength string

const (
	StrengthWeak   PasswordStrength = "weak"
	StrengthMedium PasswordStrength = "medium"
	StrengthStrong PasswordStrength = "strong"
)

type PasswordRequirements struct {
	Length    bool `json:"length"`
	Uppercase bool `json:"uppercase"`
	Lowercase bool `json:"lowercase"`
	Number    bool `json:"number"`
	Special   bool `json:"special"`
}

func (r PasswordRequirements) met() int {
	n := 0
	for _, ok := range []bool{r.Length, r.Uppercase, r.Lowercase, r.Number, r.Special} {
		if ok {
			n++
		}
	}
	return n
}

// Missing lists the unmet requirements by name.
func (r PasswordRequirements) Missing() []string {
	var out []string
	if !r.Length {
		out = append(out, "at least 8 characters")
	}
	if !r.Uppercase {
		out = append(out, "an uppercase letter")
	}
	if !r.Lowercase {
		out = append(out, "a lowercase letter")
	}
	if !r.Number {
		out = append(out, "a number")
	}
	if !r.Special {
		out = append(out, "a special character")
	}
	return out
}

type PasswordResult struct {
	IsValid      bool                 `json:"isValid"`
	Strength     PasswordStrength     `json:"strength"`
	Requirements PasswordRequirements `json:"requirements"`
}

// ValidatePassword requires the length rule plus at least three of the five
// requirements overall.
func ValidatePassword(password string) PasswordResult {
	req := PasswordRequirements{
		Length:    len([]rune(password)) >= 8,
		Uppercase: upperRegex.MatchString(password),
		Lowercase: lowerRegex.MatchString(password),
		Number:    digitRegex.MatchString(password),
		Special:   specialCharsRegex.MatchString(password),
	}

	met := req.met()
	strength := StrengthWeak
	switch {
	case met >= 4:
		strength = StrengthStrong
	case met >= 3:
		strength = StrengthMedium
	}

	return PasswordResult{
		IsValid:      req.Length && met >= 3,
		Strength:     strength,
		Requirements: req,
	}
}
