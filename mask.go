package shield

import (
	"strings"
	"unicode"
)

// Masker applies content-aware masking for mask-action rules. The masked
// form replaces the field value and is never reversed.
type Masker interface {
	// Mask applies masking to the value.
	Mask(value string) string
}

// MaskFunc adapts a plain function to the Masker interface.
type MaskFunc func(string) string

// Mask calls the function.
func (f MaskFunc) Mask(value string) string { return f(value) }

// SSNMasker returns a masker for Social Security Numbers.
// Preserves the last 4 digits, masks everything else.
func SSNMasker() Masker {
	return MaskFunc(func(value string) string {
		digits := extractDigits(value)
		if len(digits) < 4 {
			return strings.Repeat("*", len(value))
		}
		return "***-**-" + digits[len(digits)-4:]
	})
}

// EmailMasker returns a masker for email addresses.
// Preserves first character of the local part and the full domain.
func EmailMasker() Masker {
	return MaskFunc(func(value string) string {
		atIdx := strings.LastIndex(value, "@")
		if atIdx < 1 {
			return strings.Repeat("*", len(value))
		}
		return string(value[0]) + "***" + value[atIdx:]
	})
}

// PhoneMasker returns a masker for phone numbers.
// Preserves the last 4 digits, masks everything else.
func PhoneMasker() Masker {
	return MaskFunc(func(value string) string {
		digits := extractDigits(value)
		if len(digits) < 4 {
			return strings.Repeat("*", len(value))
		}
		return "***-***-" + digits[len(digits)-4:]
	})
}

// CardMasker returns a masker for payment card numbers.
// Preserves the last 4 digits, masks everything else.
func CardMasker() Masker {
	return MaskFunc(func(value string) string {
		digits := extractDigits(value)
		if len(digits) < 4 {
			return strings.Repeat("*", len(value))
		}
		return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
	})
}

// NameMasker returns a masker for personal names.
// Preserves the first letter of each word, masks the rest.
func NameMasker() Masker {
	return MaskFunc(func(value string) string {
		words := strings.Fields(value)
		masked := make([]string, len(words))
		for i, word := range words {
			runes := []rune(word)
			masked[i] = string(runes[0]) + strings.Repeat("*", len(runes)-1)
		}
		return strings.Join(masked, " ")
	})
}

// extractDigits returns only the digit characters from a string.
func extractDigits(s string) string {
	var digits strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	return digits.String()
}

// builtinMaskers returns the default masker registry.
func builtinMaskers() map[MaskType]Masker {
	return map[MaskType]Masker{
		MaskSSN:   SSNMasker(),
		MaskEmail: EmailMasker(),
		MaskPhone: PhoneMasker(),
		MaskCard:  CardMasker(),
		MaskName:  NameMasker(),
	}
}
