package util

import (
	"fmt"
	"net/url"
	"strings"
	"tp_portal_backend/internal/model"
)

const (
	regYearDigits     = 4
	regSerialMinDigit = 5
	regSerialMaxDigit = 9
)

// NormalizeRegNumber turns any accepted spelling of a registration number
// ("1001/23456", "EBSU/1001/23456", "100123456") into the stored form
// "EBSU/1001/23456".
func NormalizeRegNumber(prefix, input string) (string, error) {
	s := strings.TrimSpace(input)
	s = strings.TrimPrefix(strings.ToUpper(s), strings.ToUpper(prefix))

	digits := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] >= '0' && s[i] <= '9':
			digits = append(digits, s[i])
		case s[i] == '/' || s[i] == ' ' || s[i] == '-':
		default:
			return "", ErrRegNumberFormat
		}
	}

	n := len(digits)
	if n < regYearDigits+regSerialMinDigit || n > regYearDigits+regSerialMaxDigit {
		return "", ErrRegNumberFormat
	}
	return prefix + string(digits[:regYearDigits]) + "/" + string(digits[regYearDigits:]), nil
}

// IsDigits reports whether s is non-empty and made only of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// CodeLengthError returns the length failure for a code-gated role.
func CodeLengthError(codeType model.CodeType) error {
	name := "Supervisor"
	if codeType == model.CodeCoordinator {
		name = "Coordinator"
	}
	return WithDetail(ErrCodeLength, fmt.Sprintf("%s ID must be %d digits", name, codeType.Length()))
}

// WhatsAppLink builds the wa.me deep link used to ask the admin for access.
func WhatsAppLink(phone string, role model.UserRole, regNumber string) string {
	var message string
	switch role {
	case model.Student:
		if regNumber != "" {
			message = "I want to register my registration number\n\n" + regNumber
		}
	case model.Coordinator:
		message = "I need a coordinator ID for my coordinator role"
	case model.Supervisor:
		message = "I need a supervisor ID for my supervisor role"
	}
	return "https://wa.me/" + phone + "?text=" + encodeURIComponent(message)
}

// uriComponentUnescapes turns url.QueryEscape output into JavaScript's
// encodeURIComponent output: spaces are %20 and !'()* stay literal.
var uriComponentUnescapes = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func encodeURIComponent(s string) string {
	return uriComponentUnescapes.Replace(url.QueryEscape(s))
}
