package util

import "strings"

// ConditionalString returns valueIfTrue if condition is true, otherwise valueIfFalse
func ConditionalString(condition bool, valueIfTrue, valueIfFalse string) string {
	if condition {
		return valueIfTrue
	}
	return valueIfFalse
}

// NormalizeCode trims surrounding whitespace and upper-cases a business code
// (grupo/regiao/empresa codigo) before it is validated or stored.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// OnlyDigits strips every non-digit rune; used for CEP, CNPJ and CPF values
// before lookups and storage.
func OnlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
