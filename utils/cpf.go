package utils

import "strings"

// NormalizeCPF formats an 11-digit CPF as XXX.XXX.XXX-XX, the format the
// ticketing backend stores. Inputs that don't carry exactly 11 digits come
// back unchanged so the backend can reject them with its own message.
func NormalizeCPF(cpf string) string {
	var digits strings.Builder
	for _, r := range cpf {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	if digits.Len() != 11 {
		return cpf
	}

	d := digits.String()
	return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11]
}
