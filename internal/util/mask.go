package util

import "strings"

// MaskEmail deja la primera letra del usuario y del dominio: "ana@example.com" → "a…@e….com".
// Para logs; nunca loguear el email completo.
func MaskEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	at := strings.IndexByte(s, '@')
	if at <= 0 {
		return maskShort(s)
	}
	local, domain := s[:at], s[at+1:]
	if len(local) > 1 {
		local = local[:1] + "…"
	}
	labels := strings.Split(domain, ".")
	if len(labels[0]) > 1 {
		labels[0] = labels[0][:1] + "…"
	}
	return local + "@" + strings.Join(labels, ".")
}

// MaskToken muestra los últimos 6 caracteres de un bearer/refresh token.
func MaskToken(tok string) string {
	tok = strings.TrimSpace(tok)
	if len(tok) <= 12 {
		return maskShort(tok)
	}
	return "…" + tok[len(tok)-6:]
}

func maskShort(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 3:
		return "***"
	default:
		return s[:1] + "…" + s[len(s)-1:]
	}
}
