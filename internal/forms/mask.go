package forms

import (
	"strings"

	"github.com/formloom/formloom/internal/store"
)

// Input masks. Each mask is a pure formatter keyed by field type,
// idempotent, and monotonic in input length up to the type's digit
// maximum; excess digits are truncated, never an error.

// MaskValue formats raw input for a masked field type. Unmasked types pass
// through unchanged.
func MaskValue(t store.FieldType, raw string) string {
	switch t {
	case store.FieldCPF:
		return MaskCPF(raw)
	case store.FieldCNPJ:
		return MaskCNPJ(raw)
	case store.FieldCEP:
		return MaskCEP(raw)
	case store.FieldPhone:
		return MaskPhone(raw)
	case store.FieldCurrency:
		return MaskCurrency(raw)
	}
	return raw
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

// MaskCPF formats a Brazilian individual tax id: 123.456.789-01.
func MaskCPF(raw string) string {
	d := truncate(onlyDigits(raw), 11)
	return joinGroups(d, []int{3, 3, 3, 2}, []string{".", ".", "-"})
}

// MaskCNPJ formats a Brazilian company tax id: 12.345.678/0001-99.
func MaskCNPJ(raw string) string {
	d := truncate(onlyDigits(raw), 14)
	return joinGroups(d, []int{2, 3, 3, 4, 2}, []string{".", ".", "/", "-"})
}

// MaskCEP formats a postal code: 12345-678.
func MaskCEP(raw string) string {
	d := truncate(onlyDigits(raw), 8)
	return joinGroups(d, []int{5, 3}, []string{"-"})
}

// MaskPhone formats a Brazilian phone number, landline or mobile:
// (11) 1234-5678 or (11) 91234-5678.
func MaskPhone(raw string) string {
	d := truncate(onlyDigits(raw), 11)
	if len(d) <= 2 {
		if d == "" {
			return ""
		}
		return "(" + d
	}

	area := d[:2]
	rest := d[2:]

	// Mobile numbers carry nine local digits.
	split := 4
	if len(rest) > 8 {
		split = 5
	}
	if len(rest) <= split {
		return "(" + area + ") " + rest
	}
	return "(" + area + ") " + rest[:split] + "-" + rest[split:]
}

// MaskCurrency formats the raw digit string as a cent-denominated integer:
// "123456" -> "R$ 1.234,56". Formatting noise in the input never changes
// the result, which makes the mask idempotent.
func MaskCurrency(raw string) string {
	d := strings.TrimLeft(onlyDigits(raw), "0")
	if d == "" {
		return "R$ 0,00"
	}
	for len(d) < 3 {
		d = "0" + d
	}

	cents := d[len(d)-2:]
	whole := d[:len(d)-2]

	var groups []string
	for len(whole) > 3 {
		groups = append([]string{whole[len(whole)-3:]}, groups...)
		whole = whole[:len(whole)-3]
	}
	groups = append([]string{whole}, groups...)

	return "R$ " + strings.Join(groups, ".") + "," + cents
}

// joinGroups splices separators between fixed digit groups, emitting each
// separator only once its group is complete enough to start.
func joinGroups(digits string, groups []int, seps []string) string {
	var b strings.Builder
	pos := 0
	for i, size := range groups {
		if pos >= len(digits) {
			break
		}
		if i > 0 {
			b.WriteString(seps[i-1])
		}
		end := pos + size
		if end > len(digits) {
			end = len(digits)
		}
		b.WriteString(digits[pos:end])
		pos = end
	}
	return b.String()
}
