package forms_test

import (
	"testing"

	"github.com/formloom/formloom/internal/forms"
	"github.com/formloom/formloom/internal/store"
)

func TestMaskCPF(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"12345678901", "123.456.789-01"},
		{"123.456.789-01", "123.456.789-01"}, // idempotent
		{"123456789012345", "123.456.789-01"}, // truncates
		{"123", "123"},
		{"1234", "123.4"},
		{"", ""},
		{"abc", ""},
	}
	for _, c := range cases {
		if got := forms.MaskCPF(c.in); got != c.want {
			t.Errorf("MaskCPF(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMaskCNPJ(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"12345678000199", "12.345.678/0001-99"},
		{"12.345.678/0001-99", "12.345.678/0001-99"},
		{"123456", "12.345.6"},
	}
	for _, c := range cases {
		if got := forms.MaskCNPJ(c.in); got != c.want {
			t.Errorf("MaskCNPJ(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMaskCEP(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"01310100", "01310-100"},
		{"01310-100", "01310-100"},
		{"013", "013"},
	}
	for _, c := range cases {
		if got := forms.MaskCEP(c.in); got != c.want {
			t.Errorf("MaskCEP(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMaskPhone(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"1112345678", "(11) 1234-5678"},   // landline
		{"11912345678", "(11) 91234-5678"}, // mobile
		{"(11) 91234-5678", "(11) 91234-5678"},
		{"11", "(11"},
		{"119", "(11) 9"},
		{"", ""},
	}
	for _, c := range cases {
		if got := forms.MaskPhone(c.in); got != c.want {
			t.Errorf("MaskPhone(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMaskCurrency(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"123456", "R$ 1.234,56"},
		{"R$ 1.234,56", "R$ 1.234,56"},
		{"1", "R$ 0,01"},
		{"12", "R$ 0,12"},
		{"100", "R$ 1,00"},
		{"000123", "R$ 1,23"},
		{"123456789", "R$ 1.234.567,89"},
		{"", "R$ 0,00"},
		{"0", "R$ 0,00"},
	}
	for _, c := range cases {
		if got := forms.MaskCurrency(c.in); got != c.want {
			t.Errorf("MaskCurrency(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMaskValue_Dispatch(t *testing.T) {
	if got := forms.MaskValue(store.FieldCPF, "12345678901"); got != "123.456.789-01" {
		t.Errorf("cpf dispatch broken: %q", got)
	}
	if got := forms.MaskValue(store.FieldText, "  anything  "); got != "  anything  " {
		t.Errorf("unmasked types must pass through unchanged: %q", got)
	}
}

func TestMasks_Idempotent(t *testing.T) {
	inputs := []struct {
		t   store.FieldType
		raw string
	}{
		{store.FieldCPF, "98765432100"},
		{store.FieldCNPJ, "11222333000181"},
		{store.FieldCEP, "22041080"},
		{store.FieldPhone, "21998765432"},
		{store.FieldCurrency, "987654321"},
	}
	for _, in := range inputs {
		once := forms.MaskValue(in.t, in.raw)
		twice := forms.MaskValue(in.t, once)
		if once != twice {
			t.Errorf("%s mask not idempotent: %q -> %q -> %q", in.t, in.raw, once, twice)
		}
	}
}
