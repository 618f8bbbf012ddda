package gateway

import (
	"testing"
)

func TestOperationMode(t *testing.T) {
	tests := []struct {
		configured string
		want       Mode
	}{
		{"live", ModeProduction},
		{"test", ModeStaging},
		{"", ModeStaging},
		{"staging", ModeStaging},
	}

	for _, tt := range tests {
		if got := OperationMode(tt.configured); got != tt.want {
			t.Errorf("OperationMode(%q): expected %s, got %s", tt.configured, tt.want, got)
		}
	}
}

func TestCurrencyIndex(t *testing.T) {
	tests := []struct {
		currency string
		index    int
		ok       bool
	}{
		{"HKD", 1, true},
		{"RMB", 2, true},
		{"USD", 0, false},
		{"hkd", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		index, ok := CurrencyIndex(tt.currency)
		if index != tt.index || ok != tt.ok {
			t.Errorf("CurrencyIndex(%q): expected (%d, %v), got (%d, %v)",
				tt.currency, tt.index, tt.ok, index, ok)
		}
	}
}

func TestCentsToDecimalString(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{15000, "150.00"},
		{105, "1.05"},
		{1, "0.01"},
		{0, "0.00"},
	}

	for _, tt := range tests {
		if got := centsToDecimalString(tt.cents); got != tt.want {
			t.Errorf("centsToDecimalString(%d): expected %q, got %q", tt.cents, tt.want, got)
		}
	}
}

func TestFactory_UnknownGateway(t *testing.T) {
	f := NewFactory()
	if _, _, err := f.Get("stripe"); err == nil {
		t.Error("expected error for unregistered gateway")
	}
	if _, _, err := f.Get("yedpay"); err != nil {
		t.Errorf("expected default mock gateway to be registered: %v", err)
	}
}
