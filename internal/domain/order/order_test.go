package order

import "testing"

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusRefunded, false},
		{StatusProcessing, StatusPending, true},
		{StatusProcessing, StatusPaid, true},
		{StatusPaid, StatusRefunded, true},
		{StatusPaid, StatusPending, false},
		{StatusFailed, StatusPending, true},
		{StatusRefunded, StatusPending, false},
		{StatusRefunded, StatusPaid, false},
	}

	for _, tt := range tests {
		o := &Order{Status: tt.from}
		if got := o.CanTransitionTo(tt.to); got != tt.allowed {
			t.Errorf("%s -> %s: expected %v, got %v", tt.from, tt.to, tt.allowed, got)
		}
	}
}

func TestSettleable(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPending, true},
		{StatusProcessing, true},
		{StatusPaid, false},
		{StatusFailed, false},
		{StatusRefunded, false},
	}

	for _, tt := range tests {
		o := &Order{Status: tt.status}
		if got := o.Settleable(); got != tt.want {
			t.Errorf("%s: expected settleable=%v, got %v", tt.status, tt.want, got)
		}
	}
}

func TestAmountString(t *testing.T) {
	tests := []struct {
		cents    int64
		currency string
		want     string
	}{
		{15000, "HKD", "150.00 HKD"},
		{105, "RMB", "1.05 RMB"},
		{0, "HKD", "0.00 HKD"},
		{-2550, "HKD", "-25.50 HKD"},
	}

	for _, tt := range tests {
		a := Amount{ValueCents: tt.cents, Currency: tt.currency}
		if got := a.String(); got != tt.want {
			t.Errorf("%d %s: expected %q, got %q", tt.cents, tt.currency, tt.want, got)
		}
	}
}
