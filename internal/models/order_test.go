package models

import "testing"

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{"new to confirmed", StatusNouvelle, StatusConfirmee, true},
		{"new to pending", StatusNouvelle, StatusEnAttente, true},
		{"new to delivered skips shipping", StatusNouvelle, StatusLivree, false},
		{"pending to confirmed", StatusEnAttente, StatusConfirmee, true},
		{"confirmed to sent", StatusConfirmee, StatusEnvoyee, true},
		{"confirmed to delivered skips shipping", StatusConfirmee, StatusLivree, false},
		{"sent to delivered", StatusEnvoyee, StatusLivree, true},
		{"sent to returned", StatusEnvoyee, StatusRetournee, true},
		{"sent to unreachable", StatusEnvoyee, StatusInjoignable, true},
		{"unreachable back to confirmed", StatusInjoignable, StatusConfirmee, true},
		{"unreachable back to sent", StatusInjoignable, StatusEnvoyee, true},
		{"delivered is terminal", StatusLivree, StatusRetournee, false},
		{"cancelled is terminal", StatusAnnulee, StatusConfirmee, false},
		{"returned is terminal", StatusRetournee, StatusEnvoyee, false},
		{"self transition", StatusConfirmee, StatusConfirmee, false},
		{"unknown status", OrderStatus("BOGUS"), StatusConfirmee, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	terminal := []OrderStatus{StatusLivree, StatusAnnulee, StatusRetournee}
	for _, status := range terminal {
		if !IsTerminal(status) {
			t.Errorf("expected %s to be terminal", status)
		}
	}

	open := []OrderStatus{StatusNouvelle, StatusEnAttente, StatusConfirmee, StatusEnvoyee, StatusInjoignable}
	for _, status := range open {
		if IsTerminal(status) {
			t.Errorf("expected %s not to be terminal", status)
		}
	}
}

func TestAllowedPredecessors(t *testing.T) {
	t.Parallel()

	preds := AllowedPredecessors(StatusEnvoyee)
	want := map[OrderStatus]bool{StatusConfirmee: true, StatusInjoignable: true}
	if len(preds) != len(want) {
		t.Fatalf("unexpected predecessors for ENVOYEE: %v", preds)
	}
	for _, from := range preds {
		if !want[from] {
			t.Fatalf("unexpected predecessor %s for ENVOYEE", from)
		}
	}
}

func TestIsValidStatus(t *testing.T) {
	t.Parallel()

	if !IsValidStatus(StatusInjoignable) {
		t.Fatalf("expected INJOIGNABLE to be valid")
	}
	if IsValidStatus(OrderStatus("SHIPPED")) {
		t.Fatalf("expected carrier-native status to be invalid")
	}
}
