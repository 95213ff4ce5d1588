package metrics

import "testing"

func TestPercent(t *testing.T) {
	tests := []struct {
		num, other uint64
		want       string
	}{
		{0, 0, "0.00"},
		{1, 0, "100.00"},
		{0, 5, "0.00"},
		{1, 2, "33.33"},
		{2, 1, "66.66"},
		{1, 7, "12.50"},
		{999, 1, "99.90"},
	}
	for _, tt := range tests {
		if got := Percent(tt.num, tt.other); got != tt.want {
			t.Errorf("Percent(%d,%d) = %q, want %q", tt.num, tt.other, got, tt.want)
		}
	}
}

func TestAverageHours(t *testing.T) {
	if got := averageHours(0, 0); got != "0.00" {
		t.Fatalf("zero sessions: %q", got)
	}
	if got := averageHours(5400, 1); got != "1.50" {
		t.Fatalf("90 minutes: %q", got)
	}
	if got := averageHours(100, 3); got != "0.00" {
		t.Fatalf("short sessions: %q", got)
	}
}

func TestDeriveRates_AllZero(t *testing.T) {
	r := deriveRates(Counters{})
	for name, v := range map[string]string{
		"login":        r.LoginSuccessRate,
		"registration": r.RegistrationSuccessRate,
		"reset":        r.PasswordResetSuccessRate,
		"email":        r.EmailVerificationRate,
		"2fa":          r.TwoFactorSuccessRate,
		"migration":    r.MigrationSuccessRate,
	} {
		if v != "0.00" {
			t.Errorf("%s rate = %q, want 0.00", name, v)
		}
	}
}
