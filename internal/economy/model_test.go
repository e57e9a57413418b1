package economy

import "testing"

func TestValidateTicker(t *testing.T) {
	valid := []string{"QRM", "NOVA5", "TK421"}
	for _, s := range valid {
		if err := ValidateTicker(s); err != nil {
			t.Fatalf("expected ticker %q to be valid: %v", s, err)
		}
	}

	invalid := []string{"qrm", "AB", "TOOLONG", "A-BC1", ""}
	for _, s := range invalid {
		if err := ValidateTicker(s); err == nil {
			t.Fatalf("expected ticker %q to fail", s)
		}
	}
}

func TestParseOwnerType(t *testing.T) {
	got, err := ParseOwnerType("  Player ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != OwnerPlayer {
		t.Fatalf("got %q want %q", got, OwnerPlayer)
	}

	if _, err := ParseOwnerType("wizard"); err == nil {
		t.Fatalf("expected unknown owner type to fail")
	}
}

func TestOwnerString(t *testing.T) {
	o := Owner{Type: OwnerCorp, ID: 42}
	if got := o.String(); got != "corp:42" {
		t.Fatalf("got %q", got)
	}
}

func TestAlertThreshold(t *testing.T) {
	cfg := Config{
		AlertThresholds:       map[OwnerType]int64{OwnerGov: 0, OwnerCorp: 5_000_000},
		DefaultAlertThreshold: 1_000_000,
	}
	if got := cfg.AlertThreshold(OwnerCorp); got != 5_000_000 {
		t.Fatalf("corp threshold got %d", got)
	}
	if got := cfg.AlertThreshold(OwnerPlayer); got != 1_000_000 {
		t.Fatalf("default threshold got %d", got)
	}
	// Explicit zero disables alerting for that type.
	if got := cfg.AlertThreshold(OwnerGov); got != 0 {
		t.Fatalf("gov threshold got %d", got)
	}
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.MaxTxAttempts <= 0 {
		t.Fatalf("expected positive retry budget, got %d", cfg.MaxTxAttempts)
	}
	if cfg.RetryBackoff <= 0 {
		t.Fatalf("expected positive backoff, got %v", cfg.RetryBackoff)
	}
}

func TestMulCredits(t *testing.T) {
	got, err := mulCredits(1_000, 250)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 250_000 {
		t.Fatalf("got %d want 250000", got)
	}

	if _, err := mulCredits(1<<62, 4); err == nil {
		t.Fatalf("expected overflow to fail")
	}
}
