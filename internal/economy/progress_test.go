package economy

import "testing"

func TestCommissionRank(t *testing.T) {
	tests := []struct {
		experience int64
		want       int
	}{
		{experience: 0, want: 0},
		{experience: 999, want: 0},
		{experience: 1_000, want: 1},
		{experience: 20_000, want: 3},
		{experience: 4_999_999, want: 7},
		{experience: 5_000_000, want: 8},
		{experience: 999_999_999, want: 8},
	}
	for _, tc := range tests {
		if got := commissionRank(tc.experience); got != tc.want {
			t.Fatalf("experience=%d got=%d want=%d", tc.experience, got, tc.want)
		}
	}
}

func TestCommissionFor(t *testing.T) {
	// Rank 3 base plus alignment bonus.
	if got := commissionFor(1_000, 20_000); got != 3*commissionPerRank+100 {
		t.Fatalf("got %d", got)
	}
	// Negative alignment erodes the payout but never below zero.
	if got := commissionFor(-100_000, 0); got != 0 {
		t.Fatalf("expected floor at zero, got %d", got)
	}
}
