package economy

import (
	"testing"
	"time"
)

func TestHistoryQueryVariants(t *testing.T) {
	owner := Owner{Type: OwnerPlayer, ID: 7}

	query, args := historyQuery(owner, TxFilter{})
	if query != qHistory {
		t.Fatalf("expected unfiltered variant")
	}
	if len(args) != 5 {
		t.Fatalf("unfiltered args got %d want 5", len(args))
	}

	query, args = historyQuery(owner, TxFilter{TxType: "transfer"})
	if query != qHistoryByType {
		t.Fatalf("expected type variant")
	}
	if args[3] != "TRANSFER" {
		t.Fatalf("tx type not normalized: %v", args[3])
	}

	query, _ = historyQuery(owner, TxFilter{Direction: "debit"})
	if query != qHistoryByDirection {
		t.Fatalf("expected direction variant")
	}

	query, args = historyQuery(owner, TxFilter{TxType: TxTax, Direction: DirectionCredit})
	if query != qHistoryByTypeAndDirection {
		t.Fatalf("expected combined variant")
	}
	if len(args) != 7 {
		t.Fatalf("combined args got %d want 7", len(args))
	}
}

func TestHistoryQueryLimits(t *testing.T) {
	owner := Owner{Type: OwnerPlayer, ID: 7}

	_, args := historyQuery(owner, TxFilter{})
	if args[len(args)-1] != defaultHistoryLimit {
		t.Fatalf("default limit got %v", args[len(args)-1])
	}

	_, args = historyQuery(owner, TxFilter{Limit: 10_000})
	if args[len(args)-1] != maxHistoryLimit {
		t.Fatalf("capped limit got %v", args[len(args)-1])
	}

	since := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	_, args = historyQuery(owner, TxFilter{Since: since})
	if args[3] != since {
		t.Fatalf("since not passed through: %v", args[3])
	}
}
