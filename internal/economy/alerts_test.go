package economy

import (
	"context"
	"errors"
	"testing"
)

type captureNotifier struct {
	calls []Owner
	err   error
}

func (n *captureNotifier) Notify(_ context.Context, owner Owner, _ string) error {
	n.calls = append(n.calls, owner)
	return n.err
}

func alertService(t *testing.T, sink Notifier, cfg Config) *Service {
	t.Helper()
	return NewService(nil, nil, cfg, Deps{Notifier: sink})
}

func TestAlertMovementFiresBothLegs(t *testing.T) {
	sink := &captureNotifier{}
	s := alertService(t, sink, Config{DefaultAlertThreshold: 100})

	from := Owner{Type: OwnerPlayer, ID: 1}
	to := Owner{Type: OwnerCorp, ID: 2}
	s.alertMovement(context.Background(), from, to, 500, TxTransfer, "g1")

	if len(sink.calls) != 2 {
		t.Fatalf("expected 2 notices, got %d", len(sink.calls))
	}
	if sink.calls[0] != from || sink.calls[1] != to {
		t.Fatalf("unexpected recipients: %v", sink.calls)
	}
}

func TestAlertMovementBelowThreshold(t *testing.T) {
	sink := &captureNotifier{}
	s := alertService(t, sink, Config{DefaultAlertThreshold: 1_000})

	s.alertMovement(context.Background(),
		Owner{Type: OwnerPlayer, ID: 1}, Owner{Type: OwnerPlayer, ID: 2}, 999, TxTransfer, "g1")
	if len(sink.calls) != 0 {
		t.Fatalf("expected no notices, got %d", len(sink.calls))
	}
}

func TestAlertMovementPerTypeThreshold(t *testing.T) {
	sink := &captureNotifier{}
	s := alertService(t, sink, Config{
		DefaultAlertThreshold: 100,
		AlertThresholds:       map[OwnerType]int64{OwnerGov: 0},
	})

	// Gov alerting disabled, so only the player leg fires.
	s.alertMovement(context.Background(),
		Owner{Type: OwnerPlayer, ID: 1}, Owner{Type: OwnerGov, ID: 1}, 500, TxTax, "g1")
	if len(sink.calls) != 1 {
		t.Fatalf("expected 1 notice, got %d", len(sink.calls))
	}
	if sink.calls[0].Type != OwnerPlayer {
		t.Fatalf("unexpected recipient %v", sink.calls[0])
	}
}

func TestAlertMovementDedupesSameOwner(t *testing.T) {
	sink := &captureNotifier{}
	s := alertService(t, sink, Config{DefaultAlertThreshold: 100})

	owner := Owner{Type: OwnerPlayer, ID: 1}
	s.alertMovement(context.Background(), owner, owner, 500, TxDeposit, "g1")
	if len(sink.calls) != 1 {
		t.Fatalf("expected 1 notice, got %d", len(sink.calls))
	}
}

func TestAlertMovementSinkFailureIsSwallowed(t *testing.T) {
	sink := &captureNotifier{err: errors.New("broker down")}
	s := alertService(t, sink, Config{DefaultAlertThreshold: 100})

	// Must not panic or propagate; the movement already committed.
	s.alertMovement(context.Background(),
		Owner{Type: OwnerPlayer, ID: 1}, Owner{Type: OwnerCorp, ID: 2}, 500, TxTransfer, "g1")
	if len(sink.calls) != 2 {
		t.Fatalf("expected both legs attempted, got %d", len(sink.calls))
	}
}

func TestAlertMovementNilNotifier(t *testing.T) {
	s := NewService(nil, nil, Config{DefaultAlertThreshold: 100}, Deps{})
	s.alertMovement(context.Background(),
		Owner{Type: OwnerPlayer, ID: 1}, Owner{Type: OwnerPlayer, ID: 2}, 500, TxTransfer, "g1")
}
