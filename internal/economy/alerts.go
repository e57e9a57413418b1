package economy

import (
	"context"
	"fmt"
)

// alertMovement runs after a committed movement and is strictly best-effort:
// it compares the amount against each leg's per-owner-type threshold and
// hands a human-readable notice to the notifier. A sink failure is logged at
// warn and never reverses or blocks the committed transfer.
func (s *Service) alertMovement(ctx context.Context, from, to Owner, amount int64, txType, groupID string) {
	if s.notifier == nil {
		return
	}
	notified := map[Owner]bool{}
	for _, owner := range []Owner{from, to} {
		if notified[owner] {
			continue
		}
		threshold := s.cfg.AlertThreshold(owner.Type)
		if threshold <= 0 || amount < threshold {
			continue
		}
		notified[owner] = true
		msg := fmt.Sprintf("large %s: %d %s moved from %s to %s (ref %s)",
			txType, amount, Currency, from, to, groupID)
		if err := s.notifier.Notify(ctx, owner, msg); err != nil {
			s.log.Warn("movement alert failed",
				"owner", owner.String(), "amount", amount, "tx_group_id", groupID, "err", err)
		}
	}
}
