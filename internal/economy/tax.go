package economy

import (
	"context"
	"errors"
)

// ApplyDailyTax sweeps the configured wealth tax from every active player
// account into the government account. Each account is its own retried
// transfer: the tax amount is computed from a snapshot read, then applied by
// the conditional debit, so a balance that shrank in between simply fails
// the guard and is skipped until the next sweep. One failing account never
// stops the sweep.
func (s *Service) ApplyDailyTax(ctx context.Context) (TaxSweepReport, error) {
	var report TaxSweepReport
	if s.cfg.TaxRateBps <= 0 {
		return report, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT owner_id, balance
		FROM game.bank_accounts
		WHERE owner_type = $1 AND currency = $2 AND is_active AND balance > 0
		ORDER BY owner_id
	`, OwnerPlayer, Currency)
	if err != nil {
		return report, err
	}
	type taxable struct {
		playerID int64
		balance  int64
	}
	var due []taxable
	for rows.Next() {
		var t taxable
		if err := rows.Scan(&t.playerID, &t.balance); err != nil {
			rows.Close()
			return report, err
		}
		due = append(due, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return report, err
	}

	gov := Owner{Type: OwnerGov, ID: s.cfg.GovOwnerID}
	for _, t := range due {
		tax := t.balance * s.cfg.TaxRateBps / 10_000
		if tax <= 0 {
			continue
		}
		_, err := s.Transfer(ctx, TransferInput{
			From:        Owner{Type: OwnerPlayer, ID: t.playerID},
			To:          gov,
			Amount:      tax,
			TxType:      TxTax,
			Description: "daily wealth tax",
		})
		switch {
		case err == nil:
			report.AccountsTaxed++
			report.Collected += tax
		case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrAccountFrozen):
			// Balance moved under us or the player is frozen; next sweep.
			continue
		default:
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			s.log.Warn("tax sweep skipped account", "player_id", t.playerID, "err", err)
		}
	}
	s.log.Info("tax sweep complete", "accounts", report.AccountsTaxed, "collected", report.Collected)
	return report, nil
}
