package economy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// RegisterIPO creates the single stock row for a corporation. Gated on CEO
// identity and a minimum corporate credit rating; total_shares is fixed at
// issuance and allocated entirely to the corporation's own holding
// (player_id 0).
func (s *Service) RegisterIPO(ctx context.Context, in IPOInput) (StockView, error) {
	in.Ticker = strings.ToUpper(strings.TrimSpace(in.Ticker))
	if err := ValidateTicker(in.Ticker); err != nil {
		return StockView{}, err
	}
	if in.TotalShares <= 0 || in.Price <= 0 || in.ParValue < 0 {
		return StockView{}, ErrInvalidAmount
	}
	ceo, err := s.corps.CEO(ctx, in.CorpID)
	if err != nil {
		return StockView{}, err
	}
	if ceo != in.CEOPlayerID {
		return StockView{}, ErrNotCEO
	}
	rating, err := s.corps.CreditRating(ctx, in.CorpID)
	if err != nil {
		return StockView{}, err
	}
	if rating < s.cfg.MinIPORating {
		return StockView{}, fmt.Errorf("%w: rating %d below %d", ErrLowCreditRating, rating, s.cfg.MinIPORating)
	}

	var out StockView
	err = s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO game.stocks (corp_id, ticker, total_shares, par_value, current_price)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, in.CorpID, in.Ticker, in.TotalShares, in.ParValue, in.Price).Scan(&out.ID)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateTicker, in.Ticker)
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO game.corp_shareholders (player_id, corp_id, shares)
			VALUES (0, $1, $2)
		`, in.CorpID, in.TotalShares); err != nil {
			return err
		}
		out.CorpID = in.CorpID
		out.Ticker = in.Ticker
		out.TotalShares = in.TotalShares
		out.ParValue = in.ParValue
		out.CurrentPrice = in.Price
		return nil
	})
	if err != nil {
		return StockView{}, err
	}
	s.log.Info("stock registered", "ticker", out.Ticker, "corp_id", out.CorpID, "total_shares", out.TotalShares)
	return out, nil
}

type stockRow struct {
	id          int64
	corpID      int64
	ticker      string
	totalShares int64
	price       int64
}

func stockByTickerTx(ctx context.Context, tx pgx.Tx, ticker string) (stockRow, error) {
	var st stockRow
	err := tx.QueryRow(ctx, `
		SELECT id, corp_id, ticker, total_shares, current_price
		FROM game.stocks
		WHERE ticker = $1
		FOR UPDATE
	`, strings.ToUpper(strings.TrimSpace(ticker))).Scan(&st.id, &st.corpID, &st.ticker, &st.totalShares, &st.price)
	if errors.Is(err, pgx.ErrNoRows) {
		return st, fmt.Errorf("%w: %s", ErrStockNotFound, ticker)
	}
	return st, err
}

// BuyShares moves qty shares from the corporation's own holding to the player
// and qty*price credits from the player to the corporation, all inside one
// transaction: either both the ledger and the share book change, or neither.
func (s *Service) BuyShares(ctx context.Context, in TradeInput) (TradeResult, error) {
	if in.Quantity <= 0 {
		return TradeResult{}, ErrInvalidAmount
	}
	player := Owner{Type: OwnerPlayer, ID: in.PlayerID}
	groupID := s.newGroupID()

	var out TradeResult
	var corp Owner
	err := s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		st, err := stockByTickerTx(ctx, tx, in.Ticker)
		if err != nil {
			return err
		}
		corp = Owner{Type: OwnerCorp, ID: st.corpID}
		cost, err := mulCredits(in.Quantity, st.price)
		if err != nil {
			return err
		}
		if err := s.frozenGuardTx(ctx, tx, player); err != nil {
			return err
		}
		playerAcct, err := s.resolveAccountTx(ctx, tx, player)
		if errors.Is(err, ErrAccountNotFound) {
			return ErrInsufficientFunds
		}
		if err != nil {
			return err
		}
		corpAcct, err := s.ensureAccountTx(ctx, tx, corp, 0)
		if err != nil {
			return err
		}
		if err := moveSharesTx(ctx, tx, st.corpID, 0, in.PlayerID, in.Quantity); err != nil {
			return err
		}
		desc := fmt.Sprintf("buy %d %s @ %d", in.Quantity, st.ticker, st.price)
		playerBal, err := s.debitTx(ctx, tx, playerAcct, cost, TxStockBuy, groupID, desc)
		if err != nil {
			return err
		}
		corpBal, err := s.creditTx(ctx, tx, corpAcct, cost, TxStockBuy, groupID, desc)
		if err != nil {
			return err
		}
		shares, err := sharesHeldTx(ctx, tx, in.PlayerID, st.corpID)
		if err != nil {
			return err
		}
		out = TradeResult{
			Ticker:        st.ticker,
			Quantity:      in.Quantity,
			PricePerShare: st.price,
			Total:         cost,
			PlayerBalance: playerBal,
			CorpBalance:   corpBal,
			PlayerShares:  shares,
			GroupID:       groupID,
		}
		return nil
	})
	if err != nil {
		return TradeResult{}, err
	}
	s.alertMovement(ctx, player, corp, out.Total, TxStockBuy, groupID)
	return out, nil
}

// SellShares mirrors BuyShares in the opposite direction. The seller must
// hold at least qty shares; the corporation must be able to cover the
// proceeds or the whole trade unwinds.
func (s *Service) SellShares(ctx context.Context, in TradeInput) (TradeResult, error) {
	if in.Quantity <= 0 {
		return TradeResult{}, ErrInvalidAmount
	}
	player := Owner{Type: OwnerPlayer, ID: in.PlayerID}
	groupID := s.newGroupID()

	var out TradeResult
	var corp Owner
	err := s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		st, err := stockByTickerTx(ctx, tx, in.Ticker)
		if err != nil {
			return err
		}
		corp = Owner{Type: OwnerCorp, ID: st.corpID}
		proceeds, err := mulCredits(in.Quantity, st.price)
		if err != nil {
			return err
		}
		if err := s.frozenGuardTx(ctx, tx, player); err != nil {
			return err
		}
		corpAcct, err := s.resolveAccountTx(ctx, tx, corp)
		if errors.Is(err, ErrAccountNotFound) {
			return ErrInsufficientFunds
		}
		if err != nil {
			return err
		}
		playerAcct, err := s.ensureAccountTx(ctx, tx, player, 0)
		if err != nil {
			return err
		}
		if err := moveSharesTx(ctx, tx, st.corpID, in.PlayerID, 0, in.Quantity); err != nil {
			return err
		}
		desc := fmt.Sprintf("sell %d %s @ %d", in.Quantity, st.ticker, st.price)
		corpBal, err := s.debitTx(ctx, tx, corpAcct, proceeds, TxStockSell, groupID, desc)
		if err != nil {
			return err
		}
		playerBal, err := s.creditTx(ctx, tx, playerAcct, proceeds, TxStockSell, groupID, desc)
		if err != nil {
			return err
		}
		shares, err := sharesHeldTx(ctx, tx, in.PlayerID, st.corpID)
		if err != nil {
			return err
		}
		out = TradeResult{
			Ticker:        st.ticker,
			Quantity:      in.Quantity,
			PricePerShare: st.price,
			Total:         proceeds,
			PlayerBalance: playerBal,
			CorpBalance:   corpBal,
			PlayerShares:  shares,
			GroupID:       groupID,
		}
		return nil
	})
	if err != nil {
		return TradeResult{}, err
	}
	s.alertMovement(ctx, corp, player, out.Total, TxStockSell, groupID)
	return out, nil
}

// moveSharesTx shifts qty shares between two holders of the same stock.
// Shares are conserved against total_shares: buys draw from the corp's own
// holding (holder 0), sells return to it. Zero-share rows are deleted.
func moveSharesTx(ctx context.Context, tx pgx.Tx, corpID, fromHolder, toHolder, qty int64) error {
	var held int64
	err := tx.QueryRow(ctx, `
		SELECT shares
		FROM game.corp_shareholders
		WHERE player_id = $1 AND corp_id = $2
		FOR UPDATE
	`, fromHolder, corpID).Scan(&held)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrInsufficientShares
	}
	if err != nil {
		return err
	}
	if held < qty {
		return ErrInsufficientShares
	}
	if held == qty {
		if _, err := tx.Exec(ctx, `
			DELETE FROM game.corp_shareholders
			WHERE player_id = $1 AND corp_id = $2
		`, fromHolder, corpID); err != nil {
			return err
		}
	} else {
		if _, err := tx.Exec(ctx, `
			UPDATE game.corp_shareholders
			SET shares = shares - $3
			WHERE player_id = $1 AND corp_id = $2
		`, fromHolder, corpID, qty); err != nil {
			return err
		}
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO game.corp_shareholders (player_id, corp_id, shares)
		VALUES ($1, $2, $3)
		ON CONFLICT (player_id, corp_id) DO UPDATE
		SET shares = game.corp_shareholders.shares + EXCLUDED.shares
	`, toHolder, corpID, qty)
	return err
}

func sharesHeldTx(ctx context.Context, tx pgx.Tx, holderID, corpID int64) (int64, error) {
	var shares int64
	err := tx.QueryRow(ctx, `
		SELECT shares
		FROM game.corp_shareholders
		WHERE player_id = $1 AND corp_id = $2
	`, holderID, corpID).Scan(&shares)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return shares, err
}

// DeclareDividend records a dividend the payout job will settle. Declaration
// requires the corporation's balance to already cover amount_per_share over
// every issued share. That is a point-in-time check, not a reservation: the
// payout itself re-verifies by debiting conditionally.
func (s *Service) DeclareDividend(ctx context.Context, in DividendInput) (DividendView, error) {
	if in.AmountPerShare <= 0 {
		return DividendView{}, ErrInvalidAmount
	}
	ceo, err := s.corps.CEO(ctx, in.CorpID)
	if err != nil {
		return DividendView{}, err
	}
	if ceo != in.CEOPlayerID {
		return DividendView{}, ErrNotCEO
	}

	var out DividendView
	err = s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		var stockID, totalShares int64
		var ticker string
		err := tx.QueryRow(ctx, `
			SELECT id, ticker, total_shares
			FROM game.stocks
			WHERE corp_id = $1
			FOR UPDATE
		`, in.CorpID).Scan(&stockID, &ticker, &totalShares)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: corp %d has no stock", ErrStockNotFound, in.CorpID)
		}
		if err != nil {
			return err
		}
		required, err := mulCredits(in.AmountPerShare, totalShares)
		if err != nil {
			return err
		}
		balance, err := corpBalanceTx(ctx, tx, in.CorpID)
		if err != nil {
			return err
		}
		if balance < required {
			return ErrInsufficientFunds
		}
		declared := s.now().UTC()
		err = tx.QueryRow(ctx, `
			INSERT INTO game.stock_dividends (stock_id, amount_per_share, declared_ts)
			VALUES ($1, $2, $3)
			RETURNING id
		`, stockID, in.AmountPerShare, declared).Scan(&out.ID)
		if err != nil {
			return err
		}
		out.StockID = stockID
		out.Ticker = ticker
		out.AmountPerShare = in.AmountPerShare
		out.DeclaredTs = declared
		return nil
	})
	if err != nil {
		return DividendView{}, err
	}
	s.log.Info("dividend declared", "ticker", out.Ticker, "amount_per_share", out.AmountPerShare)
	return out, nil
}

// corpBalanceTx reads a corporation's balance, treating an absent account as
// zero.
func corpBalanceTx(ctx context.Context, tx pgx.Tx, corpID int64) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `
		SELECT balance
		FROM game.bank_accounts
		WHERE owner_type = $1 AND owner_id = $2 AND currency = $3
	`, OwnerCorp, corpID, Currency).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return balance, err
}

// RunDividendPayout settles every unpaid dividend. Each dividend is one
// transaction: debit the corporation once for the whole payout, credit every
// player shareholder, mark paid_ts last. Any failure inside the loop rolls
// the whole payout back; the dividend stays unpaid and is retried on the
// next cycle. Failures on one dividend never block the others.
func (s *Service) RunDividendPayout(ctx context.Context) ([]PayoutReport, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id FROM game.stock_dividends WHERE paid_ts IS NULL ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var reports []PayoutReport
	for _, id := range ids {
		report, err := s.payoutDividend(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return reports, ctx.Err()
			}
			s.log.Warn("dividend payout deferred", "dividend_id", id, "err", err)
			continue
		}
		reports = append(reports, report)
		s.log.Info("dividend paid",
			"dividend_id", report.DividendID, "ticker", report.Ticker,
			"shareholders", report.Shareholders, "total_paid", report.TotalPaid)
	}
	return reports, nil
}

func (s *Service) payoutDividend(ctx context.Context, dividendID int64) (PayoutReport, error) {
	groupID := s.newGroupID()
	var report PayoutReport
	err := s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		var stockID, corpID, amountPerShare int64
		var ticker string
		err := tx.QueryRow(ctx, `
			SELECT d.stock_id, d.amount_per_share, st.corp_id, st.ticker
			FROM game.stock_dividends d
			JOIN game.stocks st ON st.id = d.stock_id
			WHERE d.id = $1 AND d.paid_ts IS NULL
			FOR UPDATE OF d
		`, dividendID).Scan(&stockID, &amountPerShare, &corpID, &ticker)
		if errors.Is(err, pgx.ErrNoRows) {
			// Settled by a concurrent run.
			return nil
		}
		if err != nil {
			return err
		}

		type holder struct {
			playerID int64
			shares   int64
		}
		hRows, err := tx.Query(ctx, `
			SELECT player_id, shares
			FROM game.corp_shareholders
			WHERE corp_id = $1 AND player_id <> 0 AND shares > 0
			ORDER BY player_id
			FOR UPDATE
		`, corpID)
		if err != nil {
			return err
		}
		var holders []holder
		for hRows.Next() {
			var h holder
			if err := hRows.Scan(&h.playerID, &h.shares); err != nil {
				hRows.Close()
				return err
			}
			holders = append(holders, h)
		}
		hRows.Close()
		if err := hRows.Err(); err != nil {
			return err
		}

		var total int64
		for _, h := range holders {
			due, err := mulCredits(h.shares, amountPerShare)
			if err != nil {
				return err
			}
			total += due
		}

		if total > 0 {
			corp := Owner{Type: OwnerCorp, ID: corpID}
			corpAcct, err := s.resolveAccountTx(ctx, tx, corp)
			if errors.Is(err, ErrAccountNotFound) {
				return ErrInsufficientFunds
			}
			if err != nil {
				return err
			}
			desc := fmt.Sprintf("dividend %d/share on %s", amountPerShare, ticker)
			if _, err := s.debitTx(ctx, tx, corpAcct, total, TxDividend, groupID, desc); err != nil {
				return err
			}
			for _, h := range holders {
				due, err := mulCredits(h.shares, amountPerShare)
				if err != nil {
					return err
				}
				acct, err := s.ensureAccountTx(ctx, tx, Owner{Type: OwnerPlayer, ID: h.playerID}, 0)
				if err != nil {
					return err
				}
				if _, err := s.creditTx(ctx, tx, acct, due, TxDividend, groupID, desc); err != nil {
					return err
				}
			}
		}

		paid := s.now().UTC()
		if _, err := tx.Exec(ctx, `
			UPDATE game.stock_dividends SET paid_ts = $2 WHERE id = $1
		`, dividendID, paid); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE game.stocks SET last_dividend_ts = $2 WHERE id = $1
		`, stockID, paid); err != nil {
			return err
		}
		report = PayoutReport{
			DividendID:   dividendID,
			Ticker:       ticker,
			Shareholders: len(holders),
			TotalPaid:    total,
		}
		return nil
	})
	return report, err
}

// ListStocks returns every registered stock ordered by ticker.
func (s *Service) ListStocks(ctx context.Context) ([]StockView, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, corp_id, ticker, total_shares, par_value, current_price, last_dividend_ts
		FROM game.stocks
		ORDER BY ticker
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StockView
	for rows.Next() {
		var v StockView
		if err := rows.Scan(&v.ID, &v.CorpID, &v.Ticker, &v.TotalShares, &v.ParValue, &v.CurrentPrice, &v.LastDividendTs); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// StockByTicker returns one stock.
func (s *Service) StockByTicker(ctx context.Context, ticker string) (StockView, error) {
	var v StockView
	err := s.db.QueryRow(ctx, `
		SELECT id, corp_id, ticker, total_shares, par_value, current_price, last_dividend_ts
		FROM game.stocks
		WHERE ticker = $1
	`, strings.ToUpper(strings.TrimSpace(ticker))).Scan(
		&v.ID, &v.CorpID, &v.Ticker, &v.TotalShares, &v.ParValue, &v.CurrentPrice, &v.LastDividendTs)
	if errors.Is(err, pgx.ErrNoRows) {
		return v, fmt.Errorf("%w: %s", ErrStockNotFound, ticker)
	}
	return v, err
}

// ListHoldings returns a player's share positions.
func (s *Service) ListHoldings(ctx context.Context, playerID int64) ([]HoldingView, error) {
	rows, err := s.db.Query(ctx, `
		SELECT h.corp_id, st.ticker, h.shares
		FROM game.corp_shareholders h
		JOIN game.stocks st ON st.corp_id = h.corp_id
		WHERE h.player_id = $1 AND h.shares > 0
		ORDER BY st.ticker
	`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []HoldingView
	for rows.Next() {
		var v HoldingView
		if err := rows.Scan(&v.CorpID, &v.Ticker, &v.Shares); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
