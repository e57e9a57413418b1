package economy

import (
	"context"
	"strings"
	"time"
)

// Transaction history queries. One fixed, fully parameterized statement per
// filter combination; the filter never contributes SQL text, only bind
// arguments.
const (
	qHistory = `
		SELECT t.id, t.tx_type, t.direction, t.amount, t.currency, t.balance_after, t.tx_group_id, t.description, t.ts
		FROM game.bank_transactions t
		JOIN game.bank_accounts a ON a.id = t.account_id
		WHERE a.owner_type = $1 AND a.owner_id = $2 AND a.currency = $3
		  AND t.ts >= $4
		ORDER BY t.ts DESC, t.id DESC
		LIMIT $5`

	qHistoryByType = `
		SELECT t.id, t.tx_type, t.direction, t.amount, t.currency, t.balance_after, t.tx_group_id, t.description, t.ts
		FROM game.bank_transactions t
		JOIN game.bank_accounts a ON a.id = t.account_id
		WHERE a.owner_type = $1 AND a.owner_id = $2 AND a.currency = $3
		  AND t.tx_type = $4
		  AND t.ts >= $5
		ORDER BY t.ts DESC, t.id DESC
		LIMIT $6`

	qHistoryByDirection = `
		SELECT t.id, t.tx_type, t.direction, t.amount, t.currency, t.balance_after, t.tx_group_id, t.description, t.ts
		FROM game.bank_transactions t
		JOIN game.bank_accounts a ON a.id = t.account_id
		WHERE a.owner_type = $1 AND a.owner_id = $2 AND a.currency = $3
		  AND t.direction = $4
		  AND t.ts >= $5
		ORDER BY t.ts DESC, t.id DESC
		LIMIT $6`

	qHistoryByTypeAndDirection = `
		SELECT t.id, t.tx_type, t.direction, t.amount, t.currency, t.balance_after, t.tx_group_id, t.description, t.ts
		FROM game.bank_transactions t
		JOIN game.bank_accounts a ON a.id = t.account_id
		WHERE a.owner_type = $1 AND a.owner_id = $2 AND a.currency = $3
		  AND t.tx_type = $4
		  AND t.direction = $5
		  AND t.ts >= $6
		ORDER BY t.ts DESC, t.id DESC
		LIMIT $7`
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// historyQuery picks the statement variant matching the populated filters and
// lays out its bind arguments.
func historyQuery(owner Owner, f TxFilter) (string, []any) {
	txType := strings.ToUpper(strings.TrimSpace(f.TxType))
	direction := strings.ToUpper(strings.TrimSpace(f.Direction))
	since := f.Since
	if since.IsZero() {
		since = time.Unix(0, 0).UTC()
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	args := []any{owner.Type, owner.ID, Currency}
	switch {
	case txType != "" && direction != "":
		return qHistoryByTypeAndDirection, append(args, txType, direction, since, limit)
	case txType != "":
		return qHistoryByType, append(args, txType, since, limit)
	case direction != "":
		return qHistoryByDirection, append(args, direction, since, limit)
	default:
		return qHistory, append(args, since, limit)
	}
}

// ListTransactions returns the newest ledger entries for an owner, filtered.
// The underlying records are append-only and immutable; this is the read
// surface for statements and audits.
func (s *Service) ListTransactions(ctx context.Context, owner Owner, f TxFilter) ([]TxEntry, error) {
	if !owner.valid() {
		return nil, ErrInvalidOwner
	}
	query, args := historyQuery(owner, f)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TxEntry
	for rows.Next() {
		var e TxEntry
		var groupID, description *string
		if err := rows.Scan(&e.ID, &e.TxType, &e.Direction, &e.Amount, &e.Currency, &e.BalanceAfter, &groupID, &description, &e.Ts); err != nil {
			return nil, err
		}
		if groupID != nil {
			e.GroupID = *groupID
		}
		if description != nil {
			e.Description = *description
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
