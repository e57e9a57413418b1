package economy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ResolveAccount maps an owner to its account id. Pure lookup; the owner id
// itself is a foreign reference validated by the caller.
func (s *Service) ResolveAccount(ctx context.Context, owner Owner) (int64, error) {
	if !owner.valid() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidOwner, owner)
	}
	var id int64
	err := s.db.QueryRow(ctx, `
		SELECT id
		FROM game.bank_accounts
		WHERE owner_type = $1 AND owner_id = $2 AND currency = $3
	`, owner.Type, owner.ID, Currency).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrAccountNotFound, owner)
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// CreateAccount opens an account with an initial balance. Idempotent under
// concurrent callers: a lost creation race resolves to the surviving row, not
// an error. Accounts are never deleted afterwards, only frozen.
func (s *Service) CreateAccount(ctx context.Context, owner Owner, initialBalance int64) (int64, error) {
	if !owner.valid() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidOwner, owner)
	}
	if initialBalance < 0 {
		return 0, ErrInvalidAmount
	}
	var id int64
	err := s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		var err error
		id, err = s.ensureAccountTx(ctx, tx, owner, initialBalance)
		return err
	})
	return id, err
}

// GetBalance reads the committed balance for an owner.
func (s *Service) GetBalance(ctx context.Context, owner Owner) (int64, error) {
	if !owner.valid() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidOwner, owner)
	}
	var balance int64
	err := s.db.QueryRow(ctx, `
		SELECT balance
		FROM game.bank_accounts
		WHERE owner_type = $1 AND owner_id = $2 AND currency = $3
	`, owner.Type, owner.ID, Currency).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrAccountNotFound, owner)
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// SetFrozen flips the per-player freeze flag. Frozen players can still be
// credited (winnings, refunds) but cannot move value out.
func (s *Service) SetFrozen(ctx context.Context, playerID int64, frozen bool) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO game.bank_flags (player_id, is_frozen)
		VALUES ($1, $2)
		ON CONFLICT (player_id) DO UPDATE SET is_frozen = $2
	`, playerID, frozen)
	return err
}

// IsFrozen reports the freeze flag; absent rows mean not frozen.
func (s *Service) IsFrozen(ctx context.Context, playerID int64) (bool, error) {
	var frozen bool
	err := s.db.QueryRow(ctx, `
		SELECT is_frozen FROM game.bank_flags WHERE player_id = $1
	`, playerID).Scan(&frozen)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return frozen, err
}

func (s *Service) resolveAccountTx(ctx context.Context, tx pgx.Tx, owner Owner) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		SELECT id
		FROM game.bank_accounts
		WHERE owner_type = $1 AND owner_id = $2 AND currency = $3
	`, owner.Type, owner.ID, Currency).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrAccountNotFound, owner)
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ensureAccountTx resolves the account, creating it lazily on first credit.
// The insert-or-do-nothing form lets duplicate creation races resolve without
// error regardless of which transaction wins.
func (s *Service) ensureAccountTx(ctx context.Context, tx pgx.Tx, owner Owner, initialBalance int64) (int64, error) {
	_, err := tx.Exec(ctx, `
		INSERT INTO game.bank_accounts (owner_type, owner_id, currency, balance)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_type, owner_id, currency) DO NOTHING
	`, owner.Type, owner.ID, Currency, initialBalance)
	if err != nil {
		return 0, err
	}
	return s.resolveAccountTx(ctx, tx, owner)
}

// frozenGuardTx rejects outgoing movement from frozen player accounts. Only
// players carry freeze flags; every other owner type passes.
func (s *Service) frozenGuardTx(ctx context.Context, tx pgx.Tx, owner Owner) error {
	if owner.Type != OwnerPlayer {
		return nil
	}
	var frozen bool
	err := tx.QueryRow(ctx, `
		SELECT is_frozen FROM game.bank_flags WHERE player_id = $1
	`, owner.ID).Scan(&frozen)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if frozen {
		return fmt.Errorf("%w: %s", ErrAccountFrozen, owner)
	}
	return nil
}
