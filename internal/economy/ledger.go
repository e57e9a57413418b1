package economy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// creditTx applies a single signed increment to one account and appends the
// matching ledger record in the same transaction. A credit is always legal;
// the only failure beyond infrastructure errors is int64 wrap, which is an
// integrity fault.
func (s *Service) creditTx(ctx context.Context, tx pgx.Tx, accountID, amount int64, txType, groupID, description string) (int64, error) {
	if amount < 0 {
		return 0, ErrInvalidAmount
	}
	var balance int64
	err := tx.QueryRow(ctx, `
		UPDATE game.bank_accounts
		SET balance = balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING balance
	`, amount, accountID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: account id %d", ErrAccountNotFound, accountID)
	}
	if err != nil {
		return 0, err
	}
	if balance < 0 {
		return 0, fmt.Errorf("%w: account %d reached %d after credit of %d", ErrBalanceOverflow, accountID, balance, amount)
	}
	if err := s.recordTx(ctx, tx, accountID, DirectionCredit, amount, txType, groupID, description, balance); err != nil {
		return 0, err
	}
	return balance, nil
}

// debitTx decrements conditioned on balance >= amount in the same statement.
// The database evaluates the guard against the current row version at update
// time, so two concurrent debits can never both succeed past the balance.
// Zero matched rows means the guard failed (or the account does not exist,
// which debits treat as a zero balance): ErrInsufficientFunds.
func (s *Service) debitTx(ctx context.Context, tx pgx.Tx, accountID, amount int64, txType, groupID, description string) (int64, error) {
	if amount < 0 {
		return 0, ErrInvalidAmount
	}
	var balance int64
	err := tx.QueryRow(ctx, `
		UPDATE game.bank_accounts
		SET balance = balance - $1, updated_at = now()
		WHERE id = $2 AND balance >= $1
		RETURNING balance
	`, amount, accountID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrInsufficientFunds
	}
	if err != nil {
		return 0, err
	}
	if err := s.recordTx(ctx, tx, accountID, DirectionDebit, amount, txType, groupID, description, balance); err != nil {
		return 0, err
	}
	return balance, nil
}

// recordTx appends the audit row. It runs inside the same transaction as the
// balance mutation: a balance change without its ledger record cannot commit.
func (s *Service) recordTx(ctx context.Context, tx pgx.Tx, accountID int64, direction string, amount int64, txType, groupID, description string, balanceAfter int64) error {
	var gid any
	if groupID != "" {
		gid = groupID
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO game.bank_transactions
		    (account_id, tx_type, direction, amount, currency, balance_after, tx_group_id, description, ts)
		VALUES
		    ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, accountID, txType, direction, amount, Currency, balanceAfter, gid, description, s.now().UTC())
	return err
}

// Deposit credits an owner, opening the account lazily on first use.
func (s *Service) Deposit(ctx context.Context, owner Owner, amount int64, txType, description string) (int64, error) {
	if !owner.valid() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidOwner, owner)
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if txType == "" {
		txType = TxDeposit
	}
	var balance int64
	err := s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		id, err := s.ensureAccountTx(ctx, tx, owner, 0)
		if err != nil {
			return err
		}
		balance, err = s.creditTx(ctx, tx, id, amount, txType, "", description)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Withdraw debits an owner. An absent account holds nothing, so a withdrawal
// against one fails with ErrInsufficientFunds rather than materializing a
// borrowed balance.
func (s *Service) Withdraw(ctx context.Context, owner Owner, amount int64, txType, description string) (int64, error) {
	if !owner.valid() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidOwner, owner)
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if txType == "" {
		txType = TxWithdrawal
	}
	var balance int64
	err := s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := s.frozenGuardTx(ctx, tx, owner); err != nil {
			return err
		}
		id, err := s.resolveAccountTx(ctx, tx, owner)
		if errors.Is(err, ErrAccountNotFound) {
			return ErrInsufficientFunds
		}
		if err != nil {
			return err
		}
		balance, err = s.debitTx(ctx, tx, id, amount, txType, "", description)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}
