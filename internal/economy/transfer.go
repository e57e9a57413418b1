package economy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Transfer moves value between two owners as one atomic unit: debit the
// source, credit the destination, two ledger records sharing one group id.
// Both legs live inside a single serializable transaction, so partial
// application is structurally impossible; a failed credit leg unwinds the
// debit through rollback, never through a compensating credit.
//
// The ledger does not reject from == to; callers that consider
// self-transfers nonsense must refuse them before calling in.
func (s *Service) Transfer(ctx context.Context, in TransferInput) (TransferResult, error) {
	if !in.From.valid() {
		return TransferResult{}, fmt.Errorf("%w: %s", ErrInvalidOwner, in.From)
	}
	if !in.To.valid() {
		return TransferResult{}, fmt.Errorf("%w: %s", ErrInvalidOwner, in.To)
	}
	if in.Amount <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}
	if in.TxType == "" {
		in.TxType = TxTransfer
	}
	groupID := in.GroupID
	if groupID == "" {
		groupID = s.newGroupID()
	}

	var out TransferResult
	err := s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := s.frozenGuardTx(ctx, tx, in.From); err != nil {
			return err
		}
		fromID, err := s.resolveAccountTx(ctx, tx, in.From)
		if errors.Is(err, ErrAccountNotFound) {
			// Absent source holds zero; a positive transfer cannot cover.
			return ErrInsufficientFunds
		}
		if err != nil {
			return err
		}
		toID, err := s.ensureAccountTx(ctx, tx, in.To, 0)
		if err != nil {
			return err
		}
		fromBal, err := s.debitTx(ctx, tx, fromID, in.Amount, in.TxType, groupID, in.Description)
		if err != nil {
			return err
		}
		toBal, err := s.creditTx(ctx, tx, toID, in.Amount, in.TxType, groupID, in.Description)
		if err != nil {
			return err
		}
		out = TransferResult{FromBalance: fromBal, ToBalance: toBal, GroupID: groupID}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}

	s.alertMovement(ctx, in.From, in.To, in.Amount, in.TxType, groupID)
	return out, nil
}
