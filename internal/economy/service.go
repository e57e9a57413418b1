package economy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Notifier receives large-movement notices from the alert monitor. It is the
// engine's only hook into the broadcast layer; implementations live outside
// this package.
type Notifier interface {
	Notify(ctx context.Context, owner Owner, message string) error
}

// CorpDirectory is the engine's read-only view of the corporation subsystem.
type CorpDirectory interface {
	CEO(ctx context.Context, corpID int64) (int64, error)
	CreditRating(ctx context.Context, corpID int64) (int64, error)
}

// Deps are the engine's injected collaborators. Clock and NewGroupID default
// to time.Now and uuid.NewString; tests override them.
type Deps struct {
	Notifier   Notifier
	Corps      CorpDirectory
	Clock      func() time.Time
	NewGroupID func() string
}

// Service owns bank accounts, the transaction ledger, and corporate equity.
// All coordination between game threads happens through database transaction
// isolation; the service itself keeps no mutable state.
type Service struct {
	db         *pgxpool.Pool
	log        *slog.Logger
	cfg        Config
	notifier   Notifier
	corps      CorpDirectory
	now        func() time.Time
	newGroupID func() string
}

func NewService(db *pgxpool.Pool, logger *slog.Logger, cfg Config, deps Deps) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		db:         db,
		log:        logger,
		cfg:        cfg.withDefaults(),
		notifier:   deps.Notifier,
		corps:      deps.Corps,
		now:        deps.Clock,
		newGroupID: deps.NewGroupID,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newGroupID == nil {
		s.newGroupID = uuid.NewString
	}
	return s
}

// withSerializableTx runs fn inside one serializable transaction, declaring
// write intent at begin rather than upgrading later. On a contention error
// the whole transaction is rolled back and rerun from scratch, up to
// cfg.MaxTxAttempts, with a doubling backoff between attempts. Exhausting
// the budget surfaces ErrTxConflict; every other error passes through with
// the transaction already rolled back.
func (s *Service) withSerializableTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	backoff := s.cfg.RetryBackoff
	for attempt := 0; attempt < s.cfg.MaxTxAttempts; attempt++ {
		tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return err
		}
		err = func() error {
			defer tx.Rollback(ctx)
			if err := fn(tx); err != nil {
				return err
			}
			return tx.Commit(ctx)
		}()
		if err == nil {
			return nil
		}
		if !isContention(err) {
			return err
		}
		if attempt == s.cfg.MaxTxAttempts-1 {
			break
		}
		if err := sleepWithContext(ctx, backoff); err != nil {
			return err
		}
		if backoff < time.Second {
			backoff *= 2
		}
	}
	return ErrTxConflict
}

func isContention(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// 40001 serialization failure, 40P01 deadlock detected.
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// mulCredits multiplies share quantity by price without silent int64 wrap.
func mulCredits(a, b int64) (int64, error) {
	v := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	if !v.IsInt64() {
		return 0, fmt.Errorf("credit amount overflow: %d * %d", a, b)
	}
	return v.Int64(), nil
}
