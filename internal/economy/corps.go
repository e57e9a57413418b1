package economy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgCorpDirectory reads corporation identity from the corp subsystem's table.
// The economy engine never writes it.
type PgCorpDirectory struct {
	db *pgxpool.Pool
}

func NewPgCorpDirectory(db *pgxpool.Pool) *PgCorpDirectory {
	return &PgCorpDirectory{db: db}
}

func (d *PgCorpDirectory) CEO(ctx context.Context, corpID int64) (int64, error) {
	var ceo int64
	err := d.db.QueryRow(ctx, `
		SELECT ceo_player_id FROM game.corps WHERE id = $1
	`, corpID).Scan(&ceo)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %d", ErrCorpNotFound, corpID)
	}
	return ceo, err
}

func (d *PgCorpDirectory) CreditRating(ctx context.Context, corpID int64) (int64, error) {
	var rating int64
	err := d.db.QueryRow(ctx, `
		SELECT credit_rating FROM game.corps WHERE id = $1
	`, corpID).Scan(&rating)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %d", ErrCorpNotFound, corpID)
	}
	return rating, err
}
