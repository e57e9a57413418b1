package economy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Commission rank thresholds by lifetime experience. Rank 0 is an unranked
// recruit; rank 8 is the ceiling.
var rankThresholds = []int64{0, 1_000, 5_000, 20_000, 50_000, 100_000, 500_000, 1_000_000, 5_000_000}

const commissionPerRank = 500

func commissionRank(experience int64) int {
	rank := 0
	for i, threshold := range rankThresholds {
		if experience >= threshold {
			rank = i
		}
	}
	return rank
}

// commissionFor derives the periodic commission from rank plus an alignment
// bonus. Negative alignment erodes the bonus but commission never goes below
// zero.
func commissionFor(alignment, experience int64) int64 {
	c := int64(commissionRank(experience)) * commissionPerRank
	c += alignment / 10
	if c < 0 {
		return 0
	}
	return c
}

// UpdateCommission recomputes a player's commission rank and payout from
// their current alignment and experience. Non-monetary state, but it shares
// the engine's concurrency contract: consistent read-then-write under the
// serializable retry wrapper, since combat and mission threads mutate the
// same row.
func (s *Service) UpdateCommission(ctx context.Context, playerID int64) (Progress, error) {
	var out Progress
	err := s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		var alignment, experience int64
		err := tx.QueryRow(ctx, `
			SELECT alignment, experience
			FROM game.player_progress
			WHERE player_id = $1
			FOR UPDATE
		`, playerID).Scan(&alignment, &experience)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: player %d", ErrPlayerNotFound, playerID)
		}
		if err != nil {
			return err
		}
		rank := commissionRank(experience)
		commission := commissionFor(alignment, experience)
		if _, err := tx.Exec(ctx, `
			UPDATE game.player_progress
			SET commission_rank = $2, commission = $3, updated_at = now()
			WHERE player_id = $1
		`, playerID, rank, commission); err != nil {
			return err
		}
		out = Progress{
			PlayerID:       playerID,
			Alignment:      alignment,
			Experience:     experience,
			CommissionRank: rank,
			Commission:     commission,
		}
		return nil
	})
	if err != nil {
		return Progress{}, err
	}
	return out, nil
}

// GetProgress reads a player's progress row.
func (s *Service) GetProgress(ctx context.Context, playerID int64) (Progress, error) {
	var out Progress
	err := s.db.QueryRow(ctx, `
		SELECT player_id, alignment, experience, commission_rank, commission
		FROM game.player_progress
		WHERE player_id = $1
	`, playerID).Scan(&out.PlayerID, &out.Alignment, &out.Experience, &out.CommissionRank, &out.Commission)
	if errors.Is(err, pgx.ErrNoRows) {
		return out, fmt.Errorf("%w: player %d", ErrPlayerNotFound, playerID)
	}
	return out, err
}
