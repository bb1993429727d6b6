package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/jackpot/internal/models"
)

// RoundStore appends resolved rounds to round_history.
type RoundStore struct {
	db *DB
}

func NewRoundStore(db *DB) *RoundStore {
	return &RoundStore{db: db}
}

// InsertRounds writes a batch of round records in a single transaction.
// Records already present are skipped, so a redelivered batch is harmless.
func (s *RoundStore) InsertRounds(ctx context.Context, records []models.RoundRecord) error {
	if len(records) == 0 {
		return nil
	}
	q := `
	INSERT INTO round_history (round_id, lobby, winner_id, winner_name, payout, bets,
	                           started_at, resolved_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (round_id) DO NOTHING
	`
	return pgx.BeginTxFunc(ctx, s.db.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			bets, err := json.Marshal(rec.Bets)
			if err != nil {
				return fmt.Errorf("failed to marshal bets of round %s: %w", rec.RoundID, err)
			}
			if _, err := tx.Exec(ctx, q,
				rec.RoundID, rec.Lobby, rec.WinnerID, rec.WinnerName, rec.Payout, bets,
				rec.StartedAt, rec.ResolvedAt,
			); err != nil {
				return fmt.Errorf("failed to insert round %s: %w", rec.RoundID, err)
			}
		}
		return nil
	})
}

// RecentRounds returns the latest limit rounds of a lobby, newest first.
func (s *RoundStore) RecentRounds(ctx context.Context, lobbyID string, limit int) ([]models.RoundRecord, error) {
	q := `
	SELECT round_id, lobby, winner_id, winner_name, payout, bets, started_at, resolved_at
	FROM round_history
	WHERE lobby = $1
	ORDER BY resolved_at DESC
	LIMIT $2
	`
	rows, err := s.db.Query(ctx, q, lobbyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer rows.Close()

	var out []models.RoundRecord
	for rows.Next() {
		var (
			rec  models.RoundRecord
			bets []byte
		)
		if err := rows.Scan(&rec.RoundID, &rec.Lobby, &rec.WinnerID, &rec.WinnerName,
			&rec.Payout, &bets, &rec.StartedAt, &rec.ResolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		if err := json.Unmarshal(bets, &rec.Bets); err != nil {
			return nil, fmt.Errorf("failed to decode bets of round %s: %w", rec.RoundID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
