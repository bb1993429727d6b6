package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/jackpot/internal/models"
	"github.com/jason-s-yu/jackpot/internal/profile"
)

// ProfileStore persists participant profiles in the profiles table.
type ProfileStore struct {
	db *DB
}

func NewProfileStore(db *DB) *ProfileStore {
	return &ProfileStore{db: db}
}

var _ profile.Store = (*ProfileStore)(nil)

func (s *ProfileStore) LoadAll(ctx context.Context) (map[string]models.Profile, error) {
	q := `
	SELECT id, name, balance, wins, losses, total_bet, total_won, games_played,
	       joined_at, last_active
	FROM profiles
	`
	rows, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.Profile)
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Balance, &p.Wins, &p.Losses,
			&p.TotalBet, &p.TotalWon, &p.GamesPlayed,
			&p.JoinedAt, &p.LastActive,
		); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}
	return out, nil
}

func (s *ProfileStore) Save(ctx context.Context, p models.Profile) error {
	q := `
	INSERT INTO profiles (id, name, balance, wins, losses, total_bet, total_won,
	                      games_played, joined_at, last_active)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		balance = EXCLUDED.balance,
		wins = EXCLUDED.wins,
		losses = EXCLUDED.losses,
		total_bet = EXCLUDED.total_bet,
		total_won = EXCLUDED.total_won,
		games_played = EXCLUDED.games_played,
		last_active = EXCLUDED.last_active
	`
	err := pgx.BeginTxFunc(ctx, s.db.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q,
			p.ID, p.Name, p.Balance, p.Wins, p.Losses,
			p.TotalBet, p.TotalWon, p.GamesPlayed,
			p.JoinedAt, p.LastActive,
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to upsert profile %s: %w", p.ID, err)
	}
	return nil
}

func (s *ProfileStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return profile.ErrNotFound
	}
	return nil
}
