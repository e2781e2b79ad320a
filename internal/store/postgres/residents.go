package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/portones-fc/access/internal/domain"
)

func (s *Store) GetResident(ctx context.Context, id string) (*domain.Resident, error) {
	const q = `SELECT id, name, house_id, colonia_id, access_revoked, created_at
		FROM residents WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var r domain.Resident
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&r.ID, &r.Name, &r.HouseID, &r.ColoniaID, &r.AccessRevoked, &r.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
