package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/portones-fc/access/internal/domain"
)

const gateCols = `id, name, gate_type, colonia_id, enabled, created_at`

func (s *Store) GetGate(ctx context.Context, id string) (*domain.Gate, error) {
	const q = `SELECT ` + gateCols + ` FROM gates WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var g domain.Gate
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&g.ID, &g.Name, &g.Type, &g.ColoniaID, &g.Enabled, &g.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) ListGatesByColonia(ctx context.Context, coloniaID string) ([]domain.Gate, error) {
	const q = `SELECT ` + gateCols + ` FROM gates WHERE colonia_id=$1 ORDER BY id`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := s.pool.Query(ctx, q, coloniaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gates []domain.Gate
	for rows.Next() {
		var g domain.Gate
		if err := rows.Scan(&g.ID, &g.Name, &g.Type, &g.ColoniaID, &g.Enabled, &g.CreatedAt); err != nil {
			return nil, err
		}
		gates = append(gates, g)
	}
	return gates, rows.Err()
}
