package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/portones-fc/access/internal/domain"
)

const passCols = `id, short_code, policy_type, house_id, visitor_name, id_photo_url,
created_at, expires_at, max_uses, used_visits, is_visitor_inside, revoked_at`

func scanPass(row pgx.Row) (*domain.VisitorPass, error) {
	var p domain.VisitorPass
	err := row.Scan(
		&p.ID, &p.ShortCode, &p.PolicyType, &p.HouseID, &p.VisitorName, &p.IDPhotoURL,
		&p.CreatedAt, &p.ExpiresAt, &p.MaxUses, &p.UsedVisits, &p.IsVisitorInside, &p.RevokedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePass inserts a pass, enforcing the active-pass cap for the pass's
// (house, policy) when houseCap is set. The count and insert run in one
// transaction serialized by an advisory lock, so two issuances against the
// same slot cannot both pass the check.
func (s *Store) CreatePass(ctx context.Context, pass *domain.VisitorPass, houseCap *int) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if houseCap != nil {
		const lockQ = `SELECT pg_advisory_xact_lock(hashtext($1))`
		if _, err := tx.Exec(ctx, lockQ, string(pass.PolicyType)+":"+pass.HouseID); err != nil {
			return err
		}

		const countQ = `SELECT count(*) FROM visitor_passes
			WHERE house_id=$1 AND policy_type=$2
			  AND revoked_at IS NULL AND expires_at > now() AND used_visits < max_uses`
		var active int
		if err := tx.QueryRow(ctx, countQ, pass.HouseID, pass.PolicyType).Scan(&active); err != nil {
			return err
		}
		if active >= *houseCap {
			return domain.ErrQuotaExceeded
		}
	}

	const insertQ = `INSERT INTO visitor_passes (
		id, short_code, policy_type, house_id, visitor_name, id_photo_url,
		created_at, expires_at, max_uses, used_visits, is_visitor_inside
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,0,false)`
	if _, err := tx.Exec(ctx, insertQ,
		pass.ID, pass.ShortCode, pass.PolicyType, pass.HouseID,
		pass.VisitorName, pass.IDPhotoURL,
		pass.CreatedAt, pass.ExpiresAt, pass.MaxUses,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrShortCodeTaken
		}
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) GetPassByID(ctx context.Context, id string) (*domain.VisitorPass, error) {
	const q = `SELECT ` + passCols + ` FROM visitor_passes WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanPass(s.pool.QueryRow(ctx, q, id))
}

func (s *Store) GetPassByShortCode(ctx context.Context, code string) (*domain.VisitorPass, error) {
	const q = `SELECT ` + passCols + ` FROM visitor_passes WHERE short_code=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanPass(s.pool.QueryRow(ctx, q, code))
}

func (s *Store) ListPassesByHouse(ctx context.Context, houseID string) ([]domain.VisitorPass, error) {
	const q = `SELECT ` + passCols + ` FROM visitor_passes WHERE house_id=$1 ORDER BY created_at DESC`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := s.pool.Query(ctx, q, houseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var passes []domain.VisitorPass
	for rows.Next() {
		var p domain.VisitorPass
		if err := rows.Scan(
			&p.ID, &p.ShortCode, &p.PolicyType, &p.HouseID, &p.VisitorName, &p.IDPhotoURL,
			&p.CreatedAt, &p.ExpiresAt, &p.MaxUses, &p.UsedVisits, &p.IsVisitorInside, &p.RevokedAt,
		); err != nil {
			return nil, err
		}
		passes = append(passes, p)
	}
	return passes, rows.Err()
}

// ConsumePass burns one use in a single guarded update; the WHERE clause
// re-checks validity so concurrent redemptions cannot overdraw the budget.
func (s *Store) ConsumePass(ctx context.Context, id string) (*domain.VisitorPass, error) {
	const q = `UPDATE visitor_passes SET
			used_visits = used_visits + 1,
			is_visitor_inside = NOT is_visitor_inside
		WHERE id=$1 AND revoked_at IS NULL AND expires_at > now() AND used_visits < max_uses
		RETURNING ` + passCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var p domain.VisitorPass
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&p.ID, &p.ShortCode, &p.PolicyType, &p.HouseID, &p.VisitorName, &p.IDPhotoURL,
		&p.CreatedAt, &p.ExpiresAt, &p.MaxUses, &p.UsedVisits, &p.IsVisitorInside, &p.RevokedAt,
	)
	if err == pgx.ErrNoRows {
		const existsQ = `SELECT EXISTS (SELECT 1 FROM visitor_passes WHERE id=$1)`
		var exists bool
		if err := s.pool.QueryRow(ctx, existsQ, id).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, nil
		}
		return nil, domain.ErrAlreadyConsumed
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// RevokePass marks the pass revoked once; repeat calls return the pass
// unchanged.
func (s *Store) RevokePass(ctx context.Context, id, houseID string) (*domain.VisitorPass, error) {
	const q = `UPDATE visitor_passes SET revoked_at = now()
		WHERE id=$1 AND house_id=$2 AND revoked_at IS NULL
		RETURNING ` + passCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanPass(s.pool.QueryRow(ctx, q, id, houseID))
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}

	const getQ = `SELECT ` + passCols + ` FROM visitor_passes WHERE id=$1 AND house_id=$2`
	return scanPass(s.pool.QueryRow(ctx, getQ, id, houseID))
}
