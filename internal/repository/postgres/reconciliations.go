package postgresrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/repository"
)

const strandedColumns = `id, capture_id, provider, user_id, show_id, seats, amount_cents,
	currency, reason, created_at, resolved_at, resolved_by`

type ReconciliationRepo struct {
	pool Pool
	db   DB
}

func (r *ReconciliationRepo) With(db DB) *ReconciliationRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ReconciliationRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create records a stranded capture and fills in its CreatedAt.
func (r *ReconciliationRepo) Create(ctx context.Context, sc *domain.StrandedCapture) error {
	const op = "postgres.ReconciliationRepo.Create"

	err := r.handle().QueryRow(ctx,
		`INSERT INTO stranded_captures(id, capture_id, provider, user_id, show_id, seats,
			amount_cents, currency, reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at`,
		sc.ID, sc.CaptureID, sc.Provider, sc.UserID, sc.ShowID, sc.Seats,
		sc.AmountCents, sc.Currency, sc.Reason,
	).Scan(&sc.CreatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// ListPending returns unresolved entries, oldest first.
func (r *ReconciliationRepo) ListPending(ctx context.Context, limit int) ([]domain.StrandedCapture, error) {
	const op = "postgres.ReconciliationRepo.ListPending"

	rows, err := r.handle().Query(ctx,
		`SELECT `+strandedColumns+`
		 FROM stranded_captures
		 WHERE resolved_at IS NULL
		 ORDER BY created_at
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	out := []domain.StrandedCapture{}
	for rows.Next() {
		sc, err := scanStranded(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *sc)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Resolve marks an entry handled by the given operator.
//
// Returns:
//   - error: repository.ErrNotFound if the entry does not exist.
//   - error: repository.ErrAlreadyResolved if it was resolved before.
func (r *ReconciliationRepo) Resolve(ctx context.Context, id uuid.UUID, by string) (*domain.StrandedCapture, error) {
	const op = "postgres.ReconciliationRepo.Resolve"

	db := r.handle()

	sc, err := scanStranded(db.QueryRow(ctx,
		`UPDATE stranded_captures
		 SET resolved_at = now(), resolved_by = $2
		 WHERE id = $1 AND resolved_at IS NULL
		 RETURNING `+strandedColumns,
		id, by,
	))
	if err == nil {
		return sc, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, wrapDBErr(op, err)
	}

	var exists bool
	if err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM stranded_captures WHERE id = $1)`,
		id,
	).Scan(&exists); err != nil {
		return nil, wrapDBErr(op, err)
	}
	if exists {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrAlreadyResolved)
	}

	return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
}

func scanStranded(row pgx.Row) (*domain.StrandedCapture, error) {
	var (
		sc         domain.StrandedCapture
		resolvedBy *string
	)

	if err := row.Scan(
		&sc.ID, &sc.CaptureID, &sc.Provider, &sc.UserID, &sc.ShowID, &sc.Seats,
		&sc.AmountCents, &sc.Currency, &sc.Reason, &sc.CreatedAt, &sc.ResolvedAt, &resolvedBy,
	); err != nil {
		return nil, err
	}

	if resolvedBy != nil {
		sc.ResolvedBy = *resolvedBy
	}

	return &sc, nil
}
