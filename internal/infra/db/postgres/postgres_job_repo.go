package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/averbusem/unbroken-vpn-bot/internal/domain"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/model"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*jobRepo)(nil)

type jobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *jobRepo {
	return &jobRepo{pool: pool}
}

func (r *jobRepo) Add(ctx context.Context, qx repository.Tx, j *model.Job) error {
	const q = `
INSERT INTO scheduler_jobs (id, run_at, handler_key, args, created_at)
VALUES ($1, $2, $3, $4, $5);
`
	_, err := execSQL(ctx, r.pool, qx, q, j.ID, j.RunAt, string(j.Handler), j.Args, j.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return domain.ErrOperationFailed
	}
	return nil
}

// Replace is remove-if-present then insert, in one statement, so repeated
// scheduling for the same job_id is a no-op beyond updating run_at/args.
func (r *jobRepo) Replace(ctx context.Context, qx repository.Tx, j *model.Job) error {
	const q = `
INSERT INTO scheduler_jobs (id, run_at, handler_key, args, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
  run_at = EXCLUDED.run_at,
  handler_key = EXCLUDED.handler_key,
  args = EXCLUDED.args,
  locked_by = NULL,
  locked_at = NULL;
`
	_, err := execSQL(ctx, r.pool, qx, q, j.ID, j.RunAt, string(j.Handler), j.Args, j.CreatedAt)
	if err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

const jobColumns = `id, run_at, handler_key, args, created_at, COALESCE(locked_by, ''), locked_at`

func scanJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	var handler string
	if err := row.Scan(&j.ID, &j.RunAt, &handler, &j.Args, &j.CreatedAt, &j.LockedBy, &j.LockedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	j.Handler = model.HandlerKey(handler)
	return &j, nil
}

func (r *jobRepo) Get(ctx context.Context, qx repository.Tx, id string) (*model.Job, error) {
	q := `SELECT ` + jobColumns + ` FROM scheduler_jobs WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, qx, q, id)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

func (r *jobRepo) Remove(ctx context.Context, qx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, qx, `DELETE FROM scheduler_jobs WHERE id=$1;`, id)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Due lists jobs at or before asOf that are not currently locked by another
// dispatcher. It does not itself claim them — the scheduler's single-flight
// dispatch (Claim, below) owns that.
func (r *jobRepo) Due(ctx context.Context, qx repository.Tx, asOf time.Time) ([]*model.Job, error) {
	q := `SELECT ` + jobColumns + ` FROM scheduler_jobs WHERE run_at <= $1 AND locked_by IS NULL ORDER BY run_at ASC;`
	rows, err := queryRows(ctx, r.pool, qx, q, asOf)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

// Claim marks an unlocked due job as owned by owner in one round trip,
// so two dispatchers racing on the same Due() snapshot cannot both fire it.
func (r *jobRepo) Claim(ctx context.Context, qx repository.Tx, id, owner string) (bool, error) {
	const q = `
UPDATE scheduler_jobs SET locked_by = $2, locked_at = now()
WHERE id = $1 AND locked_by IS NULL;
`
	tag, err := execSQL(ctx, r.pool, qx, q, id, owner)
	if err != nil {
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() > 0, nil
}

// Release clears a job's lock after a failed handler so the next sweep
// picks it back up. Unlike Replace it leaves run_at untouched.
func (r *jobRepo) Release(ctx context.Context, qx repository.Tx, id string) error {
	_, err := execSQL(ctx, r.pool, qx, `UPDATE scheduler_jobs SET locked_by = NULL, locked_at = NULL WHERE id = $1;`, id)
	if err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}
