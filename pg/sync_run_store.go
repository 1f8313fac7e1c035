package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	chqcal "github.com/bbernstein/chq-calendar"
	"github.com/bbernstein/chq-calendar/errors"
)

// SyncRunStore stores and retrieves SyncRuns from a PostgreSQL database.
type SyncRunStore struct {
	DB *sql.DB
}

// Init sets up the database schema.
func (s *SyncRunStore) Init(ctx context.Context) error {
	const op errors.Op = "SyncRunStore.Init"

	_, err := s.DB.ExecContext(ctx, `
    CREATE TABLE IF NOT EXISTS sync_runs (
	   sequence       SERIAL        NOT NULL,
	   id             VARCHAR(40),

	   range_start    timestamptz,
	   range_end      timestamptz,

	   result         jsonb         NOT NULL,

	   created_at     timestamptz   NOT NULL DEFAULT NOW()
	);
	CREATE UNIQUE INDEX IF NOT EXISTS sync_run_id_idx ON sync_runs (id);`)
	if err != nil {
		return errors.E(op, pgErr(err))
	}

	return nil
}

// Create saves a new SyncRun
func (s *SyncRunStore) Create(ctx context.Context, run chqcal.SyncRun) (chqcal.SyncRun, error) {
	const op errors.Op = "SyncRunStore.Create"

	result, err := json.Marshal(run.Result)
	if err != nil {
		return run, errors.E(op, err)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return run, errors.E(op, pgErr(err))
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
	INSERT INTO sync_runs
		(range_start, range_end, result)
	VALUES
		($1, $2, $3)
	RETURNING sequence`,
		nullTime(run.Start), nullTime(run.End), result)

	var sequence int64
	if err = row.Scan(&sequence); err != nil {
		return run, errors.E(op, pgErr(err), "get run id")
	}

	runID := chqcal.SyncRunID(fmt.Sprint(sequence))
	_, err = tx.ExecContext(ctx, `
	UPDATE sync_runs
	SET id = $1
	WHERE sequence = $2`, runID, sequence)
	if err != nil {
		return run, errors.E(op, pgErr(err), "set run id")
	}

	if err := tx.Commit(); err != nil {
		return run, errors.E(op, pgErr(err))
	}

	return s.Get(ctx, runID)
}

// Get retrieves a SyncRun by ID.
func (s *SyncRunStore) Get(ctx context.Context, id chqcal.SyncRunID) (chqcal.SyncRun, error) {
	const op errors.Op = "SyncRunStore.Get"

	runs, err := s.list(ctx, "WHERE id = $1", id)
	if err != nil {
		return chqcal.SyncRun{}, errors.E(op, err)
	}
	if len(runs) == 0 {
		return chqcal.SyncRun{}, errors.E(op, errors.NotExist, "sync run not found")
	}

	return runs[0], nil
}

// Latest retrieves the most recently recorded SyncRun.
func (s *SyncRunStore) Latest(ctx context.Context) (chqcal.SyncRun, error) {
	const op errors.Op = "SyncRunStore.Latest"

	runs, err := s.list(ctx, "ORDER BY sequence DESC LIMIT 1")
	if err != nil {
		return chqcal.SyncRun{}, errors.E(op, err)
	}
	if len(runs) == 0 {
		return chqcal.SyncRun{}, errors.E(op, errors.NotExist, "no sync has run yet")
	}

	return runs[0], nil
}

// List returns recorded runs newest first, paged.
func (s *SyncRunStore) List(ctx context.Context, opts chqcal.SyncRunListRequest) ([]chqcal.SyncRun, error) {
	const pageSize = 20

	offset := opts.Page * pageSize
	limit := pageSize

	return s.list(ctx, `
		ORDER BY sequence DESC
		OFFSET $1
		LIMIT $2
		`, offset, limit)
}

func (s *SyncRunStore) list(ctx context.Context, expr string, vals ...interface{}) ([]chqcal.SyncRun, error) {
	query := fmt.Sprintf(`
	SELECT
		id,
		range_start,
		range_end,
		result,
		created_at
	FROM sync_runs
	%s`, expr)

	rows, err := s.DB.QueryContext(ctx, query, vals...)
	if err != nil {
		return nil, errors.E(pgErr(err), "sync run list")
	}
	defer rows.Close()

	runs := []chqcal.SyncRun{}
	for rows.Next() {
		var (
			run        chqcal.SyncRun
			start, end sql.NullTime
			result     []byte
		)
		err := rows.Scan(
			&run.ID,
			&start,
			&end,
			&result,
			&run.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if start.Valid {
			run.Start = start.Time
		}
		if end.Valid {
			run.End = end.Time
		}
		if err := json.Unmarshal(result, &run.Result); err != nil {
			return nil, err
		}

		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}
