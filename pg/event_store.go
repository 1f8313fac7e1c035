package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"hash/fnv"
	"time"

	chqcal "github.com/bbernstein/chq-calendar"
	"github.com/bbernstein/chq-calendar/errors"

	"github.com/lib/pq"
)

// EventStore stores and retrieves Events from a PostgreSQL database. The
// canonical event is stored whole as JSONB; the columns beside it exist for
// indexing and are rewritten from the JSON on every save.
type EventStore struct {
	DB *sql.DB
}

// Init sets up the database schema and creates indices.
func (e *EventStore) Init(ctx context.Context) error {
	const op errors.Op = "EventStore.Init"

	_, err := e.DB.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS events (
	   uid          VARCHAR(60)   NOT NULL,
	   source       TEXT          NOT NULL,
	   source_id    BIGINT        NOT NULL,
	   data         jsonb         NOT NULL,
	   start_time   timestamptz   NOT NULL,
	   end_time     timestamptz   NOT NULL,
	   sync_status  TEXT          NOT NULL,
	   updated_at   timestamptz   NOT NULL DEFAULT NOW()
	);

	CREATE UNIQUE INDEX IF NOT EXISTS event_uid_idx ON events (uid);

	-- A source must not list the same upstream id twice, whatever the uid
	-- derivation says.
	CREATE UNIQUE INDEX IF NOT EXISTS event_source_idx ON events (source, source_id);

	-- Range index to speed up EventStore.Search's window overlap test
	CREATE INDEX IF NOT EXISTS event_window_idx
	ON events
	USING GIST (tstzrange(start_time, end_time));
	`)
	if err != nil {
		return errors.E(op, pgErr(err))
	}

	return nil
}

// Save creates or updates an Event, keyed by its UID. The index columns are
// refreshed from the event in the same statement so Search never sees them
// drift from the JSON.
func (e *EventStore) Save(ctx context.Context, event chqcal.Event) (chqcal.Event, error) {
	const op errors.Op = "EventStore.Save"

	if event.UID == "" {
		return chqcal.Event{}, errors.E(op, errors.Invalid, errors.Str("event has no uid"))
	}

	data, err := json.Marshal(event)
	if err != nil {
		return chqcal.Event{}, errors.E(op, event.UID, err)
	}

	_, err = e.DB.ExecContext(ctx, `
		INSERT INTO events
			(uid, source, source_id, data, start_time, end_time, sync_status, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (uid) DO UPDATE
			SET data=$4, start_time=$5, end_time=$6, sync_status=$7, updated_at=NOW()
		`,
		event.UID,
		event.Source,
		event.ID,
		data,
		event.StartDate,
		event.EndDate,
		event.SyncStatus)
	if err != nil {
		return chqcal.Event{}, errors.E(op, event.UID, pgErr(err), "insert event")
	}

	return e.GetByUID(ctx, event.UID)
}

// GetByUID finds an event by its UID.
func (e *EventStore) GetByUID(ctx context.Context, uid chqcal.EventUID) (chqcal.Event, error) {
	const op errors.Op = "EventStore.GetByUID"

	events, err := e.fetchEvents(ctx, `WHERE uid = ANY ($1)`, uidArray([]chqcal.EventUID{uid}))
	if err != nil {
		return chqcal.Event{}, errors.E(op, uid, err)
	}
	if len(events) == 0 {
		return chqcal.Event{}, errors.E(op, uid, errors.NotExist)
	}

	return events[0], nil
}

// Search returns the stored events whose spans overlap the request window,
// ordered by start time. Soft-deleted events stay out of the results unless
// the request asks for them. The dimensional filter is applied by the caller;
// the store only narrows by time and sync status.
func (e *EventStore) Search(ctx context.Context, params chqcal.EventSearchRequest) ([]chqcal.Event, error) {
	const op errors.Op = "EventStore.Search"

	events, err := e.fetchEvents(ctx, `
		WHERE tstzrange(start_time, end_time) && tstzrange($1::timestamptz, $2::timestamptz)
		AND ($3 OR sync_status <> 'outdated')
		`,
		nullTime(params.Start),
		nullTime(params.End),
		params.IncludeOutdated)
	if err != nil {
		return nil, errors.E(op, err)
	}

	return events, nil
}

// InWindow returns every stored event of one source whose span overlaps
// [start, end), outdated ones included. The sync reconciler diffs this set
// against what the feed returned.
func (e *EventStore) InWindow(ctx context.Context, src chqcal.Source, start, end time.Time) ([]chqcal.Event, error) {
	const op errors.Op = "EventStore.InWindow"

	events, err := e.fetchEvents(ctx, `
		WHERE source = $1
		AND tstzrange(start_time, end_time) && tstzrange($2::timestamptz, $3::timestamptz)
		`,
		src,
		nullTime(start),
		nullTime(end))
	if err != nil {
		return nil, errors.E(op, err)
	}

	return events, nil
}

func (e *EventStore) fetchEvents(ctx context.Context, expr string, vals ...interface{}) ([]chqcal.Event, error) {
	events := []chqcal.Event{}

	rows, err := e.DB.QueryContext(ctx, `
	SELECT data
	FROM events
	`+expr+`
	ORDER BY start_time ASC, uid ASC
	`, vals...)
	if err != nil {
		return events, errors.E(pgErr(err), "select events")
	}
	defer rows.Close()

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return events, pgErr(err)
		}

		var event chqcal.Event
		if err := json.Unmarshal(data, &event); err != nil {
			return events, err
		}

		// Rehome the timestamps: they come back in the connection's
		// zone, but wall-clock logic downstream expects the event's own.
		location, err := time.LoadLocation(event.Timezone)
		if err != nil {
			location = time.UTC
		}
		event.StartDate = event.StartDate.In(location)
		event.EndDate = event.EndDate.In(location)

		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return events, err
	}

	return events, nil
}

// LockWindow takes the advisory lock guarding sync runs over a date range.
// ok is false when another run already holds the same range. On success the
// release func must be called to free the lock.
//
// Advisory locks are session-scoped, so the lock is pinned to a dedicated
// connection for its whole lifetime; release returns that connection to the
// pool.
func (e *EventStore) LockWindow(ctx context.Context, start, end time.Time) (release func(), ok bool, err error) {
	const op errors.Op = "EventStore.LockWindow"

	conn, err := e.DB.Conn(ctx)
	if err != nil {
		return nil, false, errors.E(op, pgErr(err))
	}

	key := windowLockKey(start, end)

	var got bool
	row := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, key)
	if err := row.Scan(&got); err != nil {
		conn.Close()
		return nil, false, errors.E(op, pgErr(err))
	}
	if !got {
		conn.Close()
		return nil, false, nil
	}

	release = func() {
		// Unlock on a background context: a canceled sync still has to
		// give the lock back.
		conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, key)
		conn.Close()
	}
	return release, true, nil
}

// windowLockKey folds a date range into the int64 key space advisory locks
// use. Two runs conflict only when their ranges are identical.
func windowLockKey(start, end time.Time) int64 {
	h := fnv.New64a()
	h.Write([]byte("sync:"))
	h.Write([]byte(start.UTC().Format(time.RFC3339)))
	h.Write([]byte("/"))
	h.Write([]byte(end.UTC().Format(time.RFC3339)))
	return int64(h.Sum64())
}

func uidArray(uids []chqcal.EventUID) pq.StringArray {
	var arr pq.StringArray
	for _, uid := range uids {
		arr = append(arr, string(uid))
	}
	return arr
}

// nullTime maps zero times to NULL so they leave a tstzrange bound open.
func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
