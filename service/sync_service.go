package service

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	chqcal "github.com/bbernstein/chq-calendar"
	"github.com/bbernstein/chq-calendar/errors"
	"github.com/bbernstein/chq-calendar/log"
	"github.com/bbernstein/chq-calendar/prom"
	"github.com/bbernstein/chq-calendar/season"
	"github.com/bbernstein/chq-calendar/tribe"
)

// Sync walks the upstream feed for a date range and reconciles the stored
// events against it: new records are created, drifted records are updated
// with their changes logged, and records the feed no longer lists are marked
// outdated. The window defaults to the current season.
//
// One window syncs at a time: overlapping runs would race the deletion step
// against each other's view of what the feed contains, so a second run on the
// same window fails with a Conflict.
//
// A transport failure mid-walk aborts the remaining pages but keeps the work
// already committed; the result reports Success=false with the pages' counts.
// A record that fails normalization is logged in Errors and skipped without
// aborting anything.
func (s *Service) Sync(ctx context.Context, req chqcal.SyncRequest) (chqcal.SyncResult, error) {
	const op errors.Op = "Service.Sync"

	logger := log.FromContext(ctx)

	now := s.now()
	wallStart := time.Now()

	start, end := req.Start, req.End
	ssn := season.Current(now, s.location())
	if start.IsZero() {
		start = ssn.Start
	}
	if end.IsZero() {
		end = ssn.End
	}

	result := chqcal.SyncResult{StartedAt: now}

	release, ok, err := s.EventStore.LockWindow(ctx, start, end)
	if err != nil {
		return result, errors.E(op, err)
	}
	if !ok {
		return result, errors.E(op, errors.Conflict,
			errors.Str("a sync for this window is already running"))
	}
	defer release()

	perPage := req.PerPage
	if perPage <= 0 {
		perPage = chqcal.DefaultPerPage
	}
	misses := req.DeleteAfterMisses
	if misses <= 0 {
		misses = chqcal.DefaultDeleteAfterMisses
	}

	seen := map[chqcal.EventUID]bool{}

	var (
		aborted  bool
		complete bool
	)

	pageNum := 1
	pageURL := ""
	for {
		if req.MaxPages > 0 && pageNum > req.MaxPages {
			// Capped before the feed's natural end, so the unseen
			// remainder says nothing about deletions.
			break
		}
		if err := ctx.Err(); err != nil {
			// An abort between pages keeps the pages already
			// committed.
			result.Errors = append(result.Errors, errors.E(op, errors.Transport, err).Error())
			aborted = true
			break
		}

		page, err := s.fetchSyncPage(ctx, tribe.EventsRequest{
			Start:   start,
			End:     end,
			Page:    pageNum,
			PerPage: perPage,
		}, pageURL)
		if err != nil {
			result.Errors = append(result.Errors, errors.E(op, errors.Transport, err).Error())
			aborted = true
			break
		}
		if page == nil {
			complete = true
			break
		}
		prom.RecordSyncPage()

		// Records apply in feed order so a uid repeated across pages
		// resolves last-write-wins.
		for _, raw := range page.Events {
			uid, ok := s.syncEvent(ctx, raw, now, &result)
			if ok {
				seen[uid] = true
			}
		}

		if page.NextRestURL == "" || pageNum >= page.TotalPages {
			complete = true
			break
		}
		pageURL = page.NextRestURL
		pageNum++
	}

	// Deletions reconcile only after a complete walk: a half-read feed
	// says nothing about the events in its unread half.
	if complete {
		s.reconcile(ctx, start, end, seen, now, misses, &result)
	}

	result.Success = !aborted
	result.Duration = time.Since(wallStart)
	prom.RecordSyncRun(result)

	// Record the run even when the walk was aborted; partial results are
	// still committed results. A canceled sync records on a fresh context.
	recordCtx := ctx
	if recordCtx.Err() != nil {
		var cancel context.CancelFunc
		recordCtx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}
	if _, err := s.SyncRunStore.Create(recordCtx, chqcal.SyncRun{
		Start:  start,
		End:    end,
		Result: result,
	}); err != nil {
		logger.Error("failed to record sync run", zap.Error(err))
		result.Errors = append(result.Errors, errors.E(op, err).Error())
	}

	logger.Info("sync finished",
		zap.Bool("success", result.Success),
		zap.Int("processed", result.EventsProcessed),
		zap.Int("created", result.EventsCreated),
		zap.Int("updated", result.EventsUpdated),
		zap.Int("deleted", result.EventsDeleted),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// fetchSyncPage gets one page of the feed, retrying transient failures. A
// past-the-end answer comes back as a nil page with a nil error: the feed can
// shrink while being paginated, and walking off its end just means the walk
// is done.
func (s *Service) fetchSyncPage(ctx context.Context, req tribe.EventsRequest, pageURL string) (*tribe.EventsResponse, error) {
	var page *tribe.EventsResponse

	err := retry(ctx, 2, func() error {
		var (
			resp *tribe.EventsResponse
			err  error
		)
		if pageURL == "" {
			resp, err = s.Feed.Events(ctx, req)
		} else {
			resp, err = s.Feed.EventsPage(ctx, pageURL)
		}
		if tribe.IsPastEnd(err) {
			page = nil
			return nil
		}
		if err != nil {
			return err
		}
		page = resp
		return nil
	})
	return page, err
}

// syncEvent normalizes one raw feed record and upserts it. The returned uid
// marks the record as present upstream; ok is false only for records too
// broken to identify at all.
func (s *Service) syncEvent(ctx context.Context, raw json.RawMessage, now time.Time, result *chqcal.SyncResult) (chqcal.EventUID, bool) {
	const op errors.Op = "Service.syncEvent"

	result.EventsProcessed++

	next, err := s.Normalizer.Event(raw)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		if e, ok := err.(*errors.Error); ok && e.UID != "" {
			// The record is still in the feed, just unusable this
			// round; keep its stored version off the deletion list.
			return e.UID, true
		}
		return "", false
	}

	prev, err := s.EventStore.GetByUID(ctx, next.UID)
	if errors.Is(errors.NotExist, err) {
		next.CreatedAt = now
		next.UpdatedAt = now
		next.LastModified = now
		if _, err := s.EventStore.Save(ctx, *next); err != nil {
			result.Errors = append(result.Errors, errors.E(op, next.UID, err).Error())
			return next.UID, true
		}
		result.EventsCreated++
		return next.UID, true
	}
	if err != nil {
		result.Errors = append(result.Errors, errors.E(op, next.UID, err).Error())
		return next.UID, true
	}

	// Carry the stored bookkeeping over so the diff sees only real field
	// drift. A record that came back from the dead still diffs: its stored
	// syncStatus is outdated and its normalized one is synced.
	next.CreatedAt = prev.CreatedAt
	next.UpdatedAt = prev.UpdatedAt
	next.LastModified = prev.LastModified
	next.ChangeLog = prev.ChangeLog
	next.MissingSyncs = 0

	changes := chqcal.Diff(&prev, next, now, chqcal.SourceTribe)
	if len(changes) == 0 && prev.MissingSyncs == 0 {
		// Unchanged upstream; the whole sync is a no-op for this
		// record.
		return next.UID, true
	}

	if len(changes) > 0 {
		next.ChangeLog = append(next.ChangeLog, changes...)
		next.LastModified = now
	}
	next.UpdatedAt = now

	if _, err := s.EventStore.Save(ctx, *next); err != nil {
		result.Errors = append(result.Errors, errors.E(op, next.UID, err).Error())
		return next.UID, true
	}
	if len(changes) > 0 {
		result.EventsUpdated++
	}
	return next.UID, true
}

// reconcile marks stored events the walk never saw. Each miss is counted;
// at the threshold the event is soft-deleted by flipping its syncStatus to
// outdated, with the flip logged like any other field change. Rows are never
// removed.
func (s *Service) reconcile(ctx context.Context, start, end time.Time, seen map[chqcal.EventUID]bool, now time.Time, misses int, result *chqcal.SyncResult) {
	const op errors.Op = "Service.reconcile"

	stored, err := s.EventStore.InWindow(ctx, chqcal.SourceTribe, start, end)
	if err != nil {
		result.Errors = append(result.Errors, errors.E(op, err).Error())
		return
	}

	for i := range stored {
		prev := stored[i]
		if seen[prev.UID] || prev.SyncStatus == chqcal.SyncOutdated {
			continue
		}

		next := prev
		next.MissingSyncs++
		next.UpdatedAt = now

		outdate := next.MissingSyncs >= misses
		if outdate {
			next.SyncStatus = chqcal.SyncOutdated
			changes := chqcal.Diff(&prev, &next, now, chqcal.SourceTribe)
			next.ChangeLog = append(next.ChangeLog, changes...)
			next.LastModified = now
		}

		if _, err := s.EventStore.Save(ctx, next); err != nil {
			result.Errors = append(result.Errors, errors.E(op, prev.UID, err).Error())
			continue
		}
		if outdate {
			result.EventsDeleted++
		}
	}
}

// SyncRuns lists recorded sync runs, newest first.
func (s *Service) SyncRuns(ctx context.Context, req chqcal.SyncRunListRequest) ([]chqcal.SyncRun, error) {
	const op errors.Op = "Service.SyncRuns"

	runs, err := s.SyncRunStore.List(ctx, req)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return runs, nil
}

// SyncRunLatest returns the most recent recorded run.
func (s *Service) SyncRunLatest(ctx context.Context) (chqcal.SyncRun, error) {
	const op errors.Op = "Service.SyncRunLatest"

	run, err := s.SyncRunStore.Latest(ctx)
	if err != nil {
		return run, errors.E(op, err)
	}
	return run, nil
}

// retry is a simple exponential backoff function. If you cancel the context
// passed to it retries will stop.
func retry(ctx context.Context, count int, f func() error) error {
	retries := count

RETRY:
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := f(); err != nil {
		if retries == 0 {
			return err
		}

		retries--
		backoff := (math.Pow(2, float64(retries)) + rand.Float64()) * float64(time.Second)
		time.Sleep(time.Duration(backoff))
		goto RETRY
	}

	return nil
}
