package offlinequeue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marco-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/marco-pos/pkg/errors"
	"github.com/angelmondragon/marco-pos/pkg/metrics"
)

// DrainResult summarises one Drain call.
type DrainResult struct {
	Delivered    int
	DeadLettered int
	Remaining    int
	// Emptied is set when the queue had nothing left to send.
	Emptied bool
	// Halted is set when a retryable failure stopped the drain early.
	Halted bool
	// Skipped is set when another drain was already running.
	Skipped   bool
	LastError error
}

// Drain sends queued payloads through w oldest first, one at a time. A retryable
// failure leaves the head in place and stops; a non-retryable failure, or a head
// that has used up MaxAttempts, is moved to the dead letters and the drain goes on.
// Overlapping calls return immediately with Skipped set.
func (q *Queue) Drain(ctx context.Context, w Writer) DrainResult {
	if !q.syncing.CompareAndSwap(false, true) {
		q.metrics.IncDrain(metrics.DrainSkipped)
		return DrainResult{Skipped: true, Remaining: q.Size()}
	}
	defer q.syncing.Store(false)

	result := q.drain(ctx, w)
	switch {
	case result.Halted:
		q.metrics.IncDrain(metrics.DrainHalted)
	default:
		q.metrics.IncDrain(metrics.DrainEmptied)
	}
	q.metrics.AddDelivered(metrics.PathQueued, result.Delivered)

	if result.Delivered > 0 || result.DeadLettered > 0 || result.Halted {
		fields := map[string]any{
			"delivered":     result.Delivered,
			"dead_lettered": result.DeadLettered,
			"remaining":     result.Remaining,
			"halted":        result.Halted,
		}
		if result.LastError != nil {
			fields["error"] = result.LastError.Error()
		}
		q.logg.Info(q.logg.WithFields(ctx, fields), "offline queue drain finished")
	}
	return result
}

func (q *Queue) drain(ctx context.Context, w Writer) DrainResult {
	var result DrainResult
	// Bookkeeping after a write must land even if ctx was cancelled mid-write.
	persistCtx := context.WithoutCancel(ctx)
	for {
		head, ok := q.head()
		if !ok {
			result.Emptied = true
			return result
		}
		if err := ctx.Err(); err != nil {
			result.Halted = true
			result.LastError = err
			result.Remaining = q.Size()
			return result
		}

		started := time.Now()
		err := w.Write(ctx, head.Payload)
		q.metrics.ObserveWrite(time.Since(started), err)

		if err == nil {
			if perr := q.completeHead(persistCtx, head.Payload.ID); perr != nil {
				result.Delivered++
				result.Halted = true
				result.LastError = perr
				result.Remaining = q.Size()
				return result
			}
			result.Delivered++
			continue
		}

		result.LastError = err
		// A write aborted by our own cancellation says nothing about the sale.
		if cerr := ctx.Err(); cerr != nil {
			result.Halted = true
			result.Remaining = q.Size()
			return result
		}
		if !pkgerrors.IsRetryable(err) {
			if perr := q.deadLetterHead(persistCtx, head.Payload.ID, enums.DeadLetterReasonNonRetryable, err); perr != nil {
				result.Halted = true
				result.LastError = perr
				result.Remaining = q.Size()
				return result
			}
			result.DeadLettered++
			continue
		}

		exhausted, perr := q.failHead(persistCtx, head.Payload.ID, err)
		if perr != nil {
			result.Halted = true
			result.LastError = perr
			result.Remaining = q.Size()
			return result
		}
		if exhausted {
			result.DeadLettered++
			continue
		}
		result.Halted = true
		result.Remaining = q.Size()
		return result
	}
}

func (q *Queue) head() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return Entry{}, false
	}
	return q.entries[0], true
}

// headIndexLocked guards against the head having changed while the write was in flight.
func (q *Queue) headIndexLocked(id uuid.UUID) error {
	if len(q.entries) == 0 || q.entries[0].Payload.ID != id {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("queue head changed during drain (%s)", id))
	}
	return nil
}

// completeHead drops a delivered head. The removal stays in memory even if the
// persist fails; a stale copy on disk is resent later and the remote write ignores it.
func (q *Queue) completeHead(ctx context.Context, id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.headIndexLocked(id); err != nil {
		return err
	}
	q.entries = append([]Entry(nil), q.entries[1:]...)
	q.publishDepth()
	if err := q.persistLocked(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist offline queue")
	}

	ctx = q.logg.WithTransactionID(ctx, id.String())
	q.logg.Info(ctx, "queued sale delivered")
	return nil
}

func (q *Queue) deadLetterHead(ctx context.Context, id uuid.UUID, reason enums.DeadLetterReason, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.headIndexLocked(id); err != nil {
		return err
	}
	q.deadLetterHeadLocked(ctx, reason, cause)
	if err := q.persistLocked(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist offline queue")
	}
	return nil
}

func (q *Queue) deadLetterHeadLocked(ctx context.Context, reason enums.DeadLetterReason, cause error) {
	now := q.now().UTC()
	entry := q.entries[0]
	entry.LastError = errorMessage(cause)
	entry.LastAttemptAt = &now

	q.entries = append([]Entry(nil), q.entries[1:]...)
	q.dead = append(q.dead, DeadLetter{
		Entry:        entry,
		Reason:       reason,
		ErrorMessage: errorMessage(cause),
		FailedAt:     now,
	})
	q.publishDepth()

	ctx = q.logg.WithTransactionID(ctx, entry.Payload.ID.String())
	ctx = q.logg.WithFields(ctx, map[string]any{
		"error_reason":  reason,
		"attempt_count": entry.Attempts,
		"error":         entry.LastError,
	})
	q.logg.Warn(ctx, "queued sale will not be retried")
}

// failHead records a retryable failure on the head. It reports whether the head was
// dead-lettered because it ran out of attempts.
func (q *Queue) failHead(ctx context.Context, id uuid.UUID, cause error) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.headIndexLocked(id); err != nil {
		return false, err
	}

	now := q.now().UTC()
	head := &q.entries[0]
	head.Attempts++
	head.LastError = errorMessage(cause)
	head.LastAttemptAt = &now

	exhausted := q.maxAttempts > 0 && head.Attempts >= q.maxAttempts
	if exhausted {
		q.deadLetterHeadLocked(ctx, enums.DeadLetterReasonMaxAttempts, fmt.Errorf("max delivery attempts reached: %w", cause))
	} else {
		logCtx := q.logg.WithTransactionID(ctx, id.String())
		logCtx = q.logg.WithFields(logCtx, map[string]any{
			"attempt_count": head.Attempts,
			"error":         head.LastError,
		})
		q.logg.Warn(logCtx, "queued sale delivery failed, will retry")
	}

	if err := q.persistLocked(ctx); err != nil {
		return exhausted, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist offline queue")
	}
	return exhausted, nil
}
