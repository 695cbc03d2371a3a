// Package offlinequeue buffers sales that could not be written to the remote store
// and replays them in order once connectivity returns.
package offlinequeue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marco-pos/internal/transactions"
	"github.com/angelmondragon/marco-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/marco-pos/pkg/errors"
	"github.com/angelmondragon/marco-pos/pkg/localstore"
	"github.com/angelmondragon/marco-pos/pkg/logger"
	"github.com/angelmondragon/marco-pos/pkg/metrics"
)

const DefaultKey = "marco-pos-offline-queue"

// Writer delivers one payload to the remote store. Errors are classified with
// pkgerrors.IsRetryable: retryable errors halt a drain, the rest dead-letter the entry.
type Writer interface {
	Write(ctx context.Context, payload transactions.Payload) error
}

type WriterFunc func(ctx context.Context, payload transactions.Payload) error

func (f WriterFunc) Write(ctx context.Context, payload transactions.Payload) error {
	return f(ctx, payload)
}

type Params struct {
	Store  localstore.Store
	Key    string
	Logger *logger.Logger
	// MaxAttempts dead-letters an entry after that many retryable failures. Zero retries forever.
	MaxAttempts int
	Metrics     *metrics.QueueMetrics
	Now         func() time.Time
}

// Queue is a durable FIFO of pending sales. All mutations are persisted before the
// call that made them returns; at most one Drain runs at a time.
type Queue struct {
	store       localstore.Store
	key         string
	logg        *logger.Logger
	maxAttempts int
	metrics     *metrics.QueueMetrics
	now         func() time.Time

	mu      sync.Mutex
	entries []Entry
	dead    []DeadLetter

	syncing atomic.Bool
}

func New(params Params) (*Queue, error) {
	if params.Store == nil {
		return nil, errors.New("local store is required")
	}
	if params.MaxAttempts < 0 {
		return nil, errors.New("max attempts must be >= 0")
	}
	q := &Queue{
		store:       params.Store,
		key:         params.Key,
		logg:        params.Logger,
		maxAttempts: params.MaxAttempts,
		metrics:     params.Metrics,
		now:         params.Now,
	}
	if q.key == "" {
		q.key = DefaultKey
	}
	if q.logg == nil {
		q.logg = logger.Nop()
	}
	if q.now == nil {
		q.now = time.Now
	}
	return q, nil
}

// Restore replaces the in-memory queue with whatever the local store holds. A missing
// value yields an empty queue; unreadable data is logged and discarded.
func (q *Queue) Restore(ctx context.Context) error {
	if q.syncing.Load() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot restore while a drain is running")
	}
	raw, err := q.store.Load(ctx, q.key)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offline queue")
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries, q.dead = nil, nil
	defer q.publishDepth()

	if len(raw) == 0 {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		q.logg.Warn(q.logg.WithField(ctx, "error", err.Error()), "offline queue data unreadable, starting empty")
		return nil
	}
	if env.Version != envelopeVersion {
		q.logg.Warn(q.logg.WithField(ctx, "version", env.Version), "offline queue version unknown, starting empty")
		return nil
	}

	for _, entry := range env.Entries {
		if err := entry.Payload.Validate(); err != nil {
			q.dead = append(q.dead, DeadLetter{
				Entry:        entry,
				Reason:       enums.DeadLetterReasonNonRetryable,
				ErrorMessage: errorMessage(err),
				FailedAt:     q.now().UTC(),
			})
			continue
		}
		q.entries = append(q.entries, entry)
	}
	reclassified := len(q.dead)
	q.dead = append(q.dead, env.DeadLetters...)
	if reclassified > 0 {
		if err := q.persistLocked(ctx); err != nil {
			q.logg.Error(ctx, "failed to persist reclassified dead letters", err)
		}
	}

	q.logg.Info(q.logg.WithFields(ctx, map[string]any{
		"pending":      len(q.entries),
		"dead_letters": len(q.dead),
	}), "offline queue restored")
	return nil
}

// Enqueue stores payload with status pending. It returns only after the queue has
// been persisted; on a persist failure the append is undone and a dependency error
// is returned so the caller does not treat the sale as saved.
func (q *Queue) Enqueue(ctx context.Context, payload transactions.Payload) error {
	payload = payload.WithStatus(enums.TransactionStatusPending)
	if err := payload.Validate(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for _, existing := range q.entries {
		if existing.Payload.ID == payload.ID {
			return nil
		}
	}

	q.entries = append(q.entries, Entry{Payload: payload, EnqueuedAt: q.now().UTC()})
	if err := q.persistLocked(ctx); err != nil {
		q.entries = q.entries[:len(q.entries)-1]
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist offline queue")
	}
	q.publishDepth()

	ctx = q.logg.WithTransactionID(ctx, payload.ID.String())
	q.logg.Info(q.logg.WithField(ctx, "pending", len(q.entries)), "sale queued offline")
	return nil
}

// RequeueDeadLetter moves a dead letter back to the tail with a fresh attempt count.
func (q *Queue) RequeueDeadLetter(ctx context.Context, id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := -1
	for i, dl := range q.dead {
		if dl.Payload.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "dead letter not found")
	}

	prevEntries := q.entries
	prevDead := q.dead

	dl := q.dead[idx]
	entry := dl.Entry
	entry.Attempts = 0
	entry.LastError = ""
	entry.LastAttemptAt = nil

	q.dead = append(append([]DeadLetter(nil), q.dead[:idx]...), q.dead[idx+1:]...)
	q.entries = append(append([]Entry(nil), q.entries...), entry)
	if err := q.persistLocked(ctx); err != nil {
		q.entries, q.dead = prevEntries, prevDead
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist offline queue")
	}
	q.publishDepth()

	ctx = q.logg.WithTransactionID(ctx, id.String())
	q.logg.Info(q.logg.WithField(ctx, "previous_reason", dl.Reason), "dead letter requeued")
	return nil
}

func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *Queue) DeadLetterCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.dead)
}

func (q *Queue) IsSyncing() bool {
	return q.syncing.Load()
}

// Entries returns a copy of the pending entries, head first.
func (q *Queue) Entries() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Entry(nil), q.entries...)
}

func (q *Queue) DeadLetters() []DeadLetter {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]DeadLetter(nil), q.dead...)
}

func (q *Queue) persistLocked(ctx context.Context) error {
	env := envelope{
		Version:     envelopeVersion,
		Entries:     q.entries,
		DeadLetters: q.dead,
	}
	if env.Entries == nil {
		env.Entries = []Entry{}
	}
	if env.DeadLetters == nil {
		env.DeadLetters = []DeadLetter{}
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return q.store.Save(ctx, q.key, raw)
}

func (q *Queue) publishDepth() {
	q.metrics.SetDepth(len(q.entries), len(q.dead))
}
