package queue

import (
	"context"
	"database/sql"
	"time"
)

// Provider hands out one usable storage connection per queue operation.
// *sql.DB satisfies it; pooling and lifecycle policy belong to the caller.
type Provider interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

// Queue is a competing-consumers queue over a single SQL table. A Queue
// value holds only configuration and statement text, so it is safe for
// concurrent use from any number of goroutines or processes sharing the
// same table.
type Queue struct {
	cfg      Config
	provider Provider
	stmts    statements
}

// candidate is one unclaimed row from the look-ahead scan.
type candidate struct {
	id      string
	ref     string
	version int64
}

// New provisions the backing table if absent and returns a ready Queue.
// A provisioning failure, for example an invalid table identifier, is a
// storage failure and the Queue must not be used.
func New(ctx context.Context, cfg Config, provider Provider) (*Queue, error) {
	if cfg.Table == "" {
		return nil, newInvalidInputError("table name is required")
	}
	cfg = cfg.withDefaults()
	q := &Queue{
		cfg:      cfg,
		provider: provider,
		stmts:    buildStatements(cfg.Table, cfg.LookAhead),
	}

	conn, err := provider.Conn(ctx)
	if err != nil {
		return nil, newStorageError("acquire connection", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, q.stmts.createTable); err != nil {
		return nil, newStorageError("create table", err)
	}
	if _, err := conn.ExecContext(ctx, q.stmts.createIndex); err != nil {
		return nil, newStorageError("create index", err)
	}
	return q, nil
}

// Push enqueues a reference string. There is no deduplication: identical
// references produce distinct rows that are delivered independently.
func (q *Queue) Push(ctx context.Context, ref string) error {
	if ref == "" {
		return newInvalidInputError("reference is required")
	}
	if len(ref) > MaxRefLen {
		return newInvalidInputError("reference exceeds 50 characters")
	}

	conn, err := q.provider.Conn(ctx)
	if err != nil {
		return newStorageError("acquire connection", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, q.stmts.insertItem, NewItemID(), ref); err != nil {
		return newStorageError("insert item", err)
	}
	return nil
}

// Size returns the number of rows currently in the table. Claimed but
// unfinalized items are counted: this is outstanding work, not readiness.
func (q *Queue) Size(ctx context.Context) (int64, error) {
	conn, err := q.provider.Conn(ctx)
	if err != nil {
		return 0, newStorageError("acquire connection", err)
	}
	defer conn.Close()

	var n int64
	if err := conn.QueryRowContext(ctx, q.stmts.countAll).Scan(&n); err != nil {
		return 0, newStorageError("count items", err)
	}
	return n, nil
}

// Pop claims one item, removes it and returns its reference. It reports
// ok=false when no candidate in the look-ahead window could be claimed,
// which under heavy contention can happen even while unclaimed rows exist
// beyond the window. Pop never prunes exhausted rows; redelivery policy
// for popped items is entirely the caller's.
func (q *Queue) Pop(ctx context.Context) (string, bool, error) {
	conn, err := q.provider.Conn(ctx)
	if err != nil {
		return "", false, newStorageError("acquire connection", err)
	}
	defer conn.Close()

	if err := q.releaseExpired(ctx, conn); err != nil {
		return "", false, err
	}
	c, claimed, err := q.claimNext(ctx, conn)
	if err != nil || !claimed {
		return "", false, err
	}
	if err := q.deleteItem(ctx, conn, c.id); err != nil {
		return "", false, err
	}
	return c.ref, true, nil
}

// ConsumeOne claims one item and hands its reference to fn. A nil return
// from fn finalizes the item (the row is deleted); a non-nil return
// releases the claim so the item can be retried, with the attempt already
// counted. Afterwards every row whose attempt count exceeds MaxRetries is
// pruned from the whole table, whether or not an item was claimed on this
// call, so one call can reap poison left behind by unrelated callers.
// The bool reports whether an item was claimed and fn invoked.
func (q *Queue) ConsumeOne(ctx context.Context, fn func(ref string) error) (bool, error) {
	conn, err := q.provider.Conn(ctx)
	if err != nil {
		return false, newStorageError("acquire connection", err)
	}
	defer conn.Close()

	consumed, runErr := q.consumeOne(ctx, conn, fn)

	// Pruning runs even when the claim path failed.
	pruneErr := q.pruneExhausted(ctx, conn)
	if runErr != nil {
		return consumed, runErr
	}
	return consumed, pruneErr
}

func (q *Queue) consumeOne(ctx context.Context, conn *sql.Conn, fn func(ref string) error) (bool, error) {
	if err := q.releaseExpired(ctx, conn); err != nil {
		return false, err
	}
	c, claimed, err := q.claimNext(ctx, conn)
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}
	if fnErr := fn(c.ref); fnErr != nil {
		return true, q.releaseItem(ctx, conn, c.id)
	}
	return true, q.deleteItem(ctx, conn, c.id)
}

// claimNext scans up to LookAhead unclaimed rows and attempts the
// conditional update on each in scan order. A zero-row update means
// another caller won the race for that candidate; the scan moves on
// instead of retrying it.
func (q *Queue) claimNext(ctx context.Context, conn *sql.Conn) (candidate, bool, error) {
	cands, err := q.scanCandidates(ctx, conn)
	if err != nil {
		return candidate{}, false, err
	}

	now := time.Now().UnixMilli()
	for _, c := range cands {
		res, err := conn.ExecContext(ctx, q.stmts.claimItem, now, c.id, c.version)
		if err != nil {
			return candidate{}, false, newStorageError("claim item", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return candidate{}, false, newStorageError("claim item", err)
		}
		if n == 1 {
			return c, true, nil
		}
	}
	return candidate{}, false, nil
}

// scanCandidates materializes the whole window before any update runs:
// the connection cannot execute statements while rows are open.
func (q *Queue) scanCandidates(ctx context.Context, conn *sql.Conn) ([]candidate, error) {
	rows, err := conn.QueryContext(ctx, q.stmts.selectCandidates)
	if err != nil {
		return nil, newStorageError("scan candidates", err)
	}
	defer rows.Close()

	cands := make([]candidate, 0, q.cfg.LookAhead)
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.ref, &c.version); err != nil {
			return nil, newStorageError("scan candidates", err)
		}
		cands = append(cands, c)
	}
	if err := rows.Err(); err != nil {
		return nil, newStorageError("scan candidates", err)
	}
	return cands, nil
}

// releaseExpired frees claims whose holder has gone quiet past Timeout.
// It is best-effort and inherently racy with a late original holder; that
// race is the accepted double-delivery case of at-least-once delivery.
func (q *Queue) releaseExpired(ctx context.Context, conn *sql.Conn) error {
	now := time.Now().UnixMilli()
	if _, err := conn.ExecContext(ctx, q.stmts.releaseExpired, now, q.cfg.Timeout.Milliseconds()); err != nil {
		return newStorageError("release expired claims", err)
	}
	return nil
}

func (q *Queue) releaseItem(ctx context.Context, conn *sql.Conn, id string) error {
	if _, err := conn.ExecContext(ctx, q.stmts.releaseItem, id); err != nil {
		return newStorageError("release item", err)
	}
	return nil
}

func (q *Queue) deleteItem(ctx context.Context, conn *sql.Conn, id string) error {
	if _, err := conn.ExecContext(ctx, q.stmts.deleteItem, id); err != nil {
		return newStorageError("delete item", err)
	}
	return nil
}

func (q *Queue) pruneExhausted(ctx context.Context, conn *sql.Conn) error {
	if _, err := conn.ExecContext(ctx, q.stmts.pruneExhausted, q.cfg.MaxRetries); err != nil {
		return newStorageError("prune exhausted items", err)
	}
	return nil
}
