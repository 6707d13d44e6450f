package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// ErrAfterCommit wraps failures of after-commit hooks. The SQL transaction itself committed.
var ErrAfterCommit = errors.New("after-commit hook failed")

// Tx is the unit of work an order is processed in: one SQL transaction plus hooks for
// side effects that live outside the database (broker acks, external cache writes).
// Commit hooks run only after the SQL commit succeeded; rollback hooks run when the
// transaction is abandoned, including a failed commit.
type Tx struct {
	tx         *sql.Tx
	onCommit   []func(ctx context.Context) error
	onRollback []func(ctx context.Context)
	done       bool
}

// NewTx wraps an open SQL transaction.
func NewTx(tx *sql.Tx) *Tx {
	return &Tx{tx: tx}
}

// SQL returns the underlying transaction for statements that belong to the unit of work.
func (t *Tx) SQL() *sql.Tx {
	return t.tx
}

// OnCommit registers fn to run after a successful commit.
func (t *Tx) OnCommit(fn func(ctx context.Context) error) {
	t.onCommit = append(t.onCommit, fn)
}

// OnRollback registers fn to run when the transaction is abandoned.
func (t *Tx) OnRollback(fn func(ctx context.Context)) {
	t.onRollback = append(t.onRollback, fn)
}

// Commit commits the SQL transaction and then runs commit hooks in registration order.
// A hook error is returned wrapped in ErrAfterCommit; the remaining hooks still run.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true

	if err := t.tx.Commit(); err != nil {
		t.runRollbackHooks(ctx)
		return fmt.Errorf("commit: %w", err)
	}

	var hookErrs []error
	for _, fn := range t.onCommit {
		if err := fn(ctx); err != nil {
			hookErrs = append(hookErrs, err)
		}
	}
	if len(hookErrs) > 0 {
		return fmt.Errorf("%w: %w", ErrAfterCommit, errors.Join(hookErrs...))
	}
	return nil
}

// Rollback abandons the transaction. It is a no-op after Commit or a previous Rollback,
// so it is safe to defer.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true

	err := t.tx.Rollback()
	t.runRollbackHooks(ctx)
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

func (t *Tx) runRollbackHooks(ctx context.Context) {
	for _, fn := range t.onRollback {
		fn(ctx)
	}
	if len(t.onRollback) > 0 {
		slog.Debug("[Tx] Ran rollback hooks", "count", len(t.onRollback))
	}
}
