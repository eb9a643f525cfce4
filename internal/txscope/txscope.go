// Package txscope implements the ambient, async-propagating transaction
// context described in spec.md §4.2. It lets every VFS primitive and
// DocService handler participate in the same database transaction without
// threading a connection parameter through every call: the active
// connection travels on the context.Context, Go's equivalent of
// continuation-local storage.
package txscope

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/objectfs/docvfs/internal/store"
	"github.com/objectfs/docvfs/pkg/errors"
)

type scopeKey struct{}

// scope holds the transaction backing one outer RunTrans call plus the
// nesting counter for any inner RunTrans calls that reuse it. Per spec.md's
// resolved Open Question, nesting is single-transaction (no SAVEPOINT): a
// failure at any depth rolls back the whole outer transaction.
type scope struct {
	mu    sync.Mutex
	conn  *pgxpool.Conn
	tx    pgx.Tx
	depth int
}

// RunTrans enters a transaction scope. If the incoming context already
// carries one (a nested call), it reuses it and simply tracks nesting depth.
// Otherwise it acquires a connection, issues BEGIN, runs fn with a context
// carrying the new scope, then COMMITs on success or ROLLBACKs and
// re-raises on failure. The connection is always released.
func RunTrans(ctx context.Context, s *store.Store, fn func(ctx context.Context) error) error {
	if sc := fromContext(ctx); sc != nil {
		sc.mu.Lock()
		sc.depth++
		sc.mu.Unlock()
		defer func() {
			sc.mu.Lock()
			sc.depth--
			sc.mu.Unlock()
		}()
		return fn(ctx)
	}

	conn, err := s.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return errors.Newf(errors.ErrCodeConnectionFailed, "begin transaction: %v", err)
	}

	sc := &scope{conn: conn, tx: tx, depth: 1}
	innerCtx := context.WithValue(ctx, scopeKey{}, sc)

	if err := fn(innerCtx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
			return errors.Newf(errors.ErrCodeInternalError, "rollback failed: %v (original error: %v)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Newf(errors.ErrCodeInternalError, "commit transaction: %v", err)
	}
	return nil
}

// CurrentClient returns the store.Querier bound to the active scope's
// transaction, or nil if ctx carries no scope. VFS primitives fall back to
// the shared pool (auto-commit) when this returns nil.
func CurrentClient(ctx context.Context) store.Querier {
	sc := fromContext(ctx)
	if sc == nil {
		return nil
	}
	return sc.tx
}

// InScope reports whether ctx already carries an active transaction scope.
func InScope(ctx context.Context) bool {
	return fromContext(ctx) != nil
}

func fromContext(ctx context.Context) *scope {
	sc, _ := ctx.Value(scopeKey{}).(*scope)
	return sc
}
