package dbx

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/marcodd23/go-db-core/pkg/errorx"
	"github.com/marcodd23/go-db-core/pkg/logx"
)

// TxCoordinator is a thin pass-through to the connection's transaction
// primitives. Once Begin succeeds, every executor operation on the same
// connection participates in the transaction until Commit or Rollback.
//
// Nested Begin calls are not supported and fail with an InvalidStateError.
// The coordinator never auto-rolls-back; callers own the failure path, or
// use WithTransaction, which guarantees rollback when commit was never
// reached.
type TxCoordinator struct {
	conn Connection
	txID string
}

// NewTxCoordinator - TxCoordinator constructor for one connection.
func NewTxCoordinator(conn Connection) *TxCoordinator {
	return &TxCoordinator{conn: conn}
}

// Begin starts a transaction on the connection. A transaction id is
// generated for log correlation.
func (c *TxCoordinator) Begin(ctx context.Context) error {
	if c.conn.InTx() {
		return errorx.NewInvalidStateError("transaction already open; nested Begin is not supported")
	}

	if err := c.conn.Begin(ctx); err != nil {
		return err
	}

	c.txID = uuid.NewString()
	logx.GetLogger().LogDebug(ctx, fmt.Sprintf("started transaction: %s", c.txID))

	return nil
}

// Commit commits the open transaction.
func (c *TxCoordinator) Commit(ctx context.Context) error {
	if !c.conn.InTx() {
		return errorx.NewInvalidStateError("no open transaction to commit")
	}

	if err := c.conn.Commit(ctx); err != nil {
		logx.GetLogger().LogError(ctx, fmt.Sprintf("error during transaction commit: %s", c.txID), err)
		return err
	}

	logx.GetLogger().LogDebug(ctx, fmt.Sprintf("committed transaction: %s", c.txID))
	c.txID = ""

	return nil
}

// Rollback aborts the open transaction, discarding its work.
func (c *TxCoordinator) Rollback(ctx context.Context) error {
	if !c.conn.InTx() {
		return errorx.NewInvalidStateError("no open transaction to roll back")
	}

	if err := c.conn.Rollback(ctx); err != nil {
		logx.GetLogger().LogError(ctx, fmt.Sprintf("error rolling back transaction: %s", c.txID), err)
		return err
	}

	logx.GetLogger().LogDebug(ctx, fmt.Sprintf("rolled back transaction: %s", c.txID))
	c.txID = ""

	return nil
}

// InTx reports whether a transaction is open on the connection.
func (c *TxCoordinator) InTx() bool {
	return c.conn.InTx()
}

// WithTransaction runs fn inside a transaction on the connection. When fn
// returns nil the transaction is committed; on any error, or when commit
// itself fails, the transaction is rolled back and the original error
// returned. Partial work is never left dangling.
//
// Example Usage:
//
//	err := dbx.WithTransaction(ctx, conn, func(ctx context.Context) error {
//	    if _, err := executor.Insert(ctx, "audit_log", entry); err != nil {
//	        return err
//	    }
//	    _, err := executor.Update(ctx, "users", changes, filter)
//	    return err
//	})
func WithTransaction(ctx context.Context, conn Connection, fn func(ctx context.Context) error) error {
	coordinator := NewTxCoordinator(conn)

	if err := coordinator.Begin(ctx); err != nil {
		return err
	}

	if err := fn(ctx); err != nil {
		if rbErr := coordinator.Rollback(ctx); rbErr != nil {
			logx.GetLogger().LogError(ctx, "rollback after failed transaction body also failed", rbErr)
		}

		return err
	}

	if err := coordinator.Commit(ctx); err != nil {
		if coordinator.InTx() {
			if rbErr := coordinator.Rollback(ctx); rbErr != nil {
				logx.GetLogger().LogError(ctx, "rollback after failed commit also failed", rbErr)
			}
		}

		return err
	}

	return nil
}
