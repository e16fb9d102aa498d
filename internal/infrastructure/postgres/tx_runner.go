package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/StockSync-api/internal/application/ledger"
	"github.com/jhoicas/StockSync-api/internal/domain/repository"
)

// Ensure TxRunner implements ledger.TxRunner.
var _ ledger.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con los repos del ledger atados a la tx
// y hace Commit o Rollback. El append de movimiento y la actualización de la caché
// de niveles comparten siempre esta frontera transaccional.
func (r *TxRunner) Run(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	levelRepo repository.StockLevelRepository,
	snapRepo repository.StockSnapshotRepository,
	productRepo repository.ProductRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	movRepo := NewStockMovementRepository(tx)
	levelRepo := NewStockLevelRepository(tx)
	snapRepo := NewStockSnapshotRepository(tx)
	productRepo := NewProductRepository(tx)

	if err := fn(movRepo, levelRepo, snapRepo, productRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RunReconciliation inicia una transacción con los repos de la cola de reconciliación
// además de los del ledger (para resolver ítems y re-aplicar eventos diferidos).
func (r *TxRunner) RunReconciliation(ctx context.Context, fn func(
	unmatchedRepo repository.UnmatchedItemRepository,
	identifierRepo repository.ProductIdentifierRepository,
	productRepo repository.ProductRepository,
	movRepo repository.StockMovementRepository,
	levelRepo repository.StockLevelRepository,
	snapRepo repository.StockSnapshotRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	unmatchedRepo := NewUnmatchedItemRepository(tx)
	identifierRepo := NewProductIdentifierRepository(tx)
	productRepo := NewProductRepository(tx)
	movRepo := NewStockMovementRepository(tx)
	levelRepo := NewStockLevelRepository(tx)
	snapRepo := NewStockSnapshotRepository(tx)

	if err := fn(unmatchedRepo, identifierRepo, productRepo, movRepo, levelRepo, snapRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
