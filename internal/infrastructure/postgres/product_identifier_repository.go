package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/StockSync-api/internal/domain"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/domain/repository"
)

var _ repository.ProductIdentifierRepository = (*ProductIdentifierRepo)(nil)

const identifierColumns = `id, product_id, merchant_id, identifier_type, value, source, match_method, verified, created_at`

// ProductIdentifierRepo implementación de los códigos por producto sobre PostgreSQL.
type ProductIdentifierRepo struct {
	q Querier
}

// NewProductIdentifierRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProductIdentifierRepository(q Querier) *ProductIdentifierRepo {
	return &ProductIdentifierRepo{q: q}
}

// Create inserta el identificador. domain.ErrDuplicate si (source, type, value)
// ya apunta a un producto del comercio.
func (r *ProductIdentifierRepo) Create(ctx context.Context, ident *entity.ProductIdentifier) error {
	if ident.ID == "" {
		ident.ID = uuid.New().String()
	}
	if ident.CreatedAt.IsZero() {
		ident.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO product_identifiers (id, product_id, merchant_id, identifier_type, value, source, match_method, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		ident.ID, ident.ProductID, ident.MerchantID, ident.Type, ident.Value,
		ident.Source, ident.MatchMethod, ident.Verified, ident.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create product identifier: %w", err)
	}
	return nil
}

// GetByTypeValue busca la coincidencia exacta dentro del namespace. (nil, nil) si no hay.
func (r *ProductIdentifierRepo) GetByTypeValue(ctx context.Context, merchantID, source, identifierType, value string) (*entity.ProductIdentifier, error) {
	query := `
		SELECT ` + identifierColumns + `
		FROM product_identifiers
		WHERE merchant_id = $1 AND source = $2 AND identifier_type = $3 AND value = $4`
	ident, err := scanIdentifier(r.q.QueryRow(ctx, query, merchantID, source, identifierType, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get identifier: %w", err)
	}
	return ident, nil
}

// FindByValue busca por valor crudo sin conocer el tipo; devuelve la coincidencia
// más antigua del namespace. (nil, nil) si no hay.
func (r *ProductIdentifierRepo) FindByValue(ctx context.Context, merchantID, source, value string) (*entity.ProductIdentifier, error) {
	query := `
		SELECT ` + identifierColumns + `
		FROM product_identifiers
		WHERE merchant_id = $1 AND source = $2 AND value = $3
		ORDER BY created_at
		LIMIT 1`
	ident, err := scanIdentifier(r.q.QueryRow(ctx, query, merchantID, source, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find identifier by value: %w", err)
	}
	return ident, nil
}

// ListByProduct lista los identificadores de un producto.
func (r *ProductIdentifierRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.ProductIdentifier, error) {
	query := `
		SELECT ` + identifierColumns + `
		FROM product_identifiers
		WHERE product_id = $1
		ORDER BY identifier_type, created_at`
	rows, err := r.q.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list identifiers: %w", err)
	}
	defer rows.Close()
	var list []*entity.ProductIdentifier
	for rows.Next() {
		ident, err := scanIdentifier(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identifier: %w", err)
		}
		list = append(list, ident)
	}
	return list, rows.Err()
}

// MarkVerified marca un identificador difuso como revisado por un humano.
func (r *ProductIdentifierRepo) MarkVerified(ctx context.Context, id string) error {
	query := `UPDATE product_identifiers SET verified = TRUE WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark identifier verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanIdentifier(row pgx.Row) (*entity.ProductIdentifier, error) {
	var ident entity.ProductIdentifier
	err := row.Scan(
		&ident.ID, &ident.ProductID, &ident.MerchantID, &ident.Type, &ident.Value,
		&ident.Source, &ident.MatchMethod, &ident.Verified, &ident.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ident, nil
}
