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

var _ repository.MerchantRepository = (*MerchantRepo)(nil)

// MerchantRepo implementación de comercios y canales sobre PostgreSQL.
type MerchantRepo struct {
	q Querier
}

// NewMerchantRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMerchantRepository(q Querier) *MerchantRepo {
	return &MerchantRepo{q: q}
}

// Create registra un comercio nuevo.
func (r *MerchantRepo) Create(ctx context.Context, m *entity.Merchant) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	query := `
		INSERT INTO merchants (id, name, active, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())`
	if _, err := r.q.Exec(ctx, query, m.ID, m.Name, m.Active); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create merchant: %w", err)
	}
	return nil
}

// GetByID obtiene el comercio. (nil, nil) si no existe.
func (r *MerchantRepo) GetByID(ctx context.Context, id string) (*entity.Merchant, error) {
	query := `SELECT id, name, active, created_at, updated_at FROM merchants WHERE id = $1`
	var m entity.Merchant
	err := r.q.QueryRow(ctx, query, id).Scan(&m.ID, &m.Name, &m.Active, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get merchant: %w", err)
	}
	return &m, nil
}

// List lista comercios ordenados por nombre.
func (r *MerchantRepo) List(ctx context.Context, limit, offset int) ([]*entity.Merchant, error) {
	query := `SELECT id, name, active, created_at, updated_at FROM merchants ORDER BY name LIMIT $1 OFFSET $2`
	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list merchants: %w", err)
	}
	defer rows.Close()
	var list []*entity.Merchant
	for rows.Next() {
		var m entity.Merchant
		if err := rows.Scan(&m.ID, &m.Name, &m.Active, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan merchant: %w", err)
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

// HasActiveChannel informa si el comercio tiene el canal activo y sin vencer.
func (r *MerchantRepo) HasActiveChannel(ctx context.Context, merchantID, channel string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM merchant_channels
			WHERE merchant_id = $1 AND channel = $2 AND is_active
			  AND (expires_at IS NULL OR expires_at > now())
		)`
	var enabled bool
	if err := r.q.QueryRow(ctx, query, merchantID, channel).Scan(&enabled); err != nil {
		return false, fmt.Errorf("check merchant channel: %w", err)
	}
	return enabled, nil
}

// UpsertChannel habilita o actualiza un canal del comercio.
func (r *MerchantRepo) UpsertChannel(ctx context.Context, ch *entity.MerchantChannel) error {
	if ch.ActivatedAt.IsZero() {
		ch.ActivatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO merchant_channels (merchant_id, channel, is_active, activated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (merchant_id, channel) DO UPDATE SET
			is_active = EXCLUDED.is_active,
			activated_at = EXCLUDED.activated_at,
			expires_at = EXCLUDED.expires_at`
	_, err := r.q.Exec(ctx, query, ch.MerchantID, ch.Channel, ch.IsActive, ch.ActivatedAt, ch.ExpiresAt)
	if err != nil {
		return fmt.Errorf("upsert merchant channel: %w", err)
	}
	return nil
}

// ListChannels lista los canales configurados del comercio.
func (r *MerchantRepo) ListChannels(ctx context.Context, merchantID string) ([]*entity.MerchantChannel, error) {
	query := `
		SELECT merchant_id, channel, is_active, activated_at, expires_at
		FROM merchant_channels
		WHERE merchant_id = $1
		ORDER BY channel`
	rows, err := r.q.Query(ctx, query, merchantID)
	if err != nil {
		return nil, fmt.Errorf("list merchant channels: %w", err)
	}
	defer rows.Close()
	var list []*entity.MerchantChannel
	for rows.Next() {
		var ch entity.MerchantChannel
		if err := rows.Scan(&ch.MerchantID, &ch.Channel, &ch.IsActive, &ch.ActivatedAt, &ch.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan merchant channel: %w", err)
		}
		list = append(list, &ch)
	}
	return list, rows.Err()
}
