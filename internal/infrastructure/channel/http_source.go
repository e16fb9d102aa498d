// Package channel contiene los conectores hacia los sistemas externos (POS,
// marketplace) que alimentan el motor de sincronización.
package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	appsync "github.com/jhoicas/StockSync-api/internal/application/sync"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
)

// Verificar en tiempo de compilación que HTTPSource implementa EventSource.
var _ appsync.EventSource = (*HTTPSource)(nil)

// HTTPSource conector genérico JSON-sobre-HTTP para un canal externo.
// Contrato: GET {base}/inventory-events con cursor, limit, location_id y el
// rango opcional from/to; autenticación por cabecera X-Api-Key. La respuesta
// es una página wireBatch con el marcador de la siguiente.
type HTTPSource struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPSource construye el conector del canal.
func NewHTTPSource(baseURL, apiKey string) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			// El lease del cursor es de minutos; un canal colgado no debe comérselo.
			Timeout: 15 * time.Second,
		},
	}
}

// ── Estructuras del protocolo del canal ───────────────────────────────────────

type wireEvent struct {
	RefID           string           `json:"ref_id"`
	RefType         string           `json:"ref_type"`
	IdentifierType  string           `json:"identifier_type"`
	IdentifierValue string           `json:"identifier_value"`
	Name            string           `json:"name"`
	LocationID      string           `json:"location_id"`
	QtyChange       int64            `json:"qty_change"`
	Reason          string           `json:"reason"`
	OccurredAt      time.Time        `json:"occurred_at"`
	UnitCost        *decimal.Decimal `json:"unit_cost"`
	Payload         json.RawMessage  `json:"payload"`
}

type wireBatch struct {
	Events    []wireEvent `json:"events"`
	NextToken string      `json:"next_token"`
	HasMore   bool        `json:"has_more"`
}

// ── Implementación del puerto ─────────────────────────────────────────────────

// FetchBatch pide una página de eventos al canal y la normaliza.
func (s *HTTPSource) FetchBatch(ctx context.Context, req appsync.FetchRequest) (*appsync.FetchBatch, error) {
	u, err := url.Parse(s.baseURL + "/inventory-events")
	if err != nil {
		return nil, fmt.Errorf("channel: URL del canal inválida: %w", err)
	}
	q := u.Query()
	q.Set("merchant_id", req.MerchantID)
	q.Set("entity", req.Entity)
	if req.CursorToken != "" {
		q.Set("cursor", req.CursorToken)
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.LocationID != "" {
		q.Set("location_id", req.LocationID)
	}
	if req.RangeStart != nil {
		q.Set("from", req.RangeStart.UTC().Format(time.RFC3339))
	}
	if req.RangeEnd != nil {
		q.Set("to", req.RangeEnd.UTC().Format(time.RFC3339))
	}
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("channel: crear petición: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		httpReq.Header.Set("X-Api-Key", s.apiKey)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("channel: fetch de eventos: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("channel: el canal respondió %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var batch wireBatch
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("channel: decodificar respuesta: %w", err)
	}

	out := &appsync.FetchBatch{
		Events:    make([]appsync.InventoryEvent, 0, len(batch.Events)),
		NextToken: batch.NextToken,
		HasMore:   batch.HasMore,
	}
	for _, ev := range batch.Events {
		out.Events = append(out.Events, appsync.InventoryEvent{
			ExternalRefID:   ev.RefID,
			RefType:         ev.RefType,
			IdentifierType:  ev.IdentifierType,
			IdentifierValue: ev.IdentifierValue,
			NameHint:        ev.Name,
			LocationID:      ev.LocationID,
			QtyChange:       ev.QtyChange,
			Reason:          entity.MovementReason(ev.Reason),
			OccurredAt:      ev.OccurredAt,
			UnitCost:        ev.UnitCost,
			Payload:         ev.Payload,
		})
	}
	return out, nil
}
