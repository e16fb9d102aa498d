package dto

import "time"

// RegisterCursorRequest alta de un cursor de sincronización: una máquina de
// estados por (canal, ubicación-o-todas, entidad).
type RegisterCursorRequest struct {
	Channel    string  `json:"channel" validate:"required,oneof=pos marketplace"`
	LocationID *string `json:"location_id,omitempty"` // nulo = todas las ubicaciones
	Entity     string  `json:"entity" validate:"required,oneof=inventory orders products"`
}

// SyncCursorResponse salida del estado completo de un cursor.
type SyncCursorResponse struct {
	ID                  string     `json:"id"`
	MerchantID          string     `json:"merchant_id"`
	Channel             string     `json:"channel"`
	LocationID          *string    `json:"location_id,omitempty"`
	Entity              string     `json:"entity"`
	CursorToken         string     `json:"cursor_token,omitempty"`
	LastProcessedID     string     `json:"last_processed_id,omitempty"`
	Status              string     `json:"status"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	NextSyncAt          *time.Time `json:"next_sync_at,omitempty"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
	RecordsSynced       int64      `json:"records_synced"`
	BackfillState       string     `json:"backfill_state"`
	BackfillCursor      string     `json:"backfill_cursor,omitempty"`
	BackfillRangeStart  *time.Time `json:"backfill_range_start,omitempty"`
	BackfillRangeEnd    *time.Time `json:"backfill_range_end,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// SyncCursorListResponse cursores del comercio.
type SyncCursorListResponse struct {
	Items []SyncCursorResponse `json:"items"`
}

// RunReportResponse resumen de una pasada de sincronización disparada a mano.
type RunReportResponse struct {
	CursorID   string `json:"cursor_id"`
	Batches    int    `json:"batches"`
	Fetched    int    `json:"fetched"`
	Applied    int    `json:"applied"`
	Duplicates int    `json:"duplicates"`
	Queued     int    `json:"queued"`
	Skipped    int    `json:"skipped"`
}

// StartBackfillRequest body para POST /api/sync/cursors/:id/backfill.
type StartBackfillRequest struct {
	From time.Time `json:"from" validate:"required"`
	To   time.Time `json:"to" validate:"required"`
}
