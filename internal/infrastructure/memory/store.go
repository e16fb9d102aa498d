// Package memory implementa los puertos de repositorio sobre estructuras en
// memoria, respetando los contratos observables de los adaptadores de postgres:
// claves únicas (domain.ErrDuplicate), copias por valor en cada lectura y
// escritura, (nil, nil) en ausencias y niveles en cero para pares sin filas.
// Lo usan las pruebas de la capa de aplicación; el aislamiento transaccional
// real se prueba contra postgres en los tests de integración.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/StockSync-api/internal/application/ports"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/domain/repository"
)

// Store es el estado compartido por todos los repositorios en memoria.
// Un solo mutex protege todas las tablas: la granularidad no importa en tests.
type Store struct {
	mu sync.Mutex

	merchants        map[string]*entity.Merchant
	channels         map[string]*entity.MerchantChannel // merchant|channel
	locations        map[string]*entity.Location
	products         map[string]*entity.Product
	identifiers      []*entity.ProductIdentifier
	productLocations map[string]*entity.ProductLocation // product|location

	movements []*entity.StockMovement
	seq       int64
	levels    map[string]*entity.StockLevel         // product|location
	snapshots map[string]*entity.StockSnapshotDaily // product|location|YYYY-MM-DD

	cursors   map[string]*entity.SyncCursor
	unmatched map[string]*entity.UnmatchedItem
}

// NewStore crea un estado vacío.
func NewStore() *Store {
	return &Store{
		merchants:        make(map[string]*entity.Merchant),
		channels:         make(map[string]*entity.MerchantChannel),
		locations:        make(map[string]*entity.Location),
		products:         make(map[string]*entity.Product),
		productLocations: make(map[string]*entity.ProductLocation),
		levels:           make(map[string]*entity.StockLevel),
		snapshots:        make(map[string]*entity.StockSnapshotDaily),
		cursors:          make(map[string]*entity.SyncCursor),
		unmatched:        make(map[string]*entity.UnmatchedItem),
	}
}

func pairKey(productID, locationID string) string {
	return productID + "|" + locationID
}

// TxRunner satisface ledger.TxRunner e identity.TxRunner pasando los repos del
// mismo Store. Sin rollback: un fallo a mitad de función puede dejar aplicadas
// las escrituras previas, igual que un test que falla a mitad de aserciones.
type TxRunner struct {
	store *Store
}

// NewTxRunner construye el corredor de transacciones en memoria.
func NewTxRunner(store *Store) *TxRunner {
	return &TxRunner{store: store}
}

// Run ejecuta fn con los repositorios del ledger.
func (r *TxRunner) Run(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	levelRepo repository.StockLevelRepository,
	snapRepo repository.StockSnapshotRepository,
	productRepo repository.ProductRepository,
) error) error {
	return fn(
		NewMovementRepo(r.store),
		NewLevelRepo(r.store),
		NewSnapshotRepo(r.store),
		NewProductRepo(r.store),
	)
}

// RunReconciliation ejecuta fn con los repositorios de la resolución manual.
func (r *TxRunner) RunReconciliation(ctx context.Context, fn func(
	unmatchedRepo repository.UnmatchedItemRepository,
	identifierRepo repository.ProductIdentifierRepository,
	productRepo repository.ProductRepository,
	movRepo repository.StockMovementRepository,
	levelRepo repository.StockLevelRepository,
	snapRepo repository.StockSnapshotRepository,
) error) error {
	return fn(
		NewUnmatchedRepo(r.store),
		NewIdentifierRepo(r.store),
		NewProductRepo(r.store),
		NewMovementRepo(r.store),
		NewLevelRepo(r.store),
		NewSnapshotRepo(r.store),
	)
}

// AlertRecorder captura las alertas publicadas para aseverar sobre ellas.
type AlertRecorder struct {
	mu     sync.Mutex
	alerts []ports.Alert
}

// NewAlertRecorder construye el grabador de alertas.
func NewAlertRecorder() *AlertRecorder {
	return &AlertRecorder{}
}

// Publish guarda la alerta.
func (r *AlertRecorder) Publish(_ context.Context, alert ports.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
	return nil
}

// All devuelve una copia de las alertas capturadas.
func (r *AlertRecorder) All() []ports.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ports.Alert, len(r.alerts))
	copy(out, r.alerts)
	return out
}

// ByType filtra las alertas capturadas por tipo.
func (r *AlertRecorder) ByType(alertType string) []ports.Alert {
	var out []ports.Alert
	for _, a := range r.All() {
		if a.Type == alertType {
			out = append(out, a)
		}
	}
	return out
}
