// seed_demo puebla la base con un comercio de demostración: canales activos,
// dos ubicaciones, un catálogo corto con identificadores y stock inicial vía
// ledger. Los IDs son fijos y las recepciones llevan referencia seed, así que
// correrlo varias veces no duplica nada.
//
// Uso: go run ./cmd/seed_demo
package main

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/StockSync-api/internal/application/ledger"
	"github.com/jhoicas/StockSync-api/internal/domain"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/domain/repository"
	"github.com/jhoicas/StockSync-api/internal/infrastructure/kafka"
	"github.com/jhoicas/StockSync-api/internal/infrastructure/postgres"
	"github.com/jhoicas/StockSync-api/pkg/config"
	"github.com/jhoicas/StockSync-api/pkg/logger"
)

// IDs fijos para que el seed sea re-ejecutable.
const (
	demoMerchantID = "c1a6d7e2-5b3f-4a89-9d01-111111111111"

	locCentroID = "c1a6d7e2-5b3f-4a89-9d01-222222222201"
	locBodegaID = "c1a6d7e2-5b3f-4a89-9d01-222222222202"

	prodCafeID      = "c1a6d7e2-5b3f-4a89-9d01-333333333301"
	prodPanelaID    = "c1a6d7e2-5b3f-4a89-9d01-333333333302"
	prodChocolateID = "c1a6d7e2-5b3f-4a89-9d01-333333333303"
)

type demoProduct struct {
	id        string
	identID   string
	name      string
	category  string
	identType string
	identVal  string
	unitCost  string
	unitPrice string
	opening   int64 // unidades iniciales en la tienda Centro
	reorder   int64
}

var demoProducts = []demoProduct{
	{prodCafeID, "c1a6d7e2-5b3f-4a89-9d01-444444444401", "Café Orgánico 500g", "abarrotes", entity.IdentifierTypeBarcode, "7701234567890", "9.50", "15.90", 40, 10},
	{prodPanelaID, "c1a6d7e2-5b3f-4a89-9d01-444444444402", "Panela Redonda 1kg", "abarrotes", entity.IdentifierTypeSKU, "PAN-1KG", "2.10", "3.80", 120, 30},
	{prodChocolateID, "c1a6d7e2-5b3f-4a89-9d01-444444444403", "Chocolate de Mesa 250g", "abarrotes", entity.IdentifierTypeUPC, "012345678905", "3.75", "6.50", 60, 15},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: "info"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if err := postgres.ApplySchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("aplicar esquema")
	}

	merchantRepo := postgres.NewMerchantRepository(pool)
	locationRepo := postgres.NewLocationRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	identRepo := postgres.NewProductIdentifierRepository(pool)
	plRepo := postgres.NewProductLocationRepository(pool)
	movRepo := postgres.NewStockMovementRepository(pool)
	levelRepo := postgres.NewStockLevelRepository(pool)
	snapRepo := postgres.NewStockSnapshotRepository(pool)
	txRunner := postgres.NewTxRunner(pool)
	alerts := kafka.NewAlertPublisher(nil, "", log) // deshabilitado en el seed

	appendUC := ledger.NewAppendMovementUseCase(
		txRunner, movRepo, levelRepo, productRepo, locationRepo, snapRepo, plRepo, identRepo, alerts,
	)

	if err := seedMerchant(ctx, merchantRepo); err != nil {
		log.Fatal().Err(err).Msg("seed de comercio")
	}
	if err := seedLocations(ctx, locationRepo); err != nil {
		log.Fatal().Err(err).Msg("seed de ubicaciones")
	}
	if err := seedCatalog(ctx, productRepo, identRepo, plRepo); err != nil {
		log.Fatal().Err(err).Msg("seed de catálogo")
	}
	if err := seedOpeningStock(ctx, appendUC); err != nil {
		log.Fatal().Err(err).Msg("seed de stock inicial")
	}

	log.Info().
		Str("merchant_id", demoMerchantID).
		Msg("datos de demostración listos; usa este valor en X-Merchant-ID")
}

func seedMerchant(ctx context.Context, repo repository.MerchantRepository) error {
	_, err := repo.GetByID(ctx, demoMerchantID)
	switch {
	case err == nil:
		// ya existe
	case errors.Is(err, domain.ErrNotFound):
		if err := repo.Create(ctx, &entity.Merchant{
			ID:     demoMerchantID,
			Name:   "Tienda Demo",
			Active: true,
		}); err != nil {
			return err
		}
	default:
		return err
	}

	for _, ch := range []string{entity.ChannelPOS, entity.ChannelMarketplace} {
		if err := repo.UpsertChannel(ctx, &entity.MerchantChannel{
			MerchantID:  demoMerchantID,
			Channel:     ch,
			IsActive:    true,
			ActivatedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}
	}
	return nil
}

func seedLocations(ctx context.Context, repo repository.LocationRepository) error {
	locations := []*entity.Location{
		{ID: locCentroID, MerchantID: demoMerchantID, Name: "Tienda Centro", Address: "Calle 10 # 4-25", Active: true},
		{ID: locBodegaID, MerchantID: demoMerchantID, Name: "Bodega Norte", Address: "Autopista Norte km 18", Active: true},
	}
	for _, l := range locations {
		_, err := repo.GetByID(ctx, l.ID)
		switch {
		case err == nil:
			continue
		case errors.Is(err, domain.ErrNotFound):
			if err := repo.Create(ctx, l); err != nil {
				return err
			}
		default:
			return err
		}
	}
	return nil
}

func seedCatalog(
	ctx context.Context,
	productRepo repository.ProductRepository,
	identRepo repository.ProductIdentifierRepository,
	plRepo repository.ProductLocationRepository,
) error {
	for _, p := range demoProducts {
		_, err := productRepo.GetByID(ctx, p.id)
		switch {
		case err == nil:
			// ya existe
		case errors.Is(err, domain.ErrNotFound):
			if err := productRepo.Create(ctx, &entity.Product{
				ID:         p.id,
				MerchantID: demoMerchantID,
				Name:       p.name,
				Category:   p.category,
				UnitCost:   decimal.RequireFromString(p.unitCost),
				UnitPrice:  decimal.RequireFromString(p.unitPrice),
				Active:     true,
			}); err != nil {
				return err
			}
		default:
			return err
		}

		err = identRepo.Create(ctx, &entity.ProductIdentifier{
			ID:          p.identID,
			ProductID:   p.id,
			MerchantID:  demoMerchantID,
			Type:        p.identType,
			Value:       p.identVal,
			Source:      "internal",
			MatchMethod: entity.MatchMethodManual,
			Verified:    true,
		})
		if err != nil && !errors.Is(err, domain.ErrDuplicate) {
			return err
		}

		for _, locID := range []string{locCentroID, locBodegaID} {
			if err := plRepo.Upsert(ctx, &entity.ProductLocation{
				ProductID:     p.id,
				LocationID:    locID,
				MerchantID:    demoMerchantID,
				ReorderPoint:  p.reorder,
				ReorderQty:    p.reorder * 3,
				MaxStockLevel: p.opening * 4,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// seedOpeningStock carga el inventario inicial como recepciones con referencia
// seed: la clave de idempotencia del ledger hace que re-correr el seed devuelva
// duplicate=true en vez de duplicar existencias.
func seedOpeningStock(ctx context.Context, appendUC *ledger.AppendMovementUseCase) error {
	for _, p := range demoProducts {
		cost := decimal.RequireFromString(p.unitCost)
		if _, err := appendUC.Append(ctx, ledger.AppendInput{
			MerchantID: demoMerchantID,
			ProductID:  p.id,
			LocationID: locCentroID,
			QtyChange:  p.opening,
			Reason:     entity.ReasonReceipt,
			RefType:    "seed",
			RefID:      "opening-" + p.id,
			UnitCost:   &cost,
			CreatedBy:  "seed_demo",
			Note:       "stock inicial de demostración",
		}); err != nil {
			return err
		}

		// La bodega arranca con el triple de la tienda
		if _, err := appendUC.Append(ctx, ledger.AppendInput{
			MerchantID: demoMerchantID,
			ProductID:  p.id,
			LocationID: locBodegaID,
			QtyChange:  p.opening * 3,
			Reason:     entity.ReasonReceipt,
			RefType:    "seed",
			RefID:      "opening-bodega-" + p.id,
			UnitCost:   &cost,
			CreatedBy:  "seed_demo",
			Note:       "stock inicial de demostración",
		}); err != nil {
			return err
		}
	}
	return nil
}
