// migrate aplica el esquema completo de la base de datos (DDL idempotente).
//
// Uso: go run ./cmd/migrate
// Lee la conexión de las mismas variables de entorno que el API (DATABASE_URL o DB_*).
package main

import (
	"context"
	"time"

	"github.com/jhoicas/StockSync-api/internal/infrastructure/postgres"
	"github.com/jhoicas/StockSync-api/pkg/config"
	"github.com/jhoicas/StockSync-api/pkg/logger"
)

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
	log.Info().Str("db", cfg.DB.DBName).Msg("esquema aplicado")
}
