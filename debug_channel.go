package main

import (
	"context"
	"fmt"
	"os"
	"time"

	appsync "github.com/jhoicas/StockSync-api/internal/application/sync"
	"github.com/jhoicas/StockSync-api/internal/infrastructure/channel"
)

func main() {
	// 1. Datos copiados EXACTAMENTE de tu .env
	// OJO: deben ser los mismos valores que usa el API (CHANNEL_POS_URL / _API_KEY).
	baseURL := os.Getenv("CHANNEL_POS_URL")
	apiKey := os.Getenv("CHANNEL_POS_API_KEY")

	fmt.Println("🔍 DIAGNÓSTICO DE CONECTOR DE CANAL")
	fmt.Println("-----------------------------------")
	if baseURL == "" {
		fmt.Println("\n❌ FALTA CONFIGURACIÓN:")
		fmt.Println("   CHANNEL_POS_URL no está definida. Exporta la variable y reintenta.")
		return
	}
	fmt.Printf("📂 Probando endpoint: %s\n", baseURL)

	// 2. Pedir la primera página como lo haría el worker
	src := channel.NewHTTPSource(baseURL, apiKey)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	batch, err := src.FetchBatch(ctx, appsync.FetchRequest{
		MerchantID: os.Getenv("DEBUG_MERCHANT_ID"),
		Channel:    "pos",
		Entity:     "inventory",
		Limit:      5,
	})
	if err != nil {
		fmt.Println("\n❌ ERROR DE FETCH:")
		fmt.Printf("   El canal no respondió una página válida.\n")
		fmt.Printf("   Detalle técnico: %v\n", err)
		return
	}

	// 3. Mostrar lo que el worker vería
	fmt.Printf("✅ Página recibida. Eventos: %d, has_more: %v\n", len(batch.Events), batch.HasMore)
	for i, ev := range batch.Events {
		fmt.Printf("   [%d] ref=%s %s=%s qty=%+d reason=%s\n",
			i, ev.ExternalRefID, ev.IdentifierType, ev.IdentifierValue, ev.QtyChange, ev.Reason)
	}

	fmt.Println("\n✨ ¡ÉXITO! El conector y la autenticación funcionan.")
	fmt.Println("   Si el poller no sincroniza, revisa el canal del comercio y next_sync_at.")
}
