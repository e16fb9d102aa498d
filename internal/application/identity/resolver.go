package identity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/StockSync-api/internal/application/ports"
	"github.com/jhoicas/StockSync-api/internal/domain"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	domainidentity "github.com/jhoicas/StockSync-api/internal/domain/identity"
	"github.com/jhoicas/StockSync-api/internal/domain/repository"
	"github.com/jhoicas/StockSync-api/pkg/logger"
)

// ResolverUseCase mapea identificadores externos heterogéneos (barcode, sku, upc,
// código de marketplace) al producto canónico del catálogo. Orden de búsqueda:
// coincidencia exacta por (source, tipo, valor); después, si la política lo
// habilita, fallback difuso por nombre normalizado. Todo match difuso queda
// registrado como fila de identificador con match_method=fuzzy_name y
// verified=false para que un humano lo audite.
type ResolverUseCase struct {
	identRepo     repository.ProductIdentifierRepository
	productRepo   repository.ProductRepository
	unmatchedRepo repository.UnmatchedItemRepository
	alerts        ports.AlertPublisher
	fuzzyEnabled  bool
	log           *logger.Logger
}

// NewResolverUseCase construye el resolver de identidad de productos.
func NewResolverUseCase(
	identRepo repository.ProductIdentifierRepository,
	productRepo repository.ProductRepository,
	unmatchedRepo repository.UnmatchedItemRepository,
	alerts ports.AlertPublisher,
	fuzzyEnabled bool,
	log *logger.Logger,
) *ResolverUseCase {
	return &ResolverUseCase{
		identRepo:     identRepo,
		productRepo:   productRepo,
		unmatchedRepo: unmatchedRepo,
		alerts:        alerts,
		fuzzyEnabled:  fuzzyEnabled,
		log:           log,
	}
}

// ResolveInput identificador externo a resolver. IdentifierType vacío busca por
// valor crudo (lectura por índice sobre value, sin conocer el tipo). NameHint es
// el nombre que reportó el canal, usado solo por el fallback difuso.
type ResolveInput struct {
	MerchantID     string
	Source         string
	IdentifierType string
	Value          string
	NameHint       string
}

// Resolution resultado de una resolución exitosa. Method registra cómo se llegó
// al producto (exact o fuzzy_name) para auditoría.
type Resolution struct {
	ProductID  string
	Method     string
	Identifier *entity.ProductIdentifier
}

// Resolve busca el producto canónico del identificador.
// Devuelve domain.ErrUnresolvedIdentifier cuando nada coincide: el llamador
// decide si encola el evento en la cola de reconciliación (EnqueueUnmatched).
func (uc *ResolverUseCase) Resolve(ctx context.Context, in ResolveInput) (*Resolution, error) {
	if in.MerchantID == "" || in.Source == "" || in.Value == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.IdentifierType != "" && !entity.ValidIdentifierType(in.IdentifierType) {
		return nil, domain.ErrInvalidInput
	}

	// 1. Coincidencia exacta dentro del namespace del canal
	res, err := uc.resolveExact(ctx, in)
	if err != nil || res != nil {
		return res, err
	}

	// 2. Fallback difuso por nombre normalizado, solo si la política lo habilita.
	//    Una coincidencia ambigua (0 o >1 candidatos) va a la cola, nunca se adivina.
	if !uc.fuzzyEnabled || in.NameHint == "" {
		return nil, domain.ErrUnresolvedIdentifier
	}
	normalized := domainidentity.NormalizeName(in.NameHint)
	if normalized == "" {
		return nil, domain.ErrUnresolvedIdentifier
	}
	candidates, err := uc.productRepo.FindByNormalizedName(ctx, in.MerchantID, normalized)
	if err != nil {
		return nil, err
	}
	if len(candidates) != 1 {
		return nil, domain.ErrUnresolvedIdentifier
	}
	product := candidates[0]

	// El match difuso queda persistido como identificador sin verificar:
	// resoluciones futuras del mismo valor serán exactas y auditables.
	ident := &entity.ProductIdentifier{
		ID:          uuid.New().String(),
		ProductID:   product.ID,
		MerchantID:  in.MerchantID,
		Type:        identifierTypeOrDefault(in.IdentifierType),
		Value:       in.Value,
		Source:      in.Source,
		MatchMethod: entity.MatchMethodFuzzyName,
		Verified:    false,
		CreatedAt:   time.Now().UTC(),
	}
	if err := uc.identRepo.Create(ctx, ident); err != nil {
		// El identificador se vinculó entre la lectura y la escritura (otro worker
		// o una resolución manual): conflicto reintetable, se relee como exacto.
		if errors.Is(err, domain.ErrDuplicate) {
			if res, rerr := uc.resolveExact(ctx, in); rerr == nil && res != nil {
				return res, nil
			}
			return nil, domain.ErrConflict
		}
		return nil, err
	}

	uc.log.Info().
		Str("merchant_id", in.MerchantID).
		Str("source", in.Source).
		Str("value", in.Value).
		Str("product_id", product.ID).
		Msg("identificador resuelto por nombre normalizado (pendiente de verificación)")

	return &Resolution{ProductID: product.ID, Method: entity.MatchMethodFuzzyName, Identifier: ident}, nil
}

func (uc *ResolverUseCase) resolveExact(ctx context.Context, in ResolveInput) (*Resolution, error) {
	var ident *entity.ProductIdentifier
	var err error
	if in.IdentifierType != "" {
		ident, err = uc.identRepo.GetByTypeValue(ctx, in.MerchantID, in.Source, in.IdentifierType, in.Value)
	} else {
		ident, err = uc.identRepo.FindByValue(ctx, in.MerchantID, in.Source, in.Value)
	}
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return nil, nil
	}
	return &Resolution{ProductID: ident.ProductID, Method: entity.MatchMethodExact, Identifier: ident}, nil
}

// EnqueueInput evento externo que no resolvió a un producto canónico.
type EnqueueInput struct {
	MerchantID     string
	Source         string
	IdentifierType string
	Value          string
	Payload        json.RawMessage
	Event          entity.DeferredEvent
}

// EnqueueUnmatched registra el identificador en la cola de reconciliación, o
// acumula el evento sobre el ítem pendiente existente (reportes repetidos suben
// seen_count en vez de crear filas). El evento diferido nunca se descarta: se
// re-aplicará al ledger cuando un humano resuelva el ítem.
func (uc *ResolverUseCase) EnqueueUnmatched(ctx context.Context, in EnqueueInput) (*entity.UnmatchedItem, error) {
	if in.MerchantID == "" || in.Source == "" || in.Value == "" {
		return nil, domain.ErrInvalidInput
	}

	existing, err := uc.unmatchedRepo.GetPending(ctx, in.MerchantID, in.Source, in.IdentifierType, in.Value)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := uc.unmatchedRepo.AppendEvent(ctx, existing.ID, in.Event); err != nil {
			return nil, err
		}
		existing.PendingEvents = append(existing.PendingEvents, in.Event)
		existing.SeenCount++
		return existing, nil
	}

	now := time.Now().UTC()
	item := &entity.UnmatchedItem{
		ID:              uuid.New().String(),
		MerchantID:      in.MerchantID,
		Source:          in.Source,
		IdentifierType:  in.IdentifierType,
		IdentifierValue: in.Value,
		Payload:         in.Payload,
		PendingEvents:   []entity.DeferredEvent{in.Event},
		SeenCount:       1,
		Status:          entity.UnmatchedStatusPending,
		FirstSeenAt:     now,
		LastSeenAt:      now,
	}
	if err := uc.unmatchedRepo.Create(ctx, item); err != nil {
		// Carrera contra otro worker que encoló el mismo identificador primero:
		// el índice único parcial la detecta y el evento se acumula sobre el ganador.
		if errors.Is(err, domain.ErrDuplicate) {
			winner, gerr := uc.unmatchedRepo.GetPending(ctx, in.MerchantID, in.Source, in.IdentifierType, in.Value)
			if gerr != nil {
				return nil, gerr
			}
			if winner == nil {
				return nil, domain.ErrConflict
			}
			if aerr := uc.unmatchedRepo.AppendEvent(ctx, winner.ID, in.Event); aerr != nil {
				return nil, aerr
			}
			winner.PendingEvents = append(winner.PendingEvents, in.Event)
			winner.SeenCount++
			return winner, nil
		}
		return nil, err
	}

	if uc.alerts != nil {
		_ = uc.alerts.Publish(ctx, ports.Alert{
			Type:       ports.AlertUnmatchedQueued,
			MerchantID: in.MerchantID,
			Identifier: in.IdentifierType + ":" + in.Value,
			Detail:     "identificador externo sin producto canónico, encolado para reconciliación",
			OccurredAt: now,
		})
	}
	return item, nil
}

// identifierTypeOrDefault asigna alt-code cuando el canal no informó el tipo.
func identifierTypeOrDefault(t string) string {
	if t == "" {
		return entity.IdentifierTypeAltCode
	}
	return t
}
