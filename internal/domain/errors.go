package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound              = errors.New("recurso no encontrado")
	ErrInvalidInput          = errors.New("entrada inválida")
	ErrDuplicate             = errors.New("recurso duplicado")
	ErrConflict              = errors.New("conflicto con el estado actual")
	ErrInsufficientAvailable = errors.New("disponible insuficiente para reservar")
	ErrAlreadyRunning        = errors.New("el cursor ya tiene un worker en ejecución")
	ErrUnresolvedIdentifier  = errors.New("identificador externo sin producto canónico")
	ErrStaleLease            = errors.New("el lease del cursor ya no es válido")
	ErrRecomputeWindow       = errors.New("el día está fuera de la ventana de recómputo")
)
