package sync

import "time"

// NextBackoff calcula la espera antes del siguiente intento tras fallos consecutivos:
// base * 2^(fallos-1), con tope en max. Con cero fallos no hay espera.
func NextBackoff(consecutiveFailures int, base, max time.Duration) time.Duration {
	if consecutiveFailures <= 0 || base <= 0 {
		return 0
	}
	// Más de 32 duplicaciones desborda cualquier tope razonable
	if consecutiveFailures > 32 {
		return max
	}
	delay := base * time.Duration(1<<uint(consecutiveFailures-1))
	if max > 0 && (delay > max || delay <= 0) {
		return max
	}
	return delay
}
