package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// Cotizaciones y facturación parcial.
	ErrInvalidTransition    = errors.New("transición de estado no permitida")
	ErrInvoiceCapReached    = errors.New("la cotización ya tiene el máximo de facturas")
	ErrDepositNotAllowed    = errors.New("anticipo solo permitido en la primera factura")
	ErrNoRemainingBalance   = errors.New("la cotización no tiene saldo pendiente por facturar")
	ErrPercentageOutOfRange = errors.New("porcentaje fuera de rango")
)
