package desk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"parking_terminal/internal/backend"
	"parking_terminal/internal/printer"
)

// Describe turns any action error into the short message shown to the
// attendant.
func Describe(err error) string {
	var validation *ValidationError
	var apiErr *backend.APIError
	var callErr *printer.CallError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &validation):
		return "Por favor complete todos los campos obligatorios: " + strings.Join(validation.Fields, ", ")
	case errors.Is(err, ErrNoSession):
		return "Debe iniciar sesión para continuar"
	case errors.Is(err, backend.ErrInvalidCredentials):
		return "Nombre o cédula incorrectos"
	case errors.Is(err, backend.ErrShiftActive):
		return "El usuario ya tiene un turno activo"
	case errors.Is(err, backend.ErrNotFound):
		return "No se encontró ningún registro con ese código"
	case errors.Is(err, printer.ErrPrinterNotFound):
		return "No se encontró la impresora configurada"
	case errors.Is(err, printer.ErrBridgeConnection):
		return "No se pudo conectar con el servicio de impresión"
	case errors.As(err, &callErr):
		return "La impresora rechazó el trabajo: " + callErr.Message
	case errors.Is(err, context.DeadlineExceeded):
		return "El servidor no respondió a tiempo"
	case errors.Is(err, backend.ErrUnauthorized):
		return "No tiene permisos para esta operación"
	case errors.As(err, &apiErr):
		return fmt.Sprintf("Error del servidor (%d)", apiErr.StatusCode)
	default:
		return "Ocurrió un error inesperado"
	}
}

// PrintWarning describes a receipt that failed to print after its action
// succeeded.
func PrintWarning(o Outcome) string {
	if o.Printed() {
		return ""
	}
	return "La operación se registró, pero el recibo no se imprimió: " + Describe(o.PrintErr)
}
