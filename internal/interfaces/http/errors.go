package http

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Cotizaciones-api/internal/application/dto"
	"github.com/jhoicas/Cotizaciones-api/internal/domain"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/quoting"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// bindJSON parsea el cuerpo y lo valida con las etiquetas validate del DTO.
// Si falla ya escribió la respuesta 400 y ok es false.
func bindJSON(c *fiber.Ctx, out any) (ok bool, err error) {
	if err := c.BodyParser(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := validate.Struct(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: validationMessage(err)})
	}
	return true, nil
}

func validationMessage(err error) string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err.Error()
	}
	fields := make([]string, 0, len(ves))
	for _, fe := range ves {
		fields = append(fields, fe.Namespace()+" ("+fe.Tag()+")")
	}
	return "datos inválidos: " + strings.Join(fields, ", ")
}

// writeError traduce errores de dominio a status HTTP + ErrorResponse.
// El mensaje de los rechazos de facturación es el que el cliente muestra tal cual.
func writeError(c *fiber.Ctx, err error) error {
	var rej *quoting.RejectionError
	if errors.As(err, &rej) {
		res := dto.ErrorResponse{Code: rej.Code, Message: err.Error()}
		if rej.Code == quoting.CodePercentageOutOfRange {
			res.Details = map[string]int{"requested": rej.Requested, "min": rej.Min, "ceiling": rej.Ceiling}
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(res)
	}

	status, code := fiber.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrForbidden):
		status, code = fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = fiber.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = fiber.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, domain.ErrInvalidTransition):
		status, code = fiber.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrDuplicate):
		status, code = fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrInvoiceCapReached):
		status, code = fiber.StatusUnprocessableEntity, quoting.CodeInvoiceCapReached
	case errors.Is(err, domain.ErrDepositNotAllowed):
		status, code = fiber.StatusUnprocessableEntity, quoting.CodeDepositNotAllowed
	case errors.Is(err, domain.ErrNoRemainingBalance):
		status, code = fiber.StatusUnprocessableEntity, quoting.CodeNoRemainingBalance
	case errors.Is(err, domain.ErrPercentageOutOfRange):
		status, code = fiber.StatusUnprocessableEntity, quoting.CodePercentageOutOfRange
	}
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		msg = "error interno"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: msg})
}
