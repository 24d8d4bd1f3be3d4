package server

import (
	"chat-presence/errors"
	stderrors "errors"

	"github.com/gofiber/fiber/v2"
)

// writeError maps a service error onto a status code and a JSON body.
// Unexpected errors never leak their text to the caller.
func (s *Server) writeError(c *fiber.Ctx, err error) error {
	var validationErr *errors.ValidationError
	switch {
	case stderrors.As(err, &validationErr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
			Error:   "invalid_input",
			Message: validationErr.Error(),
			Fields:  validationErr.Fields,
		})
	case stderrors.Is(err, errors.ErrInvalidInput):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{Error: "invalid_input", Message: err.Error()})
	case stderrors.Is(err, errors.ErrUnauthorized):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{Error: "unauthorized", Message: err.Error()})
	case stderrors.Is(err, errors.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: "conflict", Message: err.Error()})
	case stderrors.Is(err, errors.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "not_found", Message: err.Error()})
	default:
		if !stderrors.Is(err, errors.ErrStorageUnavailable) {
			s.log.Error("Unexpected error", "path", c.Path(), "error", err)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "Internal Server Error",
		})
	}
}

// errorHandler catches what handlers return untouched, fiber's own errors included.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if stderrors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(ErrorResponse{Error: "server_error", Message: fiberErr.Message})
	}
	return s.writeError(c, err)
}
