package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tile-microservice/internal/pkg/errors"
	"github.com/tile-microservice/internal/pkg/validator"
)

// parseBody разбирает JSON тело и валидирует его
func parseBody(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return errors.ErrInvalidInput.WithMessage("Invalid request body")
	}
	if err := validator.Validate(req); err != nil {
		return errors.ErrValidation.WithDetails(validator.Describe(err))
	}
	return nil
}

// paramID - положительный числовой параметр пути
func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, errors.ErrInvalidInput.WithMessage("Invalid " + name)
	}
	return int64(id), nil
}
