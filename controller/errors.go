package controller

import (
	"errors"

	"coffee-backend/data-models/common"
	"coffee-backend/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
)

const (
	msgCoffeeNotFound = "Coffee not found."
	msgNoCoffee       = "No coffee in database."
	msgCupNotFound    = "Cup not found."
	msgCoffeeInUse    = "Coffee still has cups."
)

// toHTTPError 將 service 層錯誤轉為 huma 錯誤回應
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, service.ErrCoffeeNotFound):
		return huma.Error404NotFound(msgCoffeeNotFound)
	case errors.Is(err, service.ErrNoCoffee):
		return huma.Error404NotFound(msgNoCoffee)
	case errors.Is(err, service.ErrCupNotFound):
		return huma.Error404NotFound(msgCupNotFound)
	case errors.Is(err, service.ErrCoffeeInUse):
		return huma.Error409Conflict(msgCoffeeInUse)
	case errors.Is(err, service.ErrInvalidField), errors.Is(err, common.ErrNullField), errors.Is(err, common.ErrEmptyPatch):
		return huma.Error422UnprocessableEntity(err.Error())
	default:
		return huma.Error500InternalServerError("internal server error", err)
	}
}

// isClientError 4xx 的錯誤只記 Warn
func isClientError(err error) bool {
	return errors.Is(err, service.ErrCoffeeNotFound) ||
		errors.Is(err, service.ErrNoCoffee) ||
		errors.Is(err, service.ErrCupNotFound) ||
		errors.Is(err, service.ErrCoffeeInUse) ||
		errors.Is(err, service.ErrInvalidField) ||
		errors.Is(err, common.ErrNullField) ||
		errors.Is(err, common.ErrEmptyPatch)
}

// logEvent 4xx 的錯誤記 Warn，其餘記 Error
func logEvent(logger zerolog.Logger, err error) *zerolog.Event {
	level := zerolog.ErrorLevel
	if isClientError(err) {
		level = zerolog.WarnLevel
	}
	return logger.WithLevel(level).Err(err)
}
