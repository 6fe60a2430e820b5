package http

import (
	"errors"
	"net/http"

	"lastmile/internal/pkg/errs"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Messages shown for failures that carry no user message of their own.
const (
	MsgOrderNotFound = "Pedido não encontrado"
	MsgOrderConflict = "O pedido foi alterado, tente novamente"
	MsgInternal      = "Não foi possível concluir a operação"
)

func (s *Server) writeError(c echo.Context, err error) error {
	var validationErr *errs.ValidationError

	switch {
	case errors.As(err, &validationErr):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Code:    http.StatusUnprocessableEntity,
			Message: validationErr.UserMessage,
		})
	case errors.Is(err, errs.ErrObjectNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Code: http.StatusNotFound, Message: MsgOrderNotFound})
	case errors.Is(err, errs.ErrConflict):
		return c.JSON(http.StatusConflict, ErrorResponse{Code: http.StatusConflict, Message: MsgOrderConflict})
	case errors.Is(err, errs.ErrValueIsRequired),
		errors.Is(err, errs.ErrValueIsInvalid),
		errors.Is(err, errs.ErrValueIsOutOfRange):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: http.StatusBadRequest, Message: err.Error()})
	}

	s.logger.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Code: http.StatusInternalServerError, Message: MsgInternal})
}
