package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	errx "github.com/ragqa/server/internal/core/error"
	logx "github.com/ragqa/server/pkg/logger"
)

// ErrorBody is the payload of every error response.
type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ErrorResponse wraps ErrorBody under "error".
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// errorHandler renders handler errors as ErrorResponse.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	body := toErrorBody(err)
	if body.Code >= http.StatusInternalServerError {
		logx.Error().Err(err).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
			Str("type", body.Type).
			Msg("Request failed")
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(body.Code)
	} else {
		werr = c.JSON(body.Code, ErrorResponse{Error: body})
	}
	if werr != nil {
		logx.Warn().Err(werr).Msg("Failed to write error response")
	}
}

func toErrorBody(err error) ErrorBody {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return ErrorBody{Code: he.Code, Message: fmt.Sprint(he.Message), Type: "http_error"}
	}

	var app *errx.AppError
	if errors.As(err, &app) {
		status := errx.StatusOf(err)
		msg := app.Error()
		if app.Kind == errx.KindInternal {
			msg = "An unexpected error occurred: " + msg
		}
		return ErrorBody{Code: status, Message: msg, Type: app.Kind.String()}
	}

	return ErrorBody{
		Code:    http.StatusInternalServerError,
		Message: "An unexpected error occurred: " + err.Error(),
		Type:    errx.KindInternal.String(),
	}
}
