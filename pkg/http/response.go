package http

import (
	"errors"
	"net/http"

	"StockPulse/pkg/http/middleware"

	"github.com/labstack/echo/v4"
)

// DataResponse writes the envelope. Its status mirrors the HTTP status code.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(statusCode, APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	})
}

func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

func BadRequestResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusBadRequest, data)
}

func InternalServerErrorResponse(c echo.Context) error {
	return DataResponse(c, http.StatusInternalServerError, "Something went wrong")
}

// AppErrorResponse writes err when it is an AppError and a generic 500 otherwise.
// The cause is recorded on the context for the request logger.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		c.Set(middleware.ErrorKey, err)
		return InternalServerErrorResponse(c)
	}
	if appErr.Err != nil {
		c.Set(middleware.ErrorKey, appErr.Err)
	}
	return DataResponse(c, appErr.Status, []*AppError{appErr})
}
