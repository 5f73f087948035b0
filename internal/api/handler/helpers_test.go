package handler

import (
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"
)

// newTestEcho mirrors the production error rendering so handlers can be
// exercised in isolation.
func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = c.JSON(he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)})
			return
		}
		code, msg, _ := ErrorStatus(err)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
	return e
}

func run(e *echo.Echo, c echo.Context, h echo.HandlerFunc) {
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
}
