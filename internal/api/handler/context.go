package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ctxIdentity extracts the identity injected by the Auth middleware. A
// missing user id means the route was mounted without the middleware.
func ctxIdentity(c echo.Context) (userID int64, role string, err error) {
	userID, _ = c.Get("user_id").(int64)
	if userID <= 0 {
		return 0, "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	role, _ = c.Get("role").(string)
	return userID, role, nil
}
