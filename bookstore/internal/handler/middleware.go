package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/bookstore-service/bookstore/internal/model"
)

const XUserUID = "X-User-Uid"

// RequireCapability lets the request through only if the user named by the
// X-User-Uid header holds capability. It is a no-op unless admin
// enforcement is on.
func (h *Handler) RequireCapability(capability model.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if !h.enforceAdmin {
			return next
		}
		return func(c echo.Context) error {
			uid := c.Request().Header.Get(XUserUID)
			if err := h.svc.Authorize(c.Request().Context(), uid, capability); err != nil {
				return h.httpError(c, err)
			}
			return next(c)
		}
	}
}
