package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Dashboard godoc
// @Summary Catalog and user aggregates
// @Tags analytics
// @Produce json
// @Success 200 {object} model.Dashboard
// @Router /analytics/dashboard [get]
func (h *Handler) Dashboard(c echo.Context) error {
	dash, err := h.svc.Dashboard(c.Request().Context())
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, dash)
}
