package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/bookstore-service/bookstore/internal/model"
	"github.com/Astemirdum/bookstore-service/pkg/auth0"
)

// Login godoc
// @Summary Upsert the signed-in user
// @Tags users
// @Accept json
// @Produce json
// @Param user body model.LoginRequest true "profile"
// @Success 200 {object} model.User
// @Failure 400,401 {object} echo.HTTPError
// @Router /user/login [post]
func (h *Handler) Login(c echo.Context) error {
	var req model.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if h.tokens != nil {
		sub, err := auth0.Subject(c)
		if err != nil || sub != req.UID {
			return echo.NewHTTPError(http.StatusUnauthorized, "token subject does not match uid")
		}
	}
	user, err := h.svc.Login(c.Request().Context(), req)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// ChangeRole godoc
// @Summary Change a user's role
// @Tags users
// @Accept json
// @Produce json
// @Param uid path string true "target uid"
// @Param body body model.RoleChangeRequest true "new role and requesting admin"
// @Success 200 {object} model.User
// @Failure 400,403,404 {object} echo.HTTPError
// @Router /user/{uid}/role [patch]
func (h *Handler) ChangeRole(c echo.Context) error {
	var req model.RoleChangeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	user, err := h.svc.ChangeRole(c.Request().Context(), c.Param("uid"), req)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// ListUsers godoc
// @Summary List users, most recent login first
// @Tags users
// @Produce json
// @Success 200 {array} model.User
// @Router /users [get]
func (h *Handler) ListUsers(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}
