package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ConvertPdfURL godoc
// @Summary Rewrite a Drive or Dropbox share link into a direct link
// @Tags pdf
// @Produce json
// @Param url query string true "share link"
// @Success 200 {object} model.PdfURLInfo
// @Failure 400 {object} echo.HTTPError
// @Router /pdf-url/convert [get]
func (h *Handler) ConvertPdfURL(c echo.Context) error {
	info, err := h.svc.ConvertPdfURL(c.QueryParam("url"))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

// CheckPdfURL godoc
// @Summary Check that the direct form of a link answers
// @Tags pdf
// @Produce json
// @Param url query string true "share link"
// @Success 200 {object} model.PdfURLCheck
// @Failure 400 {object} echo.HTTPError
// @Router /pdf-url/check [get]
func (h *Handler) CheckPdfURL(c echo.Context) error {
	check, err := h.svc.CheckPdfURL(c.Request().Context(), c.QueryParam("url"))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, check)
}
