package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/bookstore-service/bookstore/internal/errs"
	"github.com/Astemirdum/bookstore-service/bookstore/internal/model"
	"github.com/Astemirdum/bookstore-service/bookstore/internal/service"
)

// CreateBook godoc
// @Summary Upload a book
// @Tags books
// @Accept json
// @Produce json
// @Param book body model.CreateBookRequest true "book"
// @Success 201 {object} model.InsertResult
// @Failure 400,409,500 {object} echo.HTTPError
// @Router /upload-book [post]
func (h *Handler) CreateBook(c echo.Context) error {
	var req model.CreateBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.CreateBook(c.Request().Context(), req)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// ListBooks godoc
// @Summary List books
// @Tags books
// @Produce json
// @Param category query string false "category"
// @Success 200 {array} model.Book
// @Router /all-books [get]
func (h *Handler) ListBooks(c echo.Context) error {
	books, err := h.svc.ListBooks(c.Request().Context(), c.QueryParam("category"))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, books)
}

// GetBook godoc
// @Summary Get a book and count the view
// @Tags books
// @Produce json
// @Param id path string true "book id"
// @Success 200 {object} model.Book
// @Failure 404 {object} echo.HTTPError
// @Router /book/{id} [get]
func (h *Handler) GetBook(c echo.Context) error {
	book, err := h.svc.GetBook(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, book)
}

// UpdateBook godoc
// @Summary Partially update a book
// @Tags books
// @Accept json
// @Produce json
// @Param id path string true "book id"
// @Param patch body model.UpdateBookRequest true "fields to change"
// @Success 200 {object} model.UpdateResult
// @Failure 400,404 {object} echo.HTTPError
// @Router /book/{id} [patch]
func (h *Handler) UpdateBook(c echo.Context) error {
	var req model.UpdateBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.UpdateBook(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// DeleteBook godoc
// @Summary Delete a book
// @Tags books
// @Produce json
// @Param id path string true "book id"
// @Success 200 {object} model.DeleteResult
// @Failure 404 {object} echo.HTTPError
// @Router /book/{id} [delete]
func (h *Handler) DeleteBook(c echo.Context) error {
	res, err := h.svc.DeleteBook(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// RateBook godoc
// @Summary Rate a book from 1 to 5
// @Tags books
// @Accept json
// @Produce json
// @Param id path string true "book id"
// @Param rating body model.RateRequest true "rating"
// @Success 200 {object} model.RatingResult
// @Failure 400,404,409 {object} echo.HTTPError
// @Router /book/{id}/rate [post]
func (h *Handler) RateBook(c echo.Context) error {
	var req model.RateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.RateBook(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// PopularBooks godoc
// @Summary Most viewed books, then best rated
// @Tags books
// @Produce json
// @Param limit query int false "max books, default 10, capped at 100"
// @Success 200 {array} model.Book
// @Failure 400 {object} echo.HTTPError
// @Router /popular-books [get]
func (h *Handler) PopularBooks(c echo.Context) error {
	limit := service.DefaultPopularLimit
	if limitParam := c.QueryParam("limit"); limitParam != "" {
		var err error
		if limit, err = strconv.Atoi(limitParam); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, errs.ErrInvalidLimit.Error())
		}
	}
	books, err := h.svc.PopularBooks(c.Request().Context(), limit)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, books)
}
