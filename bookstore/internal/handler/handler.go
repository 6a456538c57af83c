package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-service/bookstore/internal/errs"
	"github.com/Astemirdum/bookstore-service/bookstore/internal/model"
	"github.com/Astemirdum/bookstore-service/pkg/auth0"
	md "github.com/Astemirdum/bookstore-service/pkg/middleware"
	"github.com/Astemirdum/bookstore-service/pkg/validate"
	_ "github.com/Astemirdum/bookstore-service/swagger"
)

const internalErrorMessage = "internal server error"

type Handler struct {
	svc          BookstoreService
	tokens       auth0.Validator
	enforceAdmin bool
	log          *zap.Logger
}

type Option func(*Handler)

// WithTokenValidator makes login require an identity-provider token whose
// subject matches the body uid.
func WithTokenValidator(v auth0.Validator) Option {
	return func(h *Handler) {
		h.tokens = v
	}
}

// WithEnforceAdmin gates catalog writes, the user list and analytics behind
// the caller's stored role.
func WithEnforceAdmin(enforce bool) Option {
	return func(h *Handler) {
		h.enforceAdmin = enforce
	}
}

func New(svc BookstoreService, log *zap.Logger, opts ...Option) *Handler {
	h := &Handler{
		svc: svc,
		log: log.Named("handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, XUserUID},
		AllowCredentials: true,
	}))
	e.Validator = validate.NewCustomValidator()

	base := e.Group("", md.NewRateLimiter(baseRPS))
	api := e.Group("",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig(h.log)),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)

	base.GET("/", h.Home)
	base.GET("/manage/health", h.Health)
	base.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	base.GET("/swagger/*", echoSwagger.WrapHandler)

	manageCatalog := h.RequireCapability(model.CapManageCatalog)
	api.POST("/upload-book", h.CreateBook, manageCatalog)
	api.GET("/all-books", h.ListBooks)
	api.GET("/book/:id", h.GetBook)
	api.PATCH("/book/:id", h.UpdateBook, manageCatalog)
	api.DELETE("/book/:id", h.DeleteBook, manageCatalog)
	api.POST("/book/:id/rate", h.RateBook)
	api.GET("/popular-books", h.PopularBooks)

	api.POST("/user/login", h.Login, auth0.Middleware(h.tokens))
	api.PATCH("/user/:uid/role", h.ChangeRole)
	api.GET("/users", h.ListUsers, h.RequireCapability(model.CapManageUsers))

	api.GET("/analytics/dashboard", h.Dashboard, h.RequireCapability(model.CapViewAnalytics))

	api.GET("/pdf-url/convert", h.ConvertPdfURL)
	api.GET("/pdf-url/check", h.CheckPdfURL)

	return e
}

func (h *Handler) Home(c echo.Context) error {
	return c.String(http.StatusOK, "Bookstore API is running")
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// httpError maps domain errors to statuses. Anything unrecognised is
// logged and answered with a generic 500.
func (h *Handler) httpError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrAlreadyExists), errors.Is(err, errs.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, errs.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, errs.ErrInvalidRating),
		errors.Is(err, errs.ErrInvalidRole),
		errors.Is(err, errs.ErrEmptyUpdate),
		errors.Is(err, errs.ErrEmptyURL),
		errors.Is(err, errs.ErrInvalidLimit),
		errors.Is(err, errs.ErrFileHost):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	h.log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	return echo.NewHTTPError(http.StatusInternalServerError, internalErrorMessage)
}
