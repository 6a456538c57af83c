package auth0

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const (
	subjectKey = "auth0Subject"

	AuthorizationHeader = "Authorization"
	bearer              = "Bearer "
)

var ErrNoSubject = errors.New("no verified subject")

type Config struct {
	Issuer   string `yaml:"issuer" envconfig:"AUTH0_DOMAIN"`
	Audience string `yaml:"audience" envconfig:"AUTH0_AUDIENCE"`
}

func (c Config) Enabled() bool {
	return c.Issuer != "" && c.Audience != ""
}

type Validator interface {
	ValidateToken(ctx context.Context, tokenString string) (interface{}, error)
}

// NewValidator returns nil when the identity provider is not configured.
func NewValidator(cfg Config) (Validator, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	issuerURL, err := url.Parse("https://" + cfg.Issuer + "/")
	if err != nil {
		return nil, fmt.Errorf("failed to parse the issuer url: %w", err)
	}
	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)
	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{cfg.Audience},
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the jwt validator: %w", err)
	}
	return jwtValidator, nil
}

// Middleware verifies the bearer ID token and stores its subject in the
// echo context. A nil validator lets every request through unverified.
func Middleware(jwtValidator Validator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if jwtValidator == nil {
			return next
		}
		return func(c echo.Context) error {
			authorization := c.Request().Header.Get(AuthorizationHeader)
			if authorization == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "No Authorization Header")
			}
			if !strings.HasPrefix(authorization, bearer) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization Header")
			}
			token := strings.TrimPrefix(authorization, bearer)

			raw, err := jwtValidator.ValidateToken(c.Request().Context(), token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Token")
			}
			claims, ok := raw.(*validator.ValidatedClaims)
			if !ok || claims.RegisteredClaims.Subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Token")
			}
			c.Set(subjectKey, claims.RegisteredClaims.Subject)
			return next(c)
		}
	}
}

// Subject returns the verified token subject, if Middleware ran with a
// validator.
func Subject(c echo.Context) (string, error) {
	sub, ok := c.Get(subjectKey).(string)
	if !ok || sub == "" {
		return "", ErrNoSubject
	}
	return sub, nil
}
