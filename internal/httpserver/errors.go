package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
)

const (
	msgNotFound = "not found."
	msgInternal = "internal server error"
	msgBadBody  = "invalid body"
)

// fail logs err under event and converts it into the HTTP error the client sees.
// 5xx responses never carry the underlying error text.
func fail(l *slog.Logger, event string, err error) error {
	var verr *transport.ValidationError
	switch {
	case errors.As(err, &verr):
		l.Warn(event, "status", http.StatusBadRequest, "reason", "validation failed", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, verr.Fields)
	case errors.Is(err, service.ErrValidation):
		l.Warn(event, "status", http.StatusBadRequest, "reason", "invalid request", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		l.Warn(event, "status", http.StatusUnauthorized, "reason", "invalid credentials")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
	case errors.Is(err, service.ErrNotFound):
		l.Warn(event, "status", http.StatusNotFound, "reason", "not found", "error", err)
		return echo.NewHTTPError(http.StatusNotFound, msgNotFound)
	case errors.Is(err, service.ErrConflict):
		l.Warn(event, "status", http.StatusConflict, "reason", "conflict", "error", err)
		return echo.NewHTTPError(http.StatusConflict, conflictMessage(err))
	default:
		l.Error(event, "status", http.StatusInternalServerError, "reason", "internal", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, msgInternal)
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, repo.ErrProductInUse):
		return "product is referenced by existing orders"
	case errors.Is(err, repo.ErrUserAlreadyExist):
		return "user already exist"
	}
	return "conflict"
}

// bind decodes the request body; malformed JSON is a 400.
func bind(c echo.Context, l *slog.Logger, event string, dst any) error {
	if err := c.Bind(dst); err != nil {
		l.Warn(event, "status", http.StatusBadRequest, "reason", msgBadBody, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, msgBadBody)
	}
	return nil
}

// pathID parses the :id segment. Identifiers are opaque, so a malformed one
// names a resource that cannot exist.
func pathID(c echo.Context, l *slog.Logger, event string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		l.Warn(event, "status", http.StatusNotFound, "reason", "id is not a uuid", "error", err)
		return uuid.Nil, echo.NewHTTPError(http.StatusNotFound, msgNotFound)
	}
	return id, nil
}
