package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rental-payments/internal/apperr"
	"github.com/iliyamo/rental-payments/internal/logger"
)

const dateLayout = "2006-01-02"

// fail renders err as {"error": {code, message, details}}.  Unexpected
// errors are logged with their cause; the client only sees the code.
func fail(c echo.Context, log *logger.Logger, err error) error {
	e := apperr.As(err)
	if e.HTTPStatus >= http.StatusInternalServerError {
		log.Ctx(c.Request().Context()).Error("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
	}
	return c.JSON(e.HTTPStatus, echo.Map{"error": e})
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid "+name, map[string]any{"param": name, "value": c.Param(name)})
	}
	return id, nil
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return apperr.Validation("invalid request body", map[string]any{"cause": err.Error()})
	}
	return nil
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid date", map[string]any{"field": field, "layout": dateLayout})
	}
	return t, nil
}
