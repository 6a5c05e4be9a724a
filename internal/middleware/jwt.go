package middleware

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rental-payments/internal/apperr"
)

// JWTAuth validates a Bearer access token and stores the caller as a
// model.Actor in the request context (see ActorFrom).  The secret must
// match the one used when issuing tokens.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return deny(c, apperr.Unauthorized("missing bearer token"))
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !tok.Valid {
				return deny(c, apperr.Unauthorized("invalid token"))
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return deny(c, apperr.Unauthorized("invalid claims"))
			}
			actor, ok := actorFromClaims(claims)
			if !ok {
				return deny(c, apperr.Unauthorized("invalid subject"))
			}
			c.Set(actorKey, actor)
			return next(c)
		}
	}
}

func deny(c echo.Context, e *apperr.Error) error {
	return c.JSON(e.HTTPStatus, echo.Map{"error": e})
}
