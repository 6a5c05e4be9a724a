package middleware

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rental-payments/internal/model"
)

const actorKey = "actor"

// ActorFrom returns the authenticated caller.  Unauthenticated requests
// get the zero Actor, which owns nothing.
func ActorFrom(c echo.Context) model.Actor {
	if a, ok := c.Get(actorKey).(model.Actor); ok {
		return a
	}
	return model.Actor{}
}

// actorFromClaims reads sub and role.  sub is a JSON number when minted by
// this service and a string when minted by others; both are accepted.
func actorFromClaims(claims jwt.MapClaims) (model.Actor, bool) {
	var id uint64
	switch v := claims["sub"].(type) {
	case float64:
		if v <= 0 {
			return model.Actor{}, false
		}
		id = uint64(v)
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil || n == 0 {
			return model.Actor{}, false
		}
		id = n
	default:
		return model.Actor{}, false
	}
	role, _ := claims["role"].(string)
	return model.Actor{UserID: id, Role: role}, true
}

// userKey identifies the caller in Redis keys; "anon" when unauthenticated.
func userKey(c echo.Context) string {
	if a := ActorFrom(c); a.UserID != 0 {
		return strconv.FormatUint(a.UserID, 10)
	}
	return "anon"
}
