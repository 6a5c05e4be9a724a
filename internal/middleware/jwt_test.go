package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rental-payments/internal/model"
	"github.com/iliyamo/rental-payments/internal/utils"
)

const testSecret = "test-secret"

func sign(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

// serve runs one request through mws and a handler that echoes the actor.
func serve(t *testing.T, req *http.Request, mws ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/who", func(c echo.Context) error {
		return c.JSON(http.StatusOK, ActorFrom(c))
	}, mws...)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestJWTAuth(t *testing.T) {
	good, err := utils.NewAccessToken(testSecret, 7, model.RoleGuest, 5)
	require.NoError(t, err)
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name   string
		header string
		status int
		actor  model.Actor
	}{
		{"valid token", "Bearer " + good.Token, http.StatusOK, model.Actor{UserID: 7, Role: model.RoleGuest}},
		{"string subject", "Bearer " + sign(t, jwt.MapClaims{"sub": "12", "role": "ADMIN", "exp": exp}, testSecret),
			http.StatusOK, model.Actor{UserID: 12, Role: model.RoleAdmin}},
		{"missing header", "", http.StatusUnauthorized, model.Actor{}},
		{"not bearer", "Basic abc", http.StatusUnauthorized, model.Actor{}},
		{"wrong secret", "Bearer " + sign(t, jwt.MapClaims{"sub": 7, "exp": exp}, "other"), http.StatusUnauthorized, model.Actor{}},
		{"expired", "Bearer " + sign(t, jwt.MapClaims{"sub": 7, "exp": time.Now().Add(-time.Minute).Unix()}, testSecret),
			http.StatusUnauthorized, model.Actor{}},
		{"zero subject", "Bearer " + sign(t, jwt.MapClaims{"sub": 0, "exp": exp}, testSecret), http.StatusUnauthorized, model.Actor{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/who", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := serve(t, req, JWTAuth(testSecret))
			require.Equal(t, tt.status, rec.Code)
			if tt.status != http.StatusOK {
				assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))
				return
			}
			var got model.Actor
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.actor, got)
		})
	}
}

func TestRequireRole(t *testing.T) {
	guest, _ := utils.NewAccessToken(testSecret, 7, model.RoleGuest, 5)
	admin, _ := utils.NewAccessToken(testSecret, 1, model.RoleAdmin, 5)

	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("Authorization", "Bearer "+guest.Token)
	rec := serve(t, req, JWTAuth(testSecret), RequireRole(model.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec))

	req = httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("Authorization", "Bearer "+admin.Token)
	rec = serve(t, req, JWTAuth(testSecret), RequireRole(model.RoleAdmin))
	assert.Equal(t, http.StatusOK, rec.Code)
}
