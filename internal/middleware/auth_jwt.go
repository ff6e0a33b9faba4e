package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	"taziri/internal/config"
	"taziri/internal/usecase"
)

const (
	CtxUserIDKey       = "user_id"       // int64
	CtxUserRoleKey     = "user_role"     // string (model.Role)
	CtxTokenVersionKey = "token_version" // int
)

// ErrorResponse は 4xx/5xx の共通ボディ。handler もこれを使う
type ErrorResponse struct {
	Error string `json:"error"`
}

func deny(c echo.Context, status int, msg string) error {
	return c.JSON(status, ErrorResponse{Error: msg})
}

var errSigningMethod = errors.New("unexpected signing method")

// AuthJWT は Bearer のアクセストークンを usecase.AccessClaims として検証し、
// sub/role/tv を context に置く
func AuthJWT(cfg config.Config) echo.MiddlewareFunc {
	key := []byte(cfg.JWTSecret)
	keyFunc := func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errSigningMethod
		}
		return key, nil
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return deny(c, http.StatusUnauthorized, "unauthorized")
			}

			//exp・role・tv は AccessClaims.Valid で見る
			var claims usecase.AccessClaims
			token, err := jwt.ParseWithClaims(raw, &claims, keyFunc)
			if err != nil || !token.Valid {
				return deny(c, http.StatusUnauthorized, "unauthorized")
			}

			c.Set(CtxUserIDKey, claims.UserID)
			c.Set(CtxUserRoleKey, string(claims.Role))
			c.Set(CtxTokenVersionKey, claims.TokenVersion)
			return next(c)
		}
	}
}

func bearerToken(authz string) (string, bool) {
	scheme, token, found := strings.Cut(authz, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
