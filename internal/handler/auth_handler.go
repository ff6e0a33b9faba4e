package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"taziri/internal/usecase"
)

const (
	refreshCookie = "refresh"
	csrfCookie    = "csrf_token"
	csrfHeader    = "X-CSRF-Token"
)

type AuthHandler struct {
	uc           *usecase.AuthUsecase
	refreshTTL   time.Duration // refresh/csrf cookie の有効期限
	cookieSecure bool
}

// DIコンストラクタ
func NewAuthHandler(uc *usecase.AuthUsecase, refreshTTL time.Duration, cookieSecure bool) *AuthHandler {
	return &AuthHandler{uc: uc, refreshTTL: refreshTTL, cookieSecure: cookieSecure}
}

// refresh token はアプリならbody、ブラウザならcookie
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type pushTokenRequest struct {
	Token string `json:"token" validate:"max=255"`
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	a := e.Group("/auth")
	a.POST("/register", h.Register)
	a.POST("/login", h.Login)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)

	me := e.Group("/me", g.Auth...)
	me.GET("", h.Me)
	me.PUT("/push-token", h.SetPushToken)
}

// RegisterはPOST /auth/registerのハンドラ
func (h *AuthHandler) Register(c echo.Context) error {
	var req usecase.AuthRegisterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Register(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// LoginはPOST /auth/login のハンドラ。
func (h *AuthHandler) Login(c echo.Context) error {
	var req usecase.AuthLoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}

	// User-Agentを取得（refreshtokenに紐付ける）
	out, err := h.uc.Login(c.Request().Context(), req, c.Request().UserAgent())
	if err != nil {
		return writeError(c, err)
	}

	if err := h.setSessionCookies(c, out.Token.RefreshToken); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	plain, err := h.refreshToken(c)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Refresh(c.Request().Context(), plain, c.Request().UserAgent())
	if err != nil {
		//使い回しや期限切れのcookieは消しておく
		h.clearSessionCookies(c)
		return writeError(c, err)
	}

	if err := h.setSessionCookies(c, out.RefreshToken); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) Logout(c echo.Context) error {
	plain, err := h.refreshToken(c)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Logout(c.Request().Context(), plain)
	h.clearSessionCookies(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) Me(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	out, err := h.uc.Me(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) SetPushToken(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	var req pushTokenRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}
	if err := h.uc.SetPushToken(c.Request().Context(), userID, req.Token); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

// body優先。cookieで来たときはCSRFヘッダとcookieの一致を見る
func (h *AuthHandler) refreshToken(c echo.Context) (string, error) {
	var req refreshRequest
	_ = c.Bind(&req)
	if t := strings.TrimSpace(req.RefreshToken); t != "" {
		return t, nil
	}

	rc, err := c.Cookie(refreshCookie)
	if err != nil || rc.Value == "" {
		return "", usecase.ErrUnauthorized
	}
	cc, err := c.Cookie(csrfCookie)
	header := c.Request().Header.Get(csrfHeader)
	if err != nil || cc.Value == "" || subtle.ConstantTimeCompare([]byte(cc.Value), []byte(header)) != 1 {
		return "", usecase.NewHTTPError(http.StatusForbidden, "csrf token mismatch")
	}
	return rc.Value, nil
}

func (h *AuthHandler) setSessionCookies(c echo.Context, plainRefresh string) error {
	csrfToken, err := generateSecureToken(32)
	if err != nil {
		return usecase.ErrInternal
	}
	exp := time.Now().Add(h.refreshTTL)

	// refresh cookie
	c.SetCookie(&http.Cookie{
		Name:     refreshCookie,
		Value:    plainRefresh,
		Path:     "/auth",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	})
	//csrf cookie。JSから読めるようにHttpOnlyにしない
	c.SetCookie(&http.Cookie{
		Name:     csrfCookie,
		Value:    csrfToken,
		Path:     "/",
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	})
	return nil
}

func (h *AuthHandler) clearSessionCookies(c echo.Context) {
	for _, ck := range []struct{ name, path string }{{refreshCookie, "/auth"}, {csrfCookie, "/"}} {
		c.SetCookie(&http.Cookie{
			Name:     ck.name,
			Value:    "",
			Path:     ck.path,
			MaxAge:   -1,
			Secure:   h.cookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// ランダム文字列を作る。
func generateSecureToken(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		bytesLen = 32
	}
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
