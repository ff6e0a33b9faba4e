package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"taziri/internal/usecase"
)

// 再販リンクの発行・一覧・停止と、公開の解決
type ResellHandler struct {
	uc *usecase.ResellUsecase
}

func NewResellHandler(uc *usecase.ResellUsecase) *ResellHandler {
	return &ResellHandler{uc: uc}
}

func (h *ResellHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	e.GET("/resell/:slug", h.resolve)

	links := e.Group("/resell-links", g.Auth...)
	links.POST("", h.issue)
	links.GET("", h.list)
	links.DELETE("/:id", h.deactivate)
}

func (h *ResellHandler) issue(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	var req usecase.IssueResellLinkInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.Issue(c.Request().Context(), userID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// ?include_inactive=true で停止済みも返す
func (h *ResellHandler) list(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	includeInactive := false
	if v := c.QueryParam("include_inactive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(c, "invalid include_inactive")
		}
		includeInactive = b
	}

	out, err := h.uc.List(c.Request().Context(), userID, includeInactive)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ResellHandler) deactivate(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.uc.Deactivate(c.Request().Context(), userID, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deactivated"})
}

func (h *ResellHandler) resolve(c echo.Context) error {
	out, err := h.uc.Resolve(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
