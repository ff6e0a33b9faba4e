package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"taziri/internal/domain/model"
	"taziri/internal/repository"
	"taziri/internal/usecase"
)

type AdminUserHandler struct {
	uc    *usecase.AuthUsecase
	audit *usecase.AuditUsecase
}

func NewAdminUserHandler(uc *usecase.AuthUsecase, audit *usecase.AuditUsecase) *AdminUserHandler {
	return &AdminUserHandler{uc: uc, audit: audit}
}

func (h *AdminUserHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	// /admin 配下は全部「JWT必須 + token_version一致 + ADMIN限定」
	admin := e.Group("/admin", g.Admin...)

	admin.POST("/users/:id/force-logout", h.ForceLogout)
	admin.GET("/audit-logs", h.AuditLogs)
}

func (h *AdminUserHandler) ForceLogout(c echo.Context) error {
	userID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user_id")
	}
	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	res, err := h.uc.ForceLogout(c.Request().Context(), actorID, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// GET /admin/audit-logs?actor_user_id=&action=&resource_type=&resource_id=&since=&until=&limit=&offset=
func (h *AdminUserHandler) AuditLogs(c echo.Context) error {
	var f repository.AuditLogFilter
	if err := bindAuditFilter(c, &f); err != nil {
		return writeError(c, err)
	}
	out, err := h.audit.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func bindAuditFilter(c echo.Context, f *repository.AuditLogFilter) error {
	var (
		actor, resourceID int64
		since, until      time.Time
	)
	err := echo.QueryParamsBinder(c).
		Int64("actor_user_id", &actor).
		Int64("resource_id", &resourceID).
		Time("since", &since, time.RFC3339).
		Time("until", &until, time.RFC3339).
		Int("limit", &f.Limit).
		Int("offset", &f.Offset).
		BindError()
	if err != nil {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid query")
	}

	if actor != 0 {
		f.ActorUserID = &actor
	}
	if resourceID != 0 {
		f.ResourceID = &resourceID
	}
	if !since.IsZero() {
		f.Since = &since
	}
	if !until.IsZero() {
		f.Until = &until
	}
	if v := c.QueryParam("action"); v != "" {
		a := model.AuditAction(v)
		f.Action = &a
	}
	if v := c.QueryParam("resource_type"); v != "" {
		rt := model.AuditResourceType(v)
		f.ResourceType = &rt
	}
	return nil
}
