package usecase

import (
	"context"
	"net/http"

	"taziri/internal/domain/model"
	repo "taziri/internal/repository"
)

type AuditUsecase struct {
	auditRepo repo.AuditLogRepository
}

func NewAuditUsecase(auditRepo repo.AuditLogRepository) *AuditUsecase {
	return &AuditUsecase{auditRepo: auditRepo}
}

type AuditLogListOutput struct {
	Items  []model.AuditLog `json:"items"`
	Total  int64            `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

func (u *AuditUsecase) List(ctx context.Context, f repo.AuditLogFilter) (AuditLogListOutput, error) {
	if f.Limit == 0 {
		f.Limit = 50
	}
	if f.Limit < 1 || f.Limit > 200 {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.Offset < 0 {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid offset")
	}
	if f.Since != nil && f.Until != nil && f.Since.After(*f.Until) {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "since must be before until")
	}

	items, total, err := u.auditRepo.List(ctx, f)
	if err != nil {
		return AuditLogListOutput{}, errDB()
	}
	return AuditLogListOutput{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}
