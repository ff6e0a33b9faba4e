package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"taziri/internal/usecase"
)

type UploadHandler struct {
	uc *usecase.UploadUsecase
}

func NewUploadHandler(uc *usecase.UploadUsecase) *UploadHandler {
	return &UploadHandler{uc: uc}
}

func (h *UploadHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	e.POST("/admin/uploads", h.upload, g.Admin...)
}

// multipart の "file" を受けてCDNのURLを返す
func (h *UploadHandler) upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file required")
	}
	if fh.Size > usecase.MaxUploadSize {
		return badRequest(c, "file too large")
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "invalid file")
	}
	defer f.Close()

	out, err := h.uc.UploadImage(c.Request().Context(), usecase.UploadInput{
		Filename: fh.Filename,
		Size:     fh.Size,
		File:     f,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}
