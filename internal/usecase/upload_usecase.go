package usecase

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"taziri/internal/logger"
)

const (
	MaxUploadSize = 5 << 20
	uploadFolder  = "taziri/products"
)

// 商品画像のアップロード。URLだけ返し、DBには保存しない
type UploadUsecase struct {
	media MediaUploader
	log   *slog.Logger
}

func NewUploadUsecase(media MediaUploader, log *slog.Logger) *UploadUsecase {
	return &UploadUsecase{media: media, log: log}
}

type UploadInput struct {
	Filename string
	Size     int64
	File     io.Reader
}

type UploadOutput struct {
	URL string `json:"url"`
}

func (u *UploadUsecase) UploadImage(ctx context.Context, in UploadInput) (UploadOutput, error) {
	if in.File == nil || strings.TrimSpace(in.Filename) == "" {
		return UploadOutput{}, NewHTTPError(http.StatusBadRequest, "file required")
	}
	if in.Size <= 0 || in.Size > MaxUploadSize {
		return UploadOutput{}, NewHTTPError(http.StatusBadRequest, "file must be between 1 byte and 5MB")
	}

	//拡張子は信用せず中身で判定する
	br := bufio.NewReaderSize(in.File, 512)
	head, _ := br.Peek(512)
	if !strings.HasPrefix(http.DetectContentType(head), "image/") {
		return UploadOutput{}, NewHTTPError(http.StatusBadRequest, "only images are allowed")
	}

	url, err := u.media.Upload(ctx, in.Filename, br, uploadFolder)
	if err != nil {
		u.log.ErrorContext(ctx, "image upload", logger.Traced(ctx), slog.String("filename", in.Filename), logger.Err(err))
		return UploadOutput{}, NewHTTPError(http.StatusBadGateway, "upload failed")
	}
	return UploadOutput{URL: url}, nil
}
