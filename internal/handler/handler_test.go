package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taziri/internal/domain/model"
	"taziri/internal/repository"
	"taziri/internal/usecase"
	"taziri/internal/validator"
)

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = validator.New()
	return e
}

func do(e *echo.Echo, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

type orderRepoStub struct {
	repository.OrderRepository
	orders map[int64]model.Order
}

func (s orderRepoStub) FindByID(_ context.Context, id int64) (model.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return model.Order{}, repository.ErrNotFound
	}
	return o, nil
}

func newOrderHandlerEcho(orders map[int64]model.Order) *echo.Echo {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	uc := usecase.NewOrderUsecase(nil, orderRepoStub{orders: orders}, nil, nil, usecase.NopPublisher{}, usecase.NopCache{}, log)
	e := newEcho()
	NewOrderHandler(uc).RegisterRoutes(e, Guards{})
	return e
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{usecase.NewHTTPError(http.StatusConflict, "cannot change"), http.StatusConflict},
		{fmt.Errorf("%w: invalid email", usecase.ErrValidation), http.StatusBadRequest},
		{usecase.ErrUnauthorized, http.StatusUnauthorized},
		{usecase.ErrSecurityIncident, http.StatusUnauthorized},
		{usecase.ErrForbidden, http.StatusForbidden},
		{usecase.ErrConflict, http.StatusConflict},
		{usecase.ErrTooManyAttempts, http.StatusTooManyRequests},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			require.NoError(t, writeError(c, tt.err))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestShippingHandler(t *testing.T) {
	e := newEcho()
	NewShippingHandler().RegisterRoutes(e)

	rec := do(e, http.MethodGet, "/shipping/wilayas", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 58)

	rec = do(e, http.MethodGet, "/shipping/rates?wilaya=Alger&delivery_type=stopDesk", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var q struct {
		Fee      string `json:"fee"`
		Fallback bool   `json:"fallback"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
	assert.Equal(t, "300", q.Fee)
	assert.False(t, q.Fallback)

	rec = do(e, http.MethodGet, "/shipping/rates?wilaya=Atlantis", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
	assert.Equal(t, "800", q.Fee)
	assert.True(t, q.Fallback)

	rec = do(e, http.MethodGet, "/shipping/rates?wilaya=Alger&delivery_type=drone", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderHandler_CheckoutRequiresIdempotencyKey(t *testing.T) {
	e := newOrderHandlerEcho(nil)
	rec := do(e, http.MethodPost, "/orders", `{"item_type":"product","item_id":1,"quantity":1}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "X-Idempotency-Key header required", errorOf(t, rec))
}

func TestOrderHandler_QuoteValidation(t *testing.T) {
	e := newOrderHandlerEcho(nil)
	rec := do(e, http.MethodPost, "/orders/quote",
		`{"item_type":"product","item_id":1,"quantity":0,"wilaya":"Alger","delivery_type":"home"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "quantity must be at least 1", errorOf(t, rec))
}

func TestOrderHandler_Track(t *testing.T) {
	tracking := "YAL-42"
	e := newOrderHandlerEcho(map[int64]model.Order{
		42: {ID: 42, PhoneNumber: "0555 12 34 56", Status: model.OrderStatusShipped, TrackingNumber: &tracking},
	})

	rec := do(e, http.MethodGet, "/orders/42/status?phone=0555123456", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out usecase.OrderTracking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "shipped", out.Status)
	assert.Equal(t, "YAL-42", *out.TrackingNumber)
	assert.Empty(t, out.Phone)

	rec = do(e, http.MethodGet, "/orders/42/status?phone=0666000000", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodGet, "/orders/abc/status?phone=1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// cookieでのrefreshはCSRFヘッダが無いと通さない
func TestAuthHandler_RefreshCookieNeedsCSRF(t *testing.T) {
	e := newEcho()
	NewAuthHandler(nil, 0, false).RegisterRoutes(e, Guards{})

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookie, Value: "plain"})
	req.AddCookie(&http.Cookie{Name: csrfCookie, Value: "csrf-a"})
	req.Header.Set(csrfHeader, "csrf-b")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, http.MethodPost, "/auth/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandler_RegisterValidation(t *testing.T) {
	e := newEcho()
	NewAuthHandler(nil, 0, false).RegisterRoutes(e, Guards{})

	rec := do(e, http.MethodPost, "/auth/register", `{"email":"nope","password":"password123","name":"A"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email must be an email", errorOf(t, rec))
}
