package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidToken(t *testing.T) {
	assert.True(t, ValidToken("ExponentPushToken[xxxxxxxxxxxxxxxxxxxxxx]"))
	assert.True(t, ValidToken("ExpoPushToken[abc]"))
	assert.False(t, ValidToken("fcm:abcdef"))
	assert.False(t, ValidToken("ExponentPushToken[abc"))
	assert.False(t, ValidToken(""))
}

func TestSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var m Message
		require.NoError(t, json.NewDecoder(r.Body).Decode(&m))
		assert.Equal(t, "ExponentPushToken[abc]", m.To)
		assert.Equal(t, "طلب جديد", m.Title)
		assert.Equal(t, float64(7), m.Data["order_id"])
		assert.Equal(t, "default", m.Sound)
		_, _ = w.Write([]byte(`{"data":{"status":"ok","id":"t-1"}}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Send(context.Background(), Message{
		To:    "ExponentPushToken[abc]",
		Title: "طلب جديد",
		Body:  "x",
		Data:  map[string]any{"order_id": 7},
	})
	assert.NoError(t, err)
}

func TestSend_SkipsInvalidTokenWithoutCalling(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Send(context.Background(), Message{To: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestSend_TicketError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"status":"error","message":"DeviceNotRegistered"}}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Send(context.Background(), Message{To: "ExponentPushToken[abc]"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DeviceNotRegistered")
}
